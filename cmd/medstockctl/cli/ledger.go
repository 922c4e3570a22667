package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/medstock/medstock/internal/inventory"
)

// LedgerVerifier compares quantities against the transaction ledger.
type LedgerVerifier interface {
	VerifyLedger(ctx context.Context) ([]inventory.LedgerDrift, error)
}

// LedgerVerifyOptions defines the flags of the verify-ledger command.
type LedgerVerifyOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// LedgerVerifySummary is the JSON output of verify-ledger.
type LedgerVerifySummary struct {
	OK    bool                    `json:"ok"`
	Drift []inventory.LedgerDrift `json:"drift"`
}

// VerifyLedgerCommand prints drift and returns the process exit code: 0 when
// consistent, 10 when drift exists and 1 on failure.
func VerifyLedgerCommand(ctx context.Context, verifier LedgerVerifier, opts LedgerVerifyOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	drift, err := verifier.VerifyLedger(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "verify-ledger: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(LedgerVerifySummary{OK: len(drift) == 0, Drift: drift}); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "verify-ledger: encode json: %v\n", err)
			return 1
		}
	} else {
		renderDrift(opts.Stdout, drift)
	}
	if len(drift) > 0 {
		return 10
	}
	return 0
}

func renderDrift(w io.Writer, drift []inventory.LedgerDrift) {
	if len(drift) == 0 {
		_, _ = fmt.Fprintln(w, "ledger consistent")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tQUANTITY\tLEDGER")
	for _, d := range drift {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", d.MedicineID, d.Name, d.Quantity, d.LedgerSum)
	}
	_ = tw.Flush()
}
