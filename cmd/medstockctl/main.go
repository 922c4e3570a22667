package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/medstock/medstock/cmd/medstockctl/cli"
	"github.com/medstock/medstock/internal/app"
	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/platform/cache"
	"github.com/medstock/medstock/internal/shared"
	"github.com/medstock/medstock/jobs"
)

const usage = `usage: medstockctl <command> [flags]

commands:
  trigger <expiry_scan|ledger_audit>  enqueue an inventory task now
  queue                               print default queue statistics
  scheduled [-n size]                 list scheduled tasks
  verify-ledger [-json]               compare quantities with the transaction ledger
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	switch args[0] {
	case "verify-ledger":
		fs := flag.NewFlagSet("verify-ledger", flag.ContinueOnError)
		fs.SetOutput(stderr)
		jsonOut := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		stores, err := app.OpenStores(ctx, cfg, logger)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "open store: %v\n", err)
			return 1
		}
		defer stores.Close()
		svc := inventory.NewService(stores.Inventory, shared.SystemClock{}, nil, nil, inventory.ServiceConfig{Logger: logger})
		return cli.VerifyLedgerCommand(ctx, svc, cli.LedgerVerifyOptions{JSONOutput: *jsonOut, Stdout: stdout, Stderr: stderr})
	case "trigger", "queue", "scheduled":
		return runJobs(ctx, cfg, args, stdout, stderr)
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	opts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	redisOpts := asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	client := jobs.NewClient(redisOpts)
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()
	ops := cli.NewJobsCLI(client, inspector)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			_, _ = fmt.Fprint(stderr, usage)
			return 2
		}
		info, err := ops.Trigger(ctx, args[1])
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "queue":
		stats, err := ops.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
			return 1
		}
		_ = enc.Encode(stats)
	case "scheduled":
		fs := flag.NewFlagSet("scheduled", flag.ContinueOnError)
		fs.SetOutput(stderr)
		size := fs.Int("n", 10, "page size")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		tasks, err := ops.ListScheduled(ctx, *size)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "scheduled: %v\n", err)
			return 1
		}
		for _, t := range tasks {
			_, _ = fmt.Fprintf(stdout, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04:05"))
		}
	}
	return 0
}
