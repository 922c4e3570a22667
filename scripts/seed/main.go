package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/medstock/medstock/internal/app"
	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/shared"
	"github.com/medstock/medstock/internal/suppliers"
)

func main() {
	movements := flag.Int("movements", 20, "random stock movements to record after the catalogue")
	seed := flag.Uint64("seed", 42, "random seed for the movements")
	flag.Parse()

	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer stores.Close()

	clock := shared.SystemClock{}
	inv := inventory.NewService(stores.Inventory, clock, stores.Audit, nil, cfg.InventoryConfig())
	sup := suppliers.NewService(stores.Suppliers, clock)

	rng := rand.New(rand.NewPCG(*seed, *seed))
	result, err := run(ctx, inv, sup, clock.Today(), rng, *movements, os.Stdout)
	if err != nil {
		logger.Error("seed", slog.Any("error", err))
		stores.Close()
		os.Exit(1)
	}
	if !result.Skipped {
		fmt.Printf("seeded %d medicines, %d suppliers, %d movements\n", result.Medicines, result.Suppliers, result.Movements)
	}
}

type seedResult struct {
	Skipped   bool
	Medicines int
	Suppliers int
	Movements int
}

// run loads the sample catalogue through the services so every unit of stock
// is backed by a ledger transaction. A non-empty store is left untouched.
func run(ctx context.Context, inv *inventory.Service, sup *suppliers.Service, today time.Time, rng *rand.Rand, movements int, out io.Writer) (seedResult, error) {
	var result seedResult
	existing, err := inv.ListMedicines(ctx)
	if err != nil {
		return result, err
	}
	if len(existing) > 0 {
		_, _ = fmt.Fprintln(out, "→ Store already contains medicines, skipping sample data")
		result.Skipped = true
		return result, nil
	}

	_, _ = fmt.Fprintln(out, "→ Seeding medicines...")
	ids := make([]int64, 0, len(sampleMedicines))
	for _, m := range sampleMedicines {
		quantity := m.Quantity
		price := m.Price
		med, err := inv.CreateMedicine(ctx, inventory.MedicineInput{
			Name:         m.Name,
			Description:  m.Description,
			Category:     m.Category,
			Manufacturer: m.Manufacturer,
			BatchNumber:  m.BatchNumber,
			Quantity:     &quantity,
			Unit:         m.Unit,
			PurchaseDate: today.AddDate(0, 0, -m.PurchasedAgo).Format(shared.DateLayout),
			ExpiryDate:   today.AddDate(0, 0, m.ExpiresIn).Format(shared.DateLayout),
			Price:        &price,
		})
		if err != nil {
			return result, fmt.Errorf("medicine %s: %w", m.Name, err)
		}
		ids = append(ids, med.ID)
		result.Medicines++
	}

	_, _ = fmt.Fprintln(out, "→ Seeding suppliers...")
	for _, s := range sampleSuppliers {
		_, err := sup.Create(ctx, suppliers.Supplier{
			Name:          s.Name,
			ContactPerson: s.ContactPerson,
			Phone:         s.Phone,
			Email:         s.Email,
			Address:       s.Address,
		})
		if err != nil {
			return result, fmt.Errorf("supplier %s: %w", s.Name, err)
		}
		result.Suppliers++
	}

	_, _ = fmt.Fprintln(out, "→ Recording stock movements...")
	for i := 0; i < movements; i++ {
		id := ids[rng.IntN(len(ids))]
		amount := int64(rng.IntN(20) + 1)
		txType, note := inventory.TransactionTypeAdd, fmt.Sprintf("Restocked %d units", amount)
		if rng.IntN(2) == 1 {
			txType, note = inventory.TransactionTypeRemove, fmt.Sprintf("Dispensed %d units", amount)
		}
		_, err := inv.ApplyChange(ctx, id, txType, amount, note)
		if errors.Is(err, inventory.ErrInsufficientStock) {
			continue
		}
		if err != nil {
			return result, fmt.Errorf("movement %d: %w", i+1, err)
		}
		result.Movements++
	}
	return result, nil
}
