package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"divisionone/internal/client"
	"divisionone/internal/ledger"
	"divisionone/internal/models"
	dbconfig "divisionone/pkg/config"

	"github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// snapshotStore is where snapshots are kept and where the slot of the last
// change to a mint is read from.
type snapshotStore interface {
	Last(ctx context.Context, mint solana.PublicKey) (*models.SupplySnapshot, error)
	Create(ctx context.Context, s *models.SupplySnapshot) error
	MintSlot(ctx context.Context, mint solana.PublicKey) (uint64, error)
}

type gormSnapshotStore struct {
	db *gorm.DB
}

func (s gormSnapshotStore) Last(ctx context.Context, mint solana.PublicKey) (*models.SupplySnapshot, error) {
	var snap models.SupplySnapshot
	err := s.db.WithContext(ctx).
		Where("mint = ?", mint.String()).
		Order("created_at DESC").Order("id DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &snap, err
}

func (s gormSnapshotStore) Create(ctx context.Context, snap *models.SupplySnapshot) error {
	return s.db.WithContext(ctx).Create(snap).Error
}

func (s gormSnapshotStore) MintSlot(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	var row models.LedgerAccount
	err := s.db.WithContext(ctx).Select("slot").Where("address = ?", mint.String()).First(&row).Error
	return row.Slot, err
}

// RecordSupplySnapshots stores the current supply of every mint. Supply only
// moves down through burns, so the drop since the previous snapshot is what
// the fee hook burned in between.
func RecordSupplySnapshots(ctx context.Context, chain *client.Client, store snapshotStore, mints []solana.PublicKey) error {
	logger.Info("> Recording supply snapshots")

	var errs []error
	for _, mint := range mints {
		m, err := chain.Mint(ctx, mint)
		if err != nil {
			logger.Errorf("> Failed to read mint %s: %v", mint, err)
			errs = append(errs, fmt.Errorf("mint %s: %w", mint, err))
			continue
		}
		slot, err := store.MintSlot(ctx, mint)
		if err != nil {
			logger.Warnf("> Failed to read slot of mint %s: %v", mint, err)
		}

		snap := &models.SupplySnapshot{
			Mint:     mint.String(),
			Supply:   m.Supply,
			Decimals: m.Decimals,
			Slot:     slot,
		}
		prev, err := store.Last(ctx, mint)
		if err != nil {
			errs = append(errs, fmt.Errorf("last snapshot of %s: %w", mint, err))
			continue
		}
		if prev != nil && prev.Supply > m.Supply {
			snap.BurnedSinceLast = prev.Supply - m.Supply
		}

		if err := store.Create(ctx, snap); err != nil {
			logger.Errorf("> Failed to store snapshot of %s: %v", mint, err)
			errs = append(errs, fmt.Errorf("store snapshot of %s: %w", mint, err))
			continue
		}
		logger.WithFields(logger.Fields{
			"mint":   snap.Mint,
			"supply": snap.Supply,
			"burned": snap.BurnedSinceLast,
		}).Info("> Supply snapshot recorded")
	}
	return errors.Join(errs...)
}

func main() {
	logger.SetFormatter(&logger.JSONFormatter{})
	logger.SetLevel(logger.InfoLevel)

	settings, err := dbconfig.LoadSettings()
	if err != nil {
		logger.Fatalf("> Failed to load settings: %v", err)
	}
	if len(settings.SnapshotMints) == 0 {
		logger.Fatal("> SNAPSHOT_MINTS is empty, nothing to record")
	}

	dbconfig.InitDB()
	logger.Info("> Database initialized")

	chain := client.New(ledger.New(ledger.WithStore(ledger.NewGormStore(dbconfig.DB))))
	store := gormSnapshotStore{db: dbconfig.DB}

	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(settings.SnapshotCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := RecordSupplySnapshots(ctx, chain, store, settings.SnapshotMints); err != nil {
			logger.Errorf("> Supply snapshot run failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("> Failed to add cron job: %v", err)
	}

	logger.Infof("> Supply snapshot job started with schedule %q", settings.SnapshotCron)
	c.Start()

	select {}
}
