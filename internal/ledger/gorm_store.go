package ledger

import (
	"context"
	"errors"
	"fmt"

	"divisionone/internal/models"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists accounts in the ledger_account table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, address solana.PublicKey) (*Account, error) {
	var row models.LedgerAccount
	err := s.db.WithContext(ctx).Where("address = ?", address.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", address, err)
	}
	return accountFromRow(&row)
}

func (s *GormStore) Commit(ctx context.Context, slot uint64, accounts []*Account) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, acct := range accounts {
			if acct.IsEmpty() {
				if err := tx.Where("address = ?", acct.Address.String()).Delete(&models.LedgerAccount{}).Error; err != nil {
					return fmt.Errorf("failed to delete account %s: %w", acct.Address, err)
				}
				continue
			}

			row := models.LedgerAccount{
				Address:    acct.Address.String(),
				Owner:      acct.Owner.String(),
				Lamports:   acct.Lamports,
				Data:       acct.Data,
				Executable: acct.Executable,
				Slot:       slot,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "address"}},
				DoUpdates: clause.AssignmentColumns([]string{"owner", "lamports", "data", "executable", "slot", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("failed to upsert account %s: %w", acct.Address, err)
			}
		}
		return nil
	})
}

func (s *GormStore) ListByOwner(ctx context.Context, owner solana.PublicKey) ([]*Account, error) {
	var rows []models.LedgerAccount
	if err := s.db.WithContext(ctx).Where("owner = ?", owner.String()).Order("address").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts of %s: %w", owner, err)
	}

	out := make([]*Account, 0, len(rows))
	for i := range rows {
		acct, err := accountFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

func accountFromRow(row *models.LedgerAccount) (*Account, error) {
	address, err := solana.PublicKeyFromBase58(row.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid stored address %q: %w", row.Address, err)
	}
	owner, err := solana.PublicKeyFromBase58(row.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid stored owner %q: %w", row.Owner, err)
	}
	return &Account{
		Address:    address,
		Owner:      owner,
		Lamports:   row.Lamports,
		Data:       row.Data,
		Executable: row.Executable,
	}, nil
}
