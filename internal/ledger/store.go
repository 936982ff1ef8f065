package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Store persists committed account state.
type Store interface {
	// Get returns ErrAccountNotFound for addresses that were never stored.
	Get(ctx context.Context, address solana.PublicKey) (*Account, error)

	// Commit writes all accounts atomically at slot. Empty accounts are removed.
	Commit(ctx context.Context, slot uint64, accounts []*Account) error

	// ListByOwner returns every stored account owned by program.
	ListByOwner(ctx context.Context, owner solana.PublicKey) ([]*Account, error)
}

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[solana.PublicKey]*Account)}
}

func (s *MemoryStore) Get(_ context.Context, address solana.PublicKey) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

func (s *MemoryStore) Commit(_ context.Context, _ uint64, accounts []*Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range accounts {
		if acct.IsEmpty() {
			delete(s.accounts, acct.Address)
			continue
		}
		s.accounts[acct.Address] = acct.Clone()
	}
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner solana.PublicKey) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Account
	for _, acct := range s.accounts {
		if acct.Owner.Equals(owner) {
			out = append(out, acct.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, nil
}
