package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

// Receipt describes an executed transaction.
type Receipt struct {
	Signature solana.Signature
	Slot      uint64
	Logs      []string
	Events    []Event
}

// MaxRecentBlockhashes is how many committed transactions a blockhash stays
// usable for.
const MaxRecentBlockhashes = 150

// Ledger executes signed transactions against registered programs. One
// transaction runs at a time; its account changes and events are published
// only if every instruction succeeds.
//
// A transaction must reference one of the recent blockhashes, and a committed
// signature is rejected until its blockhash expires.
type Ledger struct {
	mu        sync.Mutex
	store     Store
	sink      EventSink
	programs  map[solana.PublicKey]Program
	now       func() time.Time
	slot      uint64
	blockhash solana.Hash

	recent    []solana.Hash
	processed map[solana.Hash][]solana.Signature
	seen      map[solana.Signature]struct{}
}

type Option func(*Ledger)

func WithStore(store Store) Option {
	return func(l *Ledger) {
		l.store = store
	}
}

func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New returns a ledger with the system program registered.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		store:     NewMemoryStore(),
		programs:  make(map[solana.PublicKey]Program),
		now:       time.Now,
		recent:    []solana.Hash{{}},
		processed: make(map[solana.Hash][]solana.Signature),
		seen:      make(map[solana.Signature]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Register(systemProgram{})
	return l
}

// Register makes p invocable by its program id.
func (l *Ledger) Register(p Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[p.ID()] = p
}

func (l *Ledger) Slot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

// LatestBlockhash returns a hash to build the next transaction with.
func (l *Ledger) LatestBlockhash() solana.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockhash
}

func (l *Ledger) Store() Store {
	return l.store
}

// GetAccount returns committed state.
func (l *Ledger) GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error) {
	return l.store.Get(ctx, address)
}

// MinimumBalance returns the rent-exempt lamports for an account of space bytes.
func MinimumBalance(space uint64) uint64 {
	return (128 + space) * 3480 * 2
}

// Airdrop credits lamports to address outside of any transaction.
func (l *Ledger) Airdrop(ctx context.Context, address solana.PublicKey, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.load(ctx, address)
	if err != nil {
		return err
	}
	acct.Lamports += lamports
	return l.store.Commit(ctx, l.slot, []*Account{acct})
}

func (l *Ledger) load(ctx context.Context, address solana.PublicKey) (*Account, error) {
	acct, err := l.store.Get(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		acct = newEmptyAccount(address)
	} else if err != nil {
		return nil, err
	}
	if _, ok := l.programs[address]; ok {
		acct.Executable = true
	}
	return acct, nil
}

// Execute verifies and runs tx. On failure the returned error is a
// *TransactionError and no state changes.
func (l *Ledger) Execute(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tx.Signatures) == 0 {
		return nil, ErrMissingRequiredSig
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}
	metas, err := tx.Message.AccountMetaList()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transaction accounts: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isRecent(tx.Message.RecentBlockhash) {
		return nil, fmt.Errorf("%w: %s", ErrBlockhashNotFound, tx.Message.RecentBlockhash)
	}
	if _, ok := l.seen[tx.Signatures[0]]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, tx.Signatures[0])
	}

	tc := &txContext{
		ctx:       ctx,
		signature: tx.Signatures[0],
		slot:      l.slot + 1,
		timestamp: l.now().Unix(),
		accounts:  make(map[solana.PublicKey]*Account, len(metas)),
	}
	for _, m := range metas {
		acct, err := l.load(ctx, m.PublicKey)
		if err != nil {
			return nil, err
		}
		tc.accounts[m.PublicKey] = acct
		tc.order = append(tc.order, m.PublicKey)
	}

	receipt := &Receipt{Signature: tc.signature, Slot: tc.slot}
	for i := range tx.Message.Instructions {
		ci := &tx.Message.Instructions[i]
		programID, err := tx.Message.Program(ci.ProgramIDIndex)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		accounts, err := ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}

		if err := l.process(tc, programID, accounts, []byte(ci.Data), 1); err != nil {
			receipt.Logs = tc.logs
			log.WithFields(log.Fields{
				"signature":   tc.signature.String(),
				"instruction": i,
				"program":     programID.String(),
			}).WithError(err).Debug("Transaction aborted")
			return receipt, &TransactionError{InstructionIndex: i, Err: err}
		}
	}

	var changed []*Account
	for _, m := range metas {
		if m.IsWritable {
			changed = append(changed, tc.accounts[m.PublicKey])
		}
	}
	if err := l.store.Commit(ctx, tc.slot, changed); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	l.slot = tc.slot
	copy(l.blockhash[:], tc.signature[:32])
	l.record(tx.Message.RecentBlockhash, tc.signature)

	receipt.Logs = tc.logs
	receipt.Events = tc.events
	for _, line := range tc.logs {
		log.WithField("signature", tc.signature.String()).Debug(line)
	}

	if l.sink != nil && len(tc.events) > 0 {
		if err := l.sink.Publish(ctx, tc.events); err != nil {
			log.WithError(err).WithField("signature", tc.signature.String()).Warn("Failed to publish program events")
		}
	}

	return receipt, nil
}

func (l *Ledger) isRecent(hash solana.Hash) bool {
	for _, h := range l.recent {
		if h == hash {
			return true
		}
	}
	return false
}

// record remembers sig under the blockhash it was built with and rolls the
// recent blockhash window forward. Signatures are dropped together with
// their blockhash.
func (l *Ledger) record(hash solana.Hash, sig solana.Signature) {
	l.seen[sig] = struct{}{}
	l.processed[hash] = append(l.processed[hash], sig)

	l.recent = append(l.recent, l.blockhash)
	for len(l.recent) > MaxRecentBlockhashes {
		expired := l.recent[0]
		l.recent = l.recent[1:]
		for _, s := range l.processed[expired] {
			delete(l.seen, s)
		}
		delete(l.processed, expired)
	}
}

func (l *Ledger) process(tc *txContext, programID solana.PublicKey, metas []*solana.AccountMeta, data []byte, depth int) error {
	program, ok := l.programs[programID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, programID)
	}

	infos := make([]*AccountInfo, len(metas))
	for i, m := range metas {
		acct, ok := tc.accounts[m.PublicKey]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingAccount, m.PublicKey)
		}
		infos[i] = &AccountInfo{
			Key:        m.PublicKey,
			IsSigner:   m.IsSigner,
			IsWritable: m.IsWritable,
			acct:       acct,
		}
	}

	ic := &InvokeContext{
		ledger:    l,
		tx:        tc,
		programID: programID,
		depth:     depth,
		accounts:  infos,
	}

	tc.logf("Program %s invoke [%d]", programID, depth)
	if err := program.Process(ic, infos, data); err != nil {
		tc.logf("Program %s failed: %v", programID, err)
		return err
	}
	tc.logf("Program %s success", programID)
	return nil
}
