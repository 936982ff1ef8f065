package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	// MaxInvokeDepth bounds nested cross-program invocations below the
	// top-level instruction.
	MaxInvokeDepth = 4

	// MaxPermittedDataIncrease bounds account growth per write.
	MaxPermittedDataIncrease = 10 * 1024
)

// Program is an on-ledger program.
type Program interface {
	ID() solana.PublicKey
	Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error
}

// txContext is the working set of one transaction. Nothing in it reaches the
// store unless every instruction succeeds.
type txContext struct {
	ctx       context.Context
	signature solana.Signature
	slot      uint64
	timestamp int64
	accounts  map[solana.PublicKey]*Account
	order     []solana.PublicKey
	logs      []string
	events    []Event
}

func (tc *txContext) logf(format string, args ...interface{}) {
	tc.logs = append(tc.logs, fmt.Sprintf(format, args...))
}

// InvokeContext is what a program sees during one invocation.
type InvokeContext struct {
	ledger    *Ledger
	tx        *txContext
	programID solana.PublicKey
	depth     int
	accounts  []*AccountInfo
}

func (c *InvokeContext) Context() context.Context {
	return c.tx.ctx
}

func (c *InvokeContext) ProgramID() solana.PublicKey {
	return c.programID
}

// Depth is 1 for a top-level instruction.
func (c *InvokeContext) Depth() int {
	return c.depth
}

func (c *InvokeContext) Slot() uint64 {
	return c.tx.slot
}

func (c *InvokeContext) UnixTimestamp() int64 {
	return c.tx.timestamp
}

// Logf appends a program log line.
func (c *InvokeContext) Logf(format string, args ...interface{}) {
	c.tx.logf("Program log: "+format, args...)
}

// Emit records an event attributed to the running program.
func (c *InvokeContext) Emit(name string, payload interface{}) {
	c.tx.logf("Program data: %s", name)
	c.tx.events = append(c.tx.events, Event{
		Signature: c.tx.signature.String(),
		Ordinal:   len(c.tx.events),
		Slot:      c.tx.slot,
		BlockTime: c.tx.timestamp,
		ProgramID: c.programID.String(),
		Name:      name,
		Payload:   payload,
	})
}

// Lookup finds an account passed to this invocation.
func (c *InvokeContext) Lookup(address solana.PublicKey) (*AccountInfo, bool) {
	for _, a := range c.accounts {
		if a.Key.Equals(address) {
			return a, true
		}
	}
	return nil, false
}

// AccountData returns the data of an account passed to this invocation. It
// has the shape expected by extra account resolvers.
func (c *InvokeContext) AccountData(address solana.PublicKey) ([]byte, bool) {
	a, ok := c.Lookup(address)
	if !ok || !a.Exists() {
		return nil, false
	}
	return a.Data(), true
}

// SetData replaces the data of an account the running program owns.
func (c *InvokeContext) SetData(acct *AccountInfo, data []byte) error {
	if !acct.IsWritable {
		return fmt.Errorf("%w: %s", ErrReadonlyDataModified, acct.Key)
	}
	if !acct.IsOwnedBy(c.programID) {
		return fmt.Errorf("%w: %s owned by %s", ErrExternalDataModified, acct.Key, acct.Owner())
	}
	if len(data) > len(acct.acct.Data)+MaxPermittedDataIncrease {
		return fmt.Errorf("account %s grows by more than %d bytes", acct.Key, MaxPermittedDataIncrease)
	}
	acct.acct.Data = append([]byte(nil), data...)
	return nil
}

// Invoke runs inst as a cross-program invocation. Accounts keep at most the
// privileges this invocation holds, except that signerSeeds may sign for
// addresses derived from the running program.
func (c *InvokeContext) Invoke(inst solana.Instruction, signerSeeds ...[][]byte) error {
	if c.depth > MaxInvokeDepth {
		return ErrCallDepth
	}

	data, err := inst.Data()
	if err != nil {
		return fmt.Errorf("failed to encode instruction: %w", err)
	}

	pdaSigners := make(map[solana.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		address, err := solana.CreateProgramAddress(seeds, c.programID)
		if err != nil {
			return fmt.Errorf("invalid signer seeds: %w", err)
		}
		pdaSigners[address] = true
	}

	metas := inst.Accounts()
	for _, m := range metas {
		caller, ok := c.Lookup(m.PublicKey)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingAccount, m.PublicKey)
		}
		if m.IsWritable && !caller.IsWritable {
			return fmt.Errorf("%w: %s is not writable", ErrPrivilegeEscalation, m.PublicKey)
		}
		if m.IsSigner && !caller.IsSigner && !pdaSigners[m.PublicKey] {
			return fmt.Errorf("%w: %s did not sign", ErrPrivilegeEscalation, m.PublicKey)
		}
	}

	return c.ledger.process(c.tx, inst.ProgramID(), metas, data, c.depth+1)
}
