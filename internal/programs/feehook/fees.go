package feehook

import (
	"math/bits"
)

// Fee rates in parts per FeeDenominator.
const (
	OpsFeeRate         = 5
	BurnFeeRate        = 5
	InstitutionFeeRate = 20
	FeeDenominator     = 1000
)

// Fees are the three slices taken from one transfer.
type Fees struct {
	Ops         uint64 `json:"ops_fee"`
	Burn        uint64 `json:"burn_fee"`
	Institution uint64 `json:"institution_fee"`
}

// ComputeFees splits amount. Each fee is floor(amount * rate / 1000).
func ComputeFees(amount uint64) (Fees, error) {
	ops, err := fee(amount, OpsFeeRate)
	if err != nil {
		return Fees{}, err
	}
	burn, err := fee(amount, BurnFeeRate)
	if err != nil {
		return Fees{}, err
	}
	institution, err := fee(amount, InstitutionFeeRate)
	if err != nil {
		return Fees{}, err
	}
	return Fees{Ops: ops, Burn: burn, Institution: institution}, nil
}

func fee(amount, rate uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, rate)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo / FeeDenominator, nil
}

// Total is what the hook extracts from the source.
func (f Fees) Total() uint64 {
	return f.Ops + f.Burn + f.Institution
}

// SenderDebit is what leaves the source for a transfer of amount: the
// recipient gets all of amount and the fees are taken on top. ComputeFees
// rejects any amount large enough for this to overflow.
func (f Fees) SenderDebit(amount uint64) uint64 {
	return amount + f.Total()
}

// IsZero reports whether no fee is due.
func (f Fees) IsZero() bool {
	return f.Total() == 0
}

// MaxSendable is the largest amount a holder of balance can transfer with
// every fee charged on top.
func MaxSendable(balance uint64) uint64 {
	const gross = FeeDenominator + OpsFeeRate + BurnFeeRate + InstitutionFeeRate
	x := balance/gross*FeeDenominator + balance%gross*FeeDenominator/gross
	for x < balance {
		f, err := ComputeFees(x + 1)
		if err != nil || x+1+f.Total() > balance {
			break
		}
		x++
	}
	return x
}
