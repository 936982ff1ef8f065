package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"divisionone/internal/ledger"
	"divisionone/internal/programs/feehook"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type TransferResult struct {
	Wallet    string
	Amount    uint64
	Success   bool
	Signature string
	Error     error
}

type sweepTask struct {
	owner  solana.PrivateKey
	amount uint64
}

const maxRetries = 3

// Sweep moves everything each owner can send of mint to target, leaving
// enough behind for the fees. Transfers run in parallel at no more than rps
// per second. Owners without a sendable balance are skipped.
func (c *Client) Sweep(ctx context.Context, mint, target solana.PublicKey, owners []solana.PrivateKey, rps int) ([]TransferResult, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("invalid rps %d", rps)
	}

	var tasks []sweepTask
	for _, owner := range owners {
		balance, err := c.Balance(ctx, owner.PublicKey(), mint)
		if err != nil {
			return nil, fmt.Errorf("get balance of %s: %w", owner.PublicKey(), err)
		}
		amount := feehook.MaxSendable(balance)
		if amount == 0 {
			continue
		}
		tasks = append(tasks, sweepTask{owner: owner, amount: amount})
	}
	if len(tasks) == 0 {
		log.Infof("No accounts with balance")
		return nil, nil
	}

	targetATA, err := c.CreateTokenAccount(ctx, tasks[0].owner, target, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to create target account: %w", err)
	}
	log.Infof("Target account ready: %s", targetATA)

	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	resultCh := make(chan TransferResult, len(tasks))
	var wg sync.WaitGroup

	for _, task := range tasks {
		wg.Add(1)
		go func(t sweepTask) {
			defer wg.Done()
			resultCh <- c.sweepOne(ctx, limiter, mint, target, t)
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var results []TransferResult
	for res := range resultCh {
		results = append(results, res)
	}
	return results, nil
}

// sweepOne retries failures that did not come from a program, since those
// would fail again the same way.
func (c *Client) sweepOne(ctx context.Context, limiter *rate.Limiter, mint, target solana.PublicKey, t sweepTask) TransferResult {
	res := TransferResult{Wallet: t.owner.PublicKey().String(), Amount: t.amount}
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			res.Error = fmt.Errorf("rate limiter wait failed: %w", err)
			return res
		}

		receipt, err := c.Transfer(ctx, t.owner, mint, target, t.amount)
		if err == nil {
			res.Success = true
			res.Signature = receipt.Signature.String()
			res.Error = nil
			return res
		}
		res.Error = err

		var txErr *ledger.TransactionError
		if errors.As(err, &txErr) {
			break
		}
		if attempt < maxRetries {
			log.Warnf("Transfer failed for account %s, attempt %d/%d, retrying... Error: %v",
				res.Wallet, attempt+1, maxRetries, err)
			time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
		}
	}
	log.Errorf("Transfer failed for account %s, giving up. Error: %v", res.Wallet, res.Error)
	return res
}
