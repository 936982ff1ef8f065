package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"divisionone/internal/models"

	log "github.com/sirupsen/logrus"
)

// Saver stores one decoded event.
type Saver interface {
	Save(ctx context.Context, e *models.ProgramEvent) error
}

// Processor handles queue bodies for the worker. A body that fails to save
// is requeued until it has failed MaxAttempts times in a row, then dropped.
type Processor struct {
	Store       Saver
	MaxAttempts int
	Timeout     time.Duration

	mu          sync.Mutex
	errorCounts map[string]int
}

func NewProcessor(store Saver, maxAttempts int) *Processor {
	return &Processor{
		Store:       store,
		MaxAttempts: maxAttempts,
		Timeout:     10 * time.Second,
		errorCounts: make(map[string]int),
	}
}

// Handle matches the consumer handler signature. A returned error requeues
// the message.
func (p *Processor) Handle(body []byte) error {
	event, err := Decode(body)
	if err != nil {
		log.WithError(err).Warn("Dropping malformed event message")
		return nil
	}
	key := fmt.Sprintf("%s:%d", event.Signature, event.Ordinal)

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()
	if err := p.Store.Save(ctx, event); err != nil {
		count := p.incrementErrorCount(key)
		if count >= p.MaxAttempts {
			log.WithFields(log.Fields{
				"signature": event.Signature,
				"ordinal":   event.Ordinal,
				"name":      event.Name,
			}).Errorf("Giving up on event after %d failures: %v", count, err)
			p.resetErrorCount(key)
			return nil
		}
		return fmt.Errorf("save event %s: %w", key, err)
	}

	p.resetErrorCount(key)
	log.WithFields(log.Fields{
		"signature": event.Signature,
		"name":      event.Name,
		"slot":      event.Slot,
	}).Info("Event stored")
	return nil
}

func (p *Processor) incrementErrorCount(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errorCounts[key]++
	count := p.errorCounts[key]
	log.Warnf("Error count for event %s: %d/%d", key, count, p.MaxAttempts)
	return count
}

func (p *Processor) resetErrorCount(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.errorCounts, key)
}
