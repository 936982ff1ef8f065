// Package eventlog persists the program events published after each
// committed transaction and serves them back to the API.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"divisionone/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidMessage = errors.New("invalid event message")

// Message is the queue body of one event.
type Message struct {
	Signature string          `json:"signature"`
	Ordinal   int             `json:"ordinal"`
	Slot      uint64          `json:"slot"`
	BlockTime int64           `json:"block_time"`
	ProgramID string          `json:"program_id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
}

// Parse validates a queue body.
func Parse(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Signature == "" || msg.Name == "" {
		return nil, fmt.Errorf("%w: missing signature or name", ErrInvalidMessage)
	}
	return &msg, nil
}

// Decode parses a queue body into a row.
func Decode(body []byte) (*models.ProgramEvent, error) {
	msg, err := Parse(body)
	if err != nil {
		return nil, err
	}
	payload := string(msg.Payload)
	if payload == "" {
		payload = "null"
	}
	return &models.ProgramEvent{
		Signature: msg.Signature,
		Ordinal:   msg.Ordinal,
		Slot:      msg.Slot,
		ProgramID: msg.ProgramID,
		Name:      msg.Name,
		Payload:   payload,
		BlockTime: time.Unix(msg.BlockTime, 0).UTC(),
	}, nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Name      string
	ProgramID string
	Signature string
	Limit     int
	Offset    int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// Save stores e. Redelivered events are ignored.
func (r *Repository) Save(ctx context.Context, e *models.ProgramEvent) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e).Error
}

// List returns matching events, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.ProgramEvent, error) {
	q := r.DB.WithContext(ctx).Model(&models.ProgramEvent{})
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if f.ProgramID != "" {
		q = q.Where("program_id = ?", f.ProgramID)
	}
	if f.Signature != "" {
		q = q.Where("signature = ?", f.Signature)
	}
	var events []models.ProgramEvent
	err := q.Order("slot DESC").Order("id DESC").
		Limit(f.limit()).Offset(f.Offset).
		Find(&events).Error
	return events, err
}
