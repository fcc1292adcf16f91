package scheduling

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"routelink/internal/models"
)

const (
	SlotPrefix = "SL"
	SlotWidth  = 4
	slotBase   = 36
)

// SlotSequencer issues slot labels from a persistent counter. The counter is
// bumped inside the caller's transaction, so a rolled-back create reuses
// nothing and a deleted route never frees its value.
type SlotSequencer struct {
	db      *gorm.DB
	timeout opTimeout
}

func NewSlotSequencer(db *gorm.DB, timeout time.Duration) *SlotSequencer {
	return &SlotSequencer{db: db, timeout: opTimeout(timeout)}
}

// FormatSlot renders n as a fixed-width slot label, e.g. 1 -> SL0001.
func FormatSlot(n int64) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: sequence value %d out of range", ErrSequencerUnavailable, n)
	}
	digits := strings.ToUpper(strconv.FormatInt(n, slotBase))
	if len(digits) > SlotWidth {
		return "", fmt.Errorf("%w: slot space exhausted at %d", ErrSequencerUnavailable, n)
	}
	return SlotPrefix + strings.Repeat("0", SlotWidth-len(digits)) + digits, nil
}

// next reserves the following slot within tx. The UPDATE takes the counter's
// row lock, so concurrent transactions queue behind each other here.
func (s *SlotSequencer) next(tx *gorm.DB) (string, error) {
	res := tx.Model(&models.SlotCounter{}).
		Where("name = ?", models.RouteSlotCounter).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("%w: %v", ErrSequencerUnavailable, res.Error)
	}
	if res.RowsAffected != 1 {
		return "", fmt.Errorf("%w: counter %q missing", ErrSequencerUnavailable, models.RouteSlotCounter)
	}

	var c models.SlotCounter
	if err := tx.Where("name = ?", models.RouteSlotCounter).Take(&c).Error; err != nil {
		return "", fmt.Errorf("%w: %v", ErrSequencerUnavailable, err)
	}
	return FormatSlot(c.Value)
}

// Peek returns the slot the next create would receive. It reserves nothing,
// so a concurrent create may claim the value first.
func (s *SlotSequencer) Peek(ctx context.Context) (string, error) {
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()

	var c models.SlotCounter
	if err := s.db.WithContext(ctx).Where("name = ?", models.RouteSlotCounter).Take(&c).Error; err != nil {
		return "", fmt.Errorf("%w: %v", ErrSequencerUnavailable, err)
	}
	return FormatSlot(c.Value + 1)
}
