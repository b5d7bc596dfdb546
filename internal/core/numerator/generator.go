// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure (postgres sequences, memory).
package numerator

import (
	"context"
	"fmt"
	"time"
)

// ResetPeriod controls when a sequence restarts at 1.
type ResetPeriod string

const (
	ResetYearly ResetPeriod = "year"
	ResetNever  ResetPeriod = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers and used as the sequence name (e.g. "OTP").
	Prefix string

	// IncludeYear adds the period year to the number
	IncludeYear bool

	// PadWidth is the minimum digit width of the counter
	PadWidth int

	ResetPeriod ResetPeriod
}

// DeliveryNoteConfig numbers delivery notes as OTP-<year>-<3 digits>,
// restarting every calendar year.
func DeliveryNoteConfig() Config {
	return Config{
		Prefix:      "OTP",
		IncludeYear: true,
		PadWidth:    3,
		ResetPeriod: ResetYearly,
	}
}

// SequenceYear returns the sequence bucket for period. Never-resetting
// sequences share bucket 0.
func (c Config) SequenceYear(period time.Time) int {
	if c.ResetPeriod == ResetYearly {
		return period.Year()
	}
	return 0
}

// Format renders counter value num for period.
func (c Config) Format(period time.Time, num int64) string {
	pad := c.PadWidth
	if pad <= 0 {
		pad = 5
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.Format("2006"), pad, num)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, pad, num)
}

// Generator allocates sequential document numbers.
//
// Allocation joins the caller's transaction, so a rolled back operation
// releases its number. Numbers handed out by committed operations are
// never reused.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}
