// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// --- Responses ---

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ReturnedResponse reports how many consumptions were returned to stock.
type ReturnedResponse struct {
	Success  bool `json:"success"`
	Returned int  `json:"returned"`
}

// StockResponse reports the material balance after a ledger entry.
type StockResponse struct {
	Success bool           `json:"success"`
	ID      string         `json:"id"`
	OnHand  types.Quantity `json:"onHand"`
	Data    any            `json:"data,omitempty"`
}

// InvoiceResponse carries the draft invoice reference.
type InvoiceResponse struct {
	Success    bool   `json:"success"`
	InvoiceRef string `json:"invoiceRef"`
}

// --- Dates ---

const dateLayout = "2006-01-02"

// Date accepts "2006-01-02" or RFC 3339. Empty strings and null decode to
// the zero value.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}

// Ptr returns nil for a missing or zero date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
