package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawRow is one source line mapped against the header row.
// Keys are the canonical column names (see customer.Columns).
type RawRow map[string]string

// CustomerRecord is a customer row that passed client-side validation
// and is ready to be enrolled into a collection. Records are built once
// by the row validator and never mutated afterwards.
type CustomerRecord struct {
	FullName     string          `json:"fullName" validate:"required"`
	Phone        string          `json:"phone" validate:"required,len=13,numeric,startswith=234"`
	Email        string          `json:"email,omitempty"`
	Address      string          `json:"address,omitempty"`
	City         string          `json:"city,omitempty"`
	State        string          `json:"state,omitempty"`
	LGA          string          `json:"lga,omitempty"`
	PreviousDebt decimal.Decimal `json:"previousDebt"`
}

// RowError describes a row rejected before anything was sent to the platform.
// Row is the 1-based file line: the header is line 1, the first data row is 2.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"error"`
	Raw     RawRow `json:"data,omitempty"`
}

// Error implements the error interface.
func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// BatchResult is the platform's verdict on a bulk enrollment. The platform
// may accept some rows and reject others; both are reported as-is.
type BatchResult struct {
	SuccessCount int              `json:"successCount"`
	FailedCount  int              `json:"failedCount"`
	Errors       []ServerRowError `json:"errors"`
}

// ServerRowError is a row the platform rejected after receiving it
// (duplicate account, business-rule conflict). Distinct from RowError.
type ServerRowError struct {
	Row     int             `json:"row"`
	Message string          `json:"error"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Collection is a recurring billing plan customers can be enrolled into.
type Collection struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency,omitempty"`
	Active    bool            `json:"active"`
}

// UnmarshalJSON accepts both "id" and "_id" since the platform is not
// consistent about which one it emits.
func (c *Collection) UnmarshalJSON(data []byte) error {
	type alias Collection
	var aux struct {
		alias
		MongoID string `json:"_id"`
		Status  string `json:"status"`
		Active  *bool  `json:"active"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Collection(aux.alias)
	if c.ID == "" {
		c.ID = aux.MongoID
	}
	switch {
	case aux.Active != nil:
		c.Active = *aux.Active
	case aux.Status != "":
		c.Active = aux.Status == "active"
	default:
		c.Active = true
	}
	return nil
}
