package customer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Recognized source columns, in template order.
const (
	ColFullName     = "fullName"
	ColPhone        = "phone"
	ColEmail        = "email"
	ColAddress      = "address"
	ColCity         = "city"
	ColState        = "state"
	ColLGA          = "lga"
	ColPreviousDebt = "previousDebt"
)

// Columns lists the recognized columns in the order the template uses.
var Columns = []string{
	ColFullName,
	ColPhone,
	ColEmail,
	ColAddress,
	ColCity,
	ColState,
	ColLGA,
	ColPreviousDebt,
}

var columnByFold = func() map[string]string {
	m := make(map[string]string, len(Columns))
	for _, c := range Columns {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// canonicalColumn maps a header cell onto a recognized column name.
func canonicalColumn(header string) (string, bool) {
	c, ok := columnByFold[strings.ToLower(CleanCell(header))]
	return c, ok
}

var templateExample = []string{
	"Jane Doe",
	"08012345678",
	"jane.doe@example.com",
	"12 Admiralty Way",
	"Lekki Phase 1",
	"Lagos",
	"Eti-Osa",
	"0",
}

// WriteTemplate writes the header line and one example row as CSV.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write template header: %w", err)
	}
	if err := cw.Write(templateExample); err != nil {
		return fmt.Errorf("write template row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
