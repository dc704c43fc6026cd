package customer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/binbill/internal/domain"
)

// Reference is the administrative-area lookup rows are checked against.
// *catalog.Catalog satisfies it.
type Reference interface {
	IsValidState(input string) bool
	NormalizeStateKey(input string) string
	IsValidLGA(state, lga string) bool
}

var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateRecord turns one raw row into a CustomerRecord.
//
// Rules are checked in order and the first failure is returned:
//  1. full name present
//  2. phone present
//  3. state, when given, is a known state
//  4. state and LGA, when both given, belong together
//  5. phone can be normalized
//
// The returned error message is meant to be shown to the operator as-is.
func ValidateRecord(ref Reference, row domain.RawRow) (domain.CustomerRecord, error) {
	name := CleanCell(row[ColFullName])
	if name == "" {
		return domain.CustomerRecord{}, errors.New("Full name is required")
	}

	rawPhone := CleanCell(row[ColPhone])
	if rawPhone == "" {
		return domain.CustomerRecord{}, errors.New("Phone number is required")
	}

	state := CleanCell(row[ColState])
	if state != "" && !ref.IsValidState(state) {
		return domain.CustomerRecord{}, fmt.Errorf("Invalid state: %s. Must be a valid Nigerian state", state)
	}

	lga := CleanCell(row[ColLGA])
	if state != "" && lga != "" && !ref.IsValidLGA(state, lga) {
		return domain.CustomerRecord{}, fmt.Errorf("Invalid LGA: %s for state %s", lga, state)
	}

	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return domain.CustomerRecord{}, fmt.Errorf("Invalid phone number: %s", rawPhone)
	}

	if state != "" {
		state = ref.NormalizeStateKey(state)
	}

	rec := domain.CustomerRecord{
		FullName:     name,
		Phone:        phone,
		Email:        CleanCell(row[ColEmail]),
		Address:      CleanCell(row[ColAddress]),
		City:         CleanCell(row[ColCity]),
		State:        state,
		LGA:          lga,
		PreviousDebt: ParseOptionalNonNegativeNumber(row[ColPreviousDebt], decimal.Zero),
	}
	if err := recordValidator.Struct(rec); err != nil {
		return domain.CustomerRecord{}, fmt.Errorf("Invalid record: %v", err)
	}

	return rec, nil
}

// ValidateBatch validates every row in source order. When any row fails,
// no records are returned: a batch is submitted whole or not at all.
func ValidateBatch(ref Reference, rows []SourceRow) ([]domain.CustomerRecord, []domain.RowError) {
	records := make([]domain.CustomerRecord, 0, len(rows))
	var rowErrs []domain.RowError

	for _, r := range rows {
		rec, err := ValidateRecord(ref, r.Raw)
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{Row: r.Line, Message: err.Error(), Raw: r.Raw})
			continue
		}
		records = append(records, rec)
	}

	if len(rowErrs) > 0 {
		return nil, rowErrs
	}
	return records, nil
}
