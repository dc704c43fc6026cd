package customer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dukerupert/binbill/internal/domain"
)

func TestWriteErrorReport(t *testing.T) {
	rowErrs := []domain.RowError{
		{Row: 3, Message: "Full name is required", Raw: domain.RawRow{ColPhone: "08012345678"}},
		{Row: 7, Message: "Invalid LGA: Timbuktu for state Lagos", Raw: domain.RawRow{ColFullName: "Ade", ColState: "Lagos", ColLGA: "Timbuktu"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteErrorReport(&buf, "customers.csv", rowErrs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{reportSheet}, f.GetSheetList())

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)

	assert.Equal(t, "Row", rows[0][0])
	assert.Equal(t, "Error", rows[0][1])
	assert.Equal(t, ColFullName, rows[0][2])

	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "Full name is required", rows[1][1])
	assert.Equal(t, "08012345678", rows[1][3])

	assert.Equal(t, "7", rows[2][0])
	assert.Equal(t, "Timbuktu", rows[2][8])

	source, err := f.GetCellValue(reportSheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "customers.csv", source)
}
