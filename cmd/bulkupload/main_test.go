package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCSV = "fullName,phone,state,lga\n" +
	"Ada Obi,08012345678,Lagos,Ikeja\n" +
	"Musa Bello,+2348098765432,,\n"

const invalidCSV = "fullName,phone,state\n" +
	"Ada Obi,08012345678,Lagos\n" +
	",08011111111,Lagos\n" +
	"Musa Bello,12345,Atlantis\n"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTemplate(t *testing.T) {
	out, err := execute(t, "", "template")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "fullName,phone,email,address,city,state,lga,previousDebt\n"))

	path := filepath.Join(t.TempDir(), "template.csv")
	_, err = execute(t, "", "template", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestTemplate_PassesValidation(t *testing.T) {
	out, err := execute(t, "", "template")
	require.NoError(t, err)

	out, err = execute(t, "", "validate", writeFile(t, "template.csv", out))
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows ready to submit")
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "", "validate", writeFile(t, "customers.csv", validCSV))
	require.NoError(t, err)
	assert.Contains(t, out, "customers.csv: 2 rows ready to submit")

	// Normalized values are shown, not the cells as typed.
	assert.Contains(t, out, "PREVIOUS DEBT")
	assert.Contains(t, out, "2348012345678")
	assert.Contains(t, out, "2348098765432")
	assert.NotContains(t, out, "08012345678 ")
	assert.Contains(t, out, "lagos")
	assert.Contains(t, out, "0.00")
}

func TestValidate_RowErrors(t *testing.T) {
	report := filepath.Join(t.TempDir(), "errors.xlsx")

	out, err := execute(t, "", "validate", "--report", report, writeFile(t, "customers.csv", invalidCSV))
	require.ErrorIs(t, err, errRowsInvalid)

	assert.Contains(t, out, "2 of 3 rows failed validation")
	assert.Contains(t, out, "Full name is required")
	assert.Contains(t, out, "Invalid state: Atlantis")
	assert.Contains(t, out, "VALUES")
	assert.Contains(t, out, "phone=12345 state=Atlantis")
	assert.Contains(t, out, "phone=08011111111 state=Lagos")
	assert.Contains(t, out, "Error report written to "+report)

	info, err := os.Stat(report)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestValidate_Errors(t *testing.T) {
	_, err := execute(t, "", "validate", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = execute(t, "", "validate", writeFile(t, "customers.pdf", validCSV))
	assert.Error(t, err)

	_, err = execute(t, "", "validate")
	assert.Error(t, err, "file argument is required")
}

func newPlatform(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/collections/col_1/customers/bulk":
			atomic.AddInt32(calls, 1)
			_, _ = w.Write([]byte(`{"data":{"successCount":1,"failedCount":1,"errors":[{"row":2,"error":"Phone already registered"}]}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/collections":
			_, _ = w.Write([]byte(`{"data":[{"_id":"col_1","name":"Monthly Levy","amount":2500,"frequency":"monthly","active":true}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("PLATFORM_API_URL", srv.URL)
	return srv
}

func TestSubmit(t *testing.T) {
	var calls int32
	newPlatform(t, &calls)

	out, err := execute(t, "y\n", "submit", "--collection", "col_1", writeFile(t, "customers.csv", validCSV))
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	preview := strings.Index(out, "2348012345678")
	prompt := strings.Index(out, "Enroll 2 customers into collection col_1? [y/N]")
	require.NotEqual(t, -1, preview)
	require.NotEqual(t, -1, prompt)
	assert.Less(t, preview, prompt, "preview is printed before the prompt")
	assert.Contains(t, out, "Enrolled 1 customers into col_1, 1 rejected")
	assert.Contains(t, out, "Phone already registered")
}

func TestSubmit_Declined(t *testing.T) {
	var calls int32
	newPlatform(t, &calls)

	_, err := execute(t, "\n", "submit", "--collection", "col_1", writeFile(t, "customers.csv", validCSV))
	require.ErrorIs(t, err, errAborted)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubmit_Yes(t *testing.T) {
	var calls int32
	newPlatform(t, &calls)

	out, err := execute(t, "", "submit", "-y", "--collection", "col_1", writeFile(t, "customers.csv", validCSV))
	require.NoError(t, err)
	assert.NotContains(t, out, "[y/N]")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmit_InvalidRowsNeverSent(t *testing.T) {
	var calls int32
	newPlatform(t, &calls)

	_, err := execute(t, "y\n", "submit", "--collection", "col_1", writeFile(t, "customers.csv", invalidCSV))
	require.ErrorIs(t, err, errRowsInvalid)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubmit_RequiresCollection(t *testing.T) {
	_, err := execute(t, "y\n", "submit", writeFile(t, "customers.csv", validCSV))
	assert.Error(t, err)
}

func TestCollections(t *testing.T) {
	var calls int32
	newPlatform(t, &calls)

	out, err := execute(t, "", "collections")
	require.NoError(t, err)
	assert.Contains(t, out, "col_1")
	assert.Contains(t, out, "Monthly Levy")
	assert.Contains(t, out, "2500.00")
}

func TestStates(t *testing.T) {
	out, err := execute(t, "", "states")
	require.NoError(t, err)
	assert.Contains(t, out, "lagos")
	assert.Contains(t, out, "Lagos")

	out, err = execute(t, "", "states", "Lagos")
	require.NoError(t, err)
	assert.Contains(t, out, "Eti-Osa")

	_, err = execute(t, "", "states", "Atlantis")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		got, err := confirm(strings.NewReader(tt.in), io.Discard, "Go?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q", tt.in)
	}
}
