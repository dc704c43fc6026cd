package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/binbill/internal/customer"
	"github.com/dukerupert/binbill/internal/domain"
)

// errRowsInvalid is returned after the row errors have been printed.
var errRowsInvalid = errors.New("file has rows that failed validation")

func newValidateCmd(a *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Parse and validate a CSV or XLSX file without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.load(cmd.Context(), cmd.OutOrStdout(), args[0], reportPath)
			return err
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write an Excel error report here when rows fail validation")

	return cmd
}

// load runs a file through a fresh pipeline and prints the outcome. The
// returned pipeline is ready to confirm when err is nil.
func (a *app) load(ctx context.Context, out io.Writer, path, reportPath string) (*customer.Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := customer.NewPipeline(a.ref, a.platform())
	name := filepath.Base(path)

	snap, err := p.Load(ctx, name, f)
	if err != nil {
		return nil, err
	}

	if snap.State == customer.StateValidationFailed {
		fmt.Fprintf(out, "%s: %d of %d rows failed validation\n", name, len(snap.RowErrors), snap.TotalRows)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ROW\tERROR\tVALUES")
		for _, re := range snap.RowErrors {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", re.Row, re.Message, rawValues(re.Raw))
		}
		tw.Flush()

		if reportPath != "" {
			if err := writeReport(reportPath, name, snap); err != nil {
				return nil, err
			}
			fmt.Fprintf(out, "Error report written to %s\n", reportPath)
		}
		return nil, errRowsInvalid
	}

	fmt.Fprintf(out, "%s: %d rows ready to submit\n", name, len(snap.Records))
	printPreview(out, snap.Records)
	return p, nil
}

// printPreview shows records as they will be sent.
func printPreview(out io.Writer, records []domain.CustomerRecord) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPHONE\tSTATE\tLGA\tCITY\tPREVIOUS DEBT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.FullName, r.Phone, dash(r.State), dash(r.LGA), dash(r.City), r.PreviousDebt.StringFixed(2))
	}
	tw.Flush()
}

// rawValues renders the non-empty cells of a source row in template order.
func rawValues(raw domain.RawRow) string {
	var parts []string
	for _, col := range customer.Columns {
		if v := raw[col]; v != "" {
			parts = append(parts, col+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeReport(path, sourceName string, snap customer.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := customer.WriteErrorReport(f, sourceName, snap.RowErrors); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
