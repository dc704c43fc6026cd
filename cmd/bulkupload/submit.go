package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/binbill/internal/customer"
)

var errAborted = errors.New("submission aborted")

func newSubmitCmd(a *app) *cobra.Command {
	var (
		collectionID string
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Validate a file and enroll its customers into a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			p, err := a.load(cmd.Context(), out, args[0], "")
			if err != nil {
				return err
			}

			if !yes {
				n := len(p.Snapshot().Records)
				ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("Enroll %d customers into collection %s?", n, collectionID))
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}

			snap, err := submit(cmd.Context(), p, collectionID)
			if err != nil {
				return err
			}
			printResult(out, snap)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "Collection to enroll customers into (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Submit without asking for confirmation")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

// submit confirms the pipeline. An interrupt cancels the request in flight
// and reports the upload as cancelled.
func submit(ctx context.Context, p *customer.Pipeline, collectionID string) (customer.Snapshot, error) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			p.Cancel()
		case <-done:
		}
	}()

	return p.Confirm(context.WithoutCancel(ctx), collectionID)
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func printResult(out io.Writer, snap customer.Snapshot) {
	res := snap.Result
	if res == nil {
		return
	}
	fmt.Fprintf(out, "Enrolled %d customers into %s, %d rejected\n", res.SuccessCount, snap.CollectionID, res.FailedCount)
	if len(res.Errors) == 0 {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tERROR")
	for _, e := range res.Errors {
		fmt.Fprintf(tw, "%d\t%s\n", e.Row, e.Message)
	}
	tw.Flush()
}
