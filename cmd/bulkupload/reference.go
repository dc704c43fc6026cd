package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/binbill/internal/customer"
)

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a blank upload template as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return customer.WriteTemplate(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := customer.WriteTemplate(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

func newCollectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List the collections customers can be enrolled into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, err := a.platform().ListCollections(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tAMOUNT\tFREQUENCY\tACTIVE")
			for _, c := range collections {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.Amount.StringFixed(2), c.Frequency, c.Active)
			}
			return tw.Flush()
		},
	}
}

func newStatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "states [STATE]",
		Short: "List states, or the LGAs of one state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				lgas, ok := a.ref.LGAs(args[0])
				if !ok {
					return fmt.Errorf("unknown state %q", args[0])
				}
				for _, lga := range lgas {
					fmt.Fprintln(out, lga)
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSTATE\tLGAS")
			for _, s := range a.ref.States() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Key, s.Label, len(s.LGAs))
			}
			return tw.Flush()
		},
	}
}
