// Copyright 2024, the PIMGAVIR contributors.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	pimgavir "github.com/ltalignani/pimgavir-v2-sub000"
)

func phasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases [chain]",
		Short: "List registered phases, their tools, exit codes and artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var phases []pimgavir.Phase
			if len(args) == 1 {
				var err error
				phases, err = pimgavir.PhasesFor(pimgavir.Chain(args[0]))
				if err != nil {
					return fmt.Errorf("%w: %q", err, args[0])
				}
			} else {
				phases = pimgavir.AllPhases()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHAIN\tPHASE\tTOOL\tEXIT\tDEPENDS ON\tARTIFACT")
			for _, p := range phases {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					p.Chain, p.ID, p.Tool, p.ExitCode,
					strings.Join(p.DependsOn, ","), p.Produces)
			}
			return w.Flush()
		},
	}
}
