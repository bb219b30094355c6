// Copyright 2024, the PIMGAVIR contributors.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ltalignani/pimgavir-v2-sub000/utils"
)

// concat-reads is the clustering chain's first phase: it is invoked
// by the driver itself, the way any other pipeline tool would be.
func concatReadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "concat-reads <R1> <R2> <out.fasta>",
		Short: "Concatenate paired reads with an N spacer into one FASTA record per pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := utils.ConcatPairFiles(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d concatenated pairs to %s\n", n, args[2])
			return nil
		},
	}
}
