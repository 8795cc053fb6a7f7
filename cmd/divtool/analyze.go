// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <case-file.yaml>",
	Short: "Run the divergence analysis and print summary counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		prop, fn, err := runCase(ctx, args[0])
		if err != nil {
			return err
		}

		divergentValues := 0
		divergentTerminators := 0
		for _, b := range fn.Blocks {
			for _, inst := range b.Instrs {
				if !prop.IsDivergent(inst) {
					continue
				}
				divergentValues++
				if inst.IsTerminator() {
					divergentTerminators++
				}
			}
		}

		log.Info("analysis complete",
			"function", fn.FuncName,
			"divergent_values", divergentValues,
			"divergent_terminators", divergentTerminators,
		)
		fmt.Fprintf(cmd.OutOrStdout(), "function %s: %d divergent value(s), %d divergent terminator(s)\n",
			fn.FuncName, divergentValues, divergentTerminators)
		return nil
	},
}
