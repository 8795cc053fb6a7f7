// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/cdl-saarland/vplan-rv/pkg/logging"
)

var (
	verbose bool
	log     = logging.Default("divtool")

	rootCmd = &cobra.Command{
		Use:   "divtool",
		Short: "Run the control-flow divergence analysis over a case file",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log = logging.New(logging.Config{Level: logging.LevelDebug, Component: "divtool"})
			}
			return nil
		},
	}
)

func main() {
	shutdown, err := installTracing()
	if err != nil {
		fmt.Fprintf(os.Stderr, "divtool: tracing setup: %v\n", err)
		os.Exit(1)
	}
	defer shutdown(context.Background())

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}

// installTracing wires a stdout OpenTelemetry exporter so the spans the
// oracle/propagator/domtree packages open are visible when running the CLI
// directly, mirroring the teacher's otel setup for its own services.
func installTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("building stdout trace exporter: %w", err)
	}
	tp := trace.NewTracerProvider(trace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
