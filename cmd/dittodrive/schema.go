package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/pkg/config"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [output]",
		Short: "Write the JSON schema of the configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaJSON, err := config.JSONSchema()
			if err != nil {
				return err
			}

			outputFile := "config.schema.json"
			if len(args) > 0 {
				outputFile = args[0]
			}
			if outputFile == "-" {
				_, err := cmd.OutOrStdout().Write(schemaJSON)
				return err
			}

			if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
				return fmt.Errorf("failed to write schema file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", outputFile)
			return nil
		},
	}
}
