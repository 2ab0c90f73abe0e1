package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/basilisklabs/jsonschema"
)

func newValidateCmd() *cobra.Command {
	var reportMultipleErrors bool

	cmd := &cobra.Command{
		Use:   "validate <schema-file> <instance-file>",
		Short: "Validate an instance document against a schema document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], args[1], reportMultipleErrors, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&reportMultipleErrors, "all-errors", "a", true, "report every violation instead of stopping at the first")
	return cmd
}

func runValidate(schemaPath, instancePath string, reportMultipleErrors bool, out io.Writer) error {
	schemaDoc, err := loadDocument(schemaPath)
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	instanceDoc, err := loadDocument(instancePath)
	if err != nil {
		return fmt.Errorf("reading instance: %w", err)
	}

	schema, err := jsonschema.CreateSchema(schemaDoc)
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	errs, err := schema.ValidateWithErrors(instanceDoc, jsonschema.WithReportMultipleErrors(reportMultipleErrors))
	if err != nil {
		return fmt.Errorf("validating instance: %w", err)
	}
	if len(errs) == 0 {
		fmt.Fprintln(out, "valid")
		return nil
	}
	for _, e := range errs {
		fmt.Fprintln(out, e.Error())
	}
	return fmt.Errorf("instance is invalid: %d violation(s)", len(errs))
}
