package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/promptgate/pkg/fields"
	"github.com/ormasoftchile/promptgate/pkg/options"
)

var validateCmd = &cobra.Command{
	Use:   "validate [protocol.yaml | schema.json]",
	Short: "Validate a protocol file or a prompt schema document",
	Long: `For a protocol file (.yaml/.yml), check the document structure and the
schema text of every step. For any other file, validate its contents as
prompt schema JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return validateProtocol(path)
	}
	return validateSchemaFile(path)
}

func validateProtocol(path string) error {
	f, err := options.LoadFile(path)
	if err != nil {
		return err
	}
	bad := 0
	for i, step := range f.Steps {
		if step.Schema == "" {
			continue
		}
		if _, err := fields.Parse(step.Schema); err != nil {
			fmt.Fprintf(os.Stderr, "  steps[%d].schema: %v\n", i, err)
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d step(s) carry an invalid schema", bad)
	}
	fmt.Printf("✓ %s is valid (%d steps)\n", path, len(f.Steps))
	return nil
}

func validateSchemaFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	s, err := fields.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("✓ %s is valid (%d fields: %s)\n", path, len(s.Fields), strings.Join(s.Names(), ", "))
	return nil
}
