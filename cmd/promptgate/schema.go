package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/promptgate/pkg/fields"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema that prompt schema documents must satisfy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := fields.Export()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
