// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"recordgate/cli/internal/engine"
)

var defineFile string

var defineCmd = &cobra.Command{
	Use:   "define --file object.json",
	Short: "Create an object type in the local store",
	Long: `Define creates an object type from a JSON description:

  {"apiName": "Account",
   "fields": [{"name": "Name", "type": "text"},
              {"name": "Ext__c", "type": "text", "unique": true}]}

Field types: text, integer, real, boolean, timestamp. Every object type has an
implicit Id reference field.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var t engine.ObjectType
		if err := readInput(cmd.InOrStdin(), defineFile, &t); err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := openEngine(ctx, settings)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.DefineObject(ctx, t); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), t)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), pterm.FgGreen.Sprintf("✅ Object type %s defined with %d fields", t.Name, len(t.Fields)))
		return err
	},
}

func init() {
	rootCmd.AddCommand(defineCmd)
	defineCmd.Flags().StringVarP(&defineFile, "file", "f", "-", "JSON object type description (- for stdin)")
}
