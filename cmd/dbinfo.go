// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"recordgate/cli/internal/config"
	"recordgate/cli/internal/dsn"
	"recordgate/cli/internal/logging"
)

// dbinfoCmd shows which record store commands will use, with credentials
// masked, and the object types defined in it.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the configured record store and its object types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if settings.ResolveBackend() == config.BackendRemote {
			fmt.Fprintln(out, box("Remote Record Store", settings.Remote.Addr))
			return nil
		}

		raw, source, err := resolveDSN(settings)
		if err != nil {
			return err
		}
		desc := logging.Mask(raw)
		if info, perr := dsn.ParseInfo(raw); perr == nil {
			desc = info.Redacted()
		}
		fmt.Fprintln(out, box("Record Store", desc+"\n(from "+source+")"))

		ctx := cmd.Context()
		e, err := openEngine(ctx, settings)
		if err != nil {
			fmt.Fprintln(out, logging.FormatBackendError("dbinfo", err))
			return reportedError{err}
		}
		defer e.Close()

		objects, err := e.Objects(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, objects)
		}
		if len(objects) == 0 {
			fmt.Fprintln(out, "No object types defined. Run 'recordgate define' to create one.")
			return nil
		}
		data := pterm.TableData{{"Object type", "Fields"}}
		for _, o := range objects {
			names := make([]string, len(o.Fields))
			for i, f := range o.Fields {
				names[i] = fmt.Sprintf("%s %s", f.Name, f.Type)
				if f.Unique {
					names[i] += " unique"
				}
			}
			data = append(data, []string{o.Name, strings.Join(names, ", ")})
		}
		return renderTable(out, data)
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

func box(title, body string) string {
	return pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(title)).
		WithPadding(1).
		Sprint(body)
}
