// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/logging"
	"recordgate/cli/internal/records"
)

var (
	getObject  string
	getFields  []string
	getSelect  string
	getWhere   string
	getOrderBy string
	getLimit   int
)

var getCmd = &cobra.Command{
	Use:   "get --object Account [--fields Id,Name | --select ...]",
	Short: "Query records of one object type",
	Long: `Get runs one query against an object type. --select is used verbatim as the
projection and wins over --fields. --where and --order-by are passed to the store
as given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := batch.QueryOptions{
			APIName:     getObject,
			Fields:      getFields,
			QuerySelect: getSelect,
			WhereClause: getWhere,
			OrderBy:     getOrderBy,
		}
		if cmd.Flags().Changed("limit") {
			opts.QueryLimit = batch.Int(getLimit)
		}

		gw, release, err := openGateway(ctx, settings)
		if err != nil {
			return err
		}
		defer release()

		var rows []records.Row
		err = withSpinner("querying "+getObject, func() error {
			var gerr error
			rows, gerr = gw.Get(ctx, opts)
			return gerr
		})
		if err != nil {
			cmd.PrintErrln(logging.FormatBackendError(gateway.OpGet, err))
			return reportedError{err}
		}
		var columns []string
		if getSelect == "" {
			columns = getFields
		}
		return renderRows(cmd.OutOrStdout(), columns, rows)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	f := getCmd.Flags()
	f.StringVar(&getObject, "object", "", "Object type to query (required)")
	f.StringSliceVar(&getFields, "fields", nil, "Fields to return, comma separated")
	f.StringVar(&getSelect, "select", "", "Raw projection clause, overrides --fields")
	f.StringVar(&getWhere, "where", "", "Filter clause")
	f.StringVar(&getOrderBy, "order-by", "", "Ordering clause")
	f.IntVar(&getLimit, "limit", 0, "Maximum number of rows")
}
