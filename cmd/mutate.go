// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/logging"
	"recordgate/cli/internal/records"
)

var (
	upsertObject string
	upsertExtID  string
)

// readInput decodes a JSON document from path, or stdin when path is "-".
func readInput(in io.Reader, path string, dst any) error {
	r := in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(errors.InvalidArgument, "open input", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errors.InvalidArgument, "decode input "+path, err)
	}
	return nil
}

// allOrNoneOption returns nil unless --all-or-none was given on cmd, so the
// batch default applies.
func allOrNoneOption(cmd *cobra.Command) *bool {
	if !cmd.Flags().Changed("all-or-none") {
		return nil
	}
	v, err := cmd.Flags().GetBool("all-or-none")
	if err != nil {
		return nil
	}
	return batch.Bool(v)
}

// inputPath returns the --file value of cmd.
func inputPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("file")
	return path
}

// runMutation opens the gateway, runs call behind a spinner and renders the
// outcomes. Failed records do not fail the command.
func runMutation(cmd *cobra.Command, op string, labels []string, call func(context.Context, *gateway.Client) ([]records.Outcome, error)) error {
	ctx := cmd.Context()
	gw, release, err := openGateway(ctx, settings)
	if err != nil {
		return err
	}
	defer release()

	var out []records.Outcome
	err = withSpinner(fmt.Sprintf("%s %d records", op, len(labels)), func() error {
		var cerr error
		out, cerr = call(ctx, gw)
		return cerr
	})
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), logging.FormatBackendError(op, err))
		return reportedError{err}
	}
	return renderOutcomes(cmd.OutOrStdout(), op, labels, out)
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete records by reference",
	Long: `Delete removes the referenced records. References may belong to different object
types. IDs come from the arguments or, with --file, from a JSON array of strings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]records.Reference, 0, len(args))
		for _, a := range args {
			ids = append(ids, records.Reference(a))
		}
		path := inputPath(cmd)
		if len(args) == 0 && path == "" {
			return errors.New(errors.InvalidArgument, "give record references as arguments or with --file")
		}
		if path != "" {
			var more []records.Reference
			if err := readInput(cmd.InOrStdin(), path, &more); err != nil {
				return err
			}
			ids = append(ids, more...)
		}
		labels := make([]string, len(ids))
		for i, id := range ids {
			labels[i] = string(id)
		}
		return runMutation(cmd, gateway.OpDelete, labels, func(ctx context.Context, gw *gateway.Client) ([]records.Outcome, error) {
			return gw.Delete(ctx, batch.DeleteOptions{RecordIDs: ids, AllOrNone: allOrNoneOption(cmd)})
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update --file records.json",
	Short: "Update records",
	Long:  `Update reads a JSON array of records. Every record must carry its Id.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var recs []records.Record
		if err := readInput(cmd.InOrStdin(), inputPath(cmd), &recs); err != nil {
			return err
		}
		return runMutation(cmd, gateway.OpUpdate, recordLabels(recs, records.IDField), func(ctx context.Context, gw *gateway.Client) ([]records.Outcome, error) {
			return gw.Update(ctx, batch.UpdateOptions{Records: recs, AllOrNone: allOrNoneOption(cmd)})
		})
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert --file inputs.json",
	Short: "Insert records",
	Long: `Insert reads a JSON array of record descriptors:

  [{"apiName": "Account", "fields": {"Name": "Acme"}}]`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var inputs []records.Descriptor
		if err := readInput(cmd.InOrStdin(), inputPath(cmd), &inputs); err != nil {
			return err
		}
		labels := make([]string, len(inputs))
		for i, d := range inputs {
			labels[i] = d.ObjectType
		}
		return runMutation(cmd, gateway.OpInsert, labels, func(ctx context.Context, gw *gateway.Client) ([]records.Outcome, error) {
			return gw.Insert(ctx, batch.InsertOptions{RecordInputs: inputs, AllOrNone: allOrNoneOption(cmd)})
		})
	},
}

var upsertCmd = &cobra.Command{
	Use:   "upsert --object Account [--external-id Field] --file records.json",
	Short: "Insert or update records by Id or an external id field",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var recs []records.Record
		if err := readInput(cmd.InOrStdin(), inputPath(cmd), &recs); err != nil {
			return err
		}
		key := upsertExtID
		if key == "" {
			key = batch.DefaultExternalID
		}
		return runMutation(cmd, gateway.OpUpsert, recordLabels(recs, key), func(ctx context.Context, gw *gateway.Client) ([]records.Outcome, error) {
			return gw.Upsert(ctx, batch.UpsertOptions{
				Records:    recs,
				APIName:    upsertObject,
				ExternalID: upsertExtID,
				AllOrNone:  allOrNoneOption(cmd),
			})
		})
	},
}

func recordLabels(recs []records.Record, key string) []string {
	labels := make([]string, len(recs))
	for i, r := range recs {
		if v, ok := r[key]; ok && v != nil {
			labels[i] = fmt.Sprint(v)
		}
	}
	return labels
}

func init() {
	for _, c := range []*cobra.Command{deleteCmd, updateCmd, insertCmd, upsertCmd} {
		c.Flags().Bool("all-or-none", true, "Roll back the whole batch when any record fails")
		rootCmd.AddCommand(c)
	}
	deleteCmd.Flags().StringP("file", "f", "", "JSON array of references (- for stdin)")
	for _, c := range []*cobra.Command{updateCmd, insertCmd, upsertCmd} {
		c.Flags().StringP("file", "f", "-", "JSON input file (- for stdin)")
	}
	upsertCmd.Flags().StringVar(&upsertObject, "object", "", "Object type of every record (required)")
	upsertCmd.Flags().StringVar(&upsertExtID, "external-id", "", "Identity field (default Id)")
}
