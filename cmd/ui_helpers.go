// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"golang.org/x/term"

	"recordgate/cli/internal/records"
)

// interactive reports whether stdout is a terminal and output is not JSON.
func interactive() bool {
	return !jsonOutput && term.IsTerminal(int(os.Stdout.Fd()))
}

// withSpinner runs fn behind a spinner when the terminal is interactive.
func withSpinner(text string, fn func() error) error {
	if !interactive() {
		return fn()
	}
	cursor.Hide()
	defer cursor.Show()
	spinner, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return fn()
	}
	err = fn()
	_ = spinner.Stop()
	return err
}

// renderTable writes data as a table whose first row is the header.
func renderTable(w io.Writer, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderOutcomes prints one line per record, in input order, and a summary.
// labels name the input records; they may be shorter than outcomes.
func renderOutcomes(w io.Writer, op string, labels []string, outcomes []records.Outcome) error {
	if jsonOutput {
		return printJSON(w, outcomes)
	}
	data := pterm.TableData{{"#", "Record", "Result", "References / Reason"}}
	for i, o := range outcomes {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		result := pterm.FgGreen.Sprint("ok")
		detail := joinRefs(o.AffectedReferences)
		if !o.Success {
			result = pterm.FgRed.Sprint("failed")
			detail = o.Reason
		}
		data = append(data, []string{fmt.Sprint(i), label, result, detail})
	}
	if len(outcomes) > 0 {
		if err := renderTable(w, data); err != nil {
			return err
		}
	}

	failed := records.CountFailed(outcomes)
	summary := fmt.Sprintf("%s: %d records, %d succeeded, %d failed", op, len(outcomes), len(outcomes)-failed, failed)
	if failed > 0 {
		_, err := fmt.Fprintln(w, pterm.FgYellow.Sprint(summary))
		return err
	}
	_, err := fmt.Fprintln(w, pterm.FgGreen.Sprint(summary))
	return err
}

// renderRows prints rows as a table. columns fixes the column order; when
// empty, Id comes first and the rest are sorted.
func renderRows(w io.Writer, columns []string, rows []records.Row) error {
	if jsonOutput {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no rows")
		return err
	}
	if len(columns) == 0 {
		columns = rowColumns(rows)
	}
	data := pterm.TableData{columns}
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			if v, ok := r[c]; ok && v != nil {
				line[i] = fmt.Sprint(v)
			}
		}
		data = append(data, line)
	}
	if err := renderTable(w, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d rows\n", len(rows))
	return err
}

func rowColumns(rows []records.Row) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if (cols[i] == records.IDField) != (cols[j] == records.IDField) {
			return cols[i] == records.IDField
		}
		return cols[i] < cols[j]
	})
	return cols
}

func joinRefs(refs []records.Reference) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
