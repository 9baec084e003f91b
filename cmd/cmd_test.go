package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordgate/cli/internal/records"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	for _, k := range []string{"RECORDGATE_DSN", "DATABASE_URL", "RECORDGATE_ADDR", "RECORDGATE_TOKEN", "RECORDGATE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	resetFlags(t, rootCmd)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags undoes flag values left by a previous Execute on every command.
func resetFlags(t *testing.T, c *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(t, sub)
	}
}

func TestCommandsAgainstSQLite(t *testing.T) {
	dir := isolate(t)
	store := "sqlite://" + filepath.Join(dir, "records.db")

	object := writeFile(t, dir, "object.json", `{"apiName":"Account","fields":[
		{"name":"Name","type":"text"},
		{"name":"Ext__c","type":"text","unique":true}]}`)
	_, err := execute(t, "--dsn", store, "--json", "define", "-f", object)
	require.NoError(t, err)

	inputs := writeFile(t, dir, "inputs.json", `[
		{"apiName":"Account","fields":{"Name":"Acme","Ext__c":"A-1"}},
		{"apiName":"Account","fields":{"Bogus":1}},
		{"apiName":"Account","fields":{"Name":"Globex","Ext__c":"G-1"}}]`)
	out, err := execute(t, "--dsn", store, "--json", "insert", "--all-or-none=false", "-f", inputs)
	require.NoError(t, err, "failed records must not fail the command")

	var outcomes []records.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.True(t, outcomes[2].Success)

	upserts := writeFile(t, dir, "upserts.json", `[{"Ext__c":"A-1","Name":"Acme Corp"},{"Ext__c":"N-1","Name":"Newco"}]`)
	out, err = execute(t, "--dsn", store, "--json", "upsert", "--object", "Account", "--external-id", "Ext__c", "-f", upserts)
	require.NoError(t, err)
	outcomes = nil
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success, outcomes[0].Reason)
	assert.True(t, outcomes[1].Success, outcomes[1].Reason)

	out, err = execute(t, "--dsn", store, "--json", "get", "--object", "Account", "--fields", "Id,Name", "--order-by", "Name")
	require.NoError(t, err)
	var rows []records.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "Acme Corp", rows[0]["Name"])
	assert.Equal(t, "Newco", rows[2]["Name"])

	out, err = execute(t, "--dsn", store, "--json", "delete", string(outcomes[1].AffectedReferences[0]))
	require.NoError(t, err)
	outcomes = nil
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)

	_, err = execute(t, "--dsn", store, "--json", "get", "--object", "Missing")
	assert.Error(t, err)
}

func TestMutationFlagsArePerCommand(t *testing.T) {
	dir := isolate(t)
	store := "sqlite://" + filepath.Join(dir, "records.db")
	object := writeFile(t, dir, "object.json", `{"apiName":"Account","fields":[{"name":"Name","type":"text"}]}`)
	_, err := execute(t, "--dsn", store, "define", "-f", object)
	require.NoError(t, err)

	inputs := writeFile(t, dir, "inputs.json", `[{"apiName":"Account","fields":{"Name":"Acme"}}]`)
	_, err = execute(t, "--dsn", store, "--json", "insert", "--all-or-none=false", "-f", inputs)
	require.NoError(t, err)

	assert.True(t, insertCmd.Flags().Changed("all-or-none"))
	assert.Equal(t, inputs, inputPath(insertCmd))
	for _, c := range []*cobra.Command{deleteCmd, updateCmd, upsertCmd} {
		assert.False(t, c.Flags().Changed("all-or-none"), c.Name())
		assert.Nil(t, allOrNoneOption(c), c.Name())
	}
	assert.Equal(t, "", inputPath(deleteCmd))
	assert.Equal(t, "-", inputPath(updateCmd))

	resetFlags(t, rootCmd)
	assert.False(t, insertCmd.Flags().Changed("all-or-none"))
	assert.Equal(t, "-", inputPath(insertCmd))
}

func TestDeleteNeedsReferences(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--dsn", "sqlite::memory:", "delete")
	assert.Error(t, err)
}

func TestUnknownBackendRejected(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--backend", "mongo", "version")
	assert.Error(t, err)
}

func TestRenderOutcomes(t *testing.T) {
	pterm.DisableStyling()
	t.Cleanup(pterm.EnableStyling)
	prev := jsonOutput
	jsonOutput = false
	t.Cleanup(func() { jsonOutput = prev })

	var buf bytes.Buffer
	err := renderOutcomes(&buf, "insert", []string{"Account", "Account"}, []records.Outcome{
		records.Succeeded("r1"),
		records.Failed("INVALID_FIELD: No such column 'Bogus' on sobject of type Account"),
	})
	require.NoError(t, err)
	text := buf.String()
	assert.Contains(t, text, "r1")
	assert.Contains(t, text, "INVALID_FIELD")
	assert.Contains(t, text, "insert: 2 records, 1 succeeded, 1 failed")
}

func TestRowColumns(t *testing.T) {
	rows := []records.Row{{"Name": "a", "Id": "1"}, {"Amount": 3, "Id": "2"}}
	assert.Equal(t, []string{"Id", "Amount", "Name"}, rowColumns(rows))
}

func TestRecordLabels(t *testing.T) {
	recs := []records.Record{{"Id": "r1"}, {"Name": "x"}, {"Id": nil}}
	assert.Equal(t, []string{"r1", "", ""}, recordLabels(recs, "Id"))
}
