package records

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID   string `json:"Id,omitempty"`
	Name string `json:"Name"`
}

func TestRecordReference(t *testing.T) {
	ref, ok := Record{"Id": "a1", "Name": "Acme"}.Reference()
	assert.True(t, ok)
	assert.Equal(t, Reference("a1"), ref)

	_, ok = Record{"Name": "Acme"}.Reference()
	assert.False(t, ok)

	_, ok = Record{"Id": ""}.Reference()
	assert.False(t, ok)

	_, ok = Record{"Id": 42}.Reference()
	assert.False(t, ok)
}

func TestFailedOutcomeHasEmptyReferences(t *testing.T) {
	out := Failed("REQUIRED_FIELD_MISSING")
	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"affectedReferences":[],"reason":"REQUIRED_FIELD_MISSING"}`, string(b))

	ok := Succeeded()
	assert.NotNil(t, ok.AffectedReferences)
	assert.True(t, ok.Success)
}

func TestCountFailed(t *testing.T) {
	outs := []Outcome{Succeeded("a"), Failed("x"), Succeeded("b"), Failed("y")}
	assert.Equal(t, 2, CountFailed(outs))
	assert.Equal(t, 0, CountFailed(nil))
}

func TestFromValueAndDecodeRows(t *testing.T) {
	rec, err := FromValue(account{ID: "a1", Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, Record{"Id": "a1", "Name": "Acme"}, rec)

	_, err = FromValue(42)
	assert.Error(t, err)

	recs, err := FromValues([]account{{Name: "One"}, {Name: "Two"}})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Two", recs[1]["Name"])

	nilRecs, err := FromValues[account](nil)
	require.NoError(t, err)
	assert.Nil(t, nilRecs)

	rows := []Row{{"Id": "a1", "Name": "Acme"}, {"Id": "a2", "Name": "Globex"}}
	accts, err := DecodeRows[account](rows)
	require.NoError(t, err)
	assert.Equal(t, []account{{ID: "a1", Name: "Acme"}, {ID: "a2", Name: "Globex"}}, accts)
}

func TestDescriptorJSONShape(t *testing.T) {
	var d Descriptor
	require.NoError(t, json.Unmarshal([]byte(`{"apiName":"Account","fields":{"Name":"Acme"}}`), &d))
	assert.Equal(t, "Account", d.ObjectType)
	assert.Equal(t, "Acme", d.Fields["Name"])
}
