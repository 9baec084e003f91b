package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordgate/cli/internal/batch"
)

func TestToColumnValue(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dialect Dialect
		typ     FieldType
		in      any
		want    any
		wantErr bool
	}{
		{"nil stays nil", Postgres, TypeInteger, nil, nil, false},
		{"number as text", Postgres, TypeText, float64(7), "7", false},
		{"object as text", Postgres, TypeText, map[string]any{}, nil, true},
		{"whole float to integer", Postgres, TypeInteger, float64(42), int64(42), false},
		{"fractional float to integer", Postgres, TypeInteger, 4.2, nil, true},
		{"json number to integer", Postgres, TypeInteger, json.Number("9"), int64(9), false},
		{"numeric string to integer", SQLite, TypeInteger, " 12 ", int64(12), false},
		{"int to real", SQLite, TypeReal, 3, float64(3), false},
		{"string bool", SQLite, TypeBoolean, "true", true, false},
		{"number as bool", SQLite, TypeBoolean, float64(1), nil, true},
		{"timestamp native on postgres", Postgres, TypeTimestamp, "2025-03-01T10:00:00Z", ts, false},
		{"timestamp text on sqlite", SQLite, TypeTimestamp, "2025-03-01 10:00:00", "2025-03-01T10:00:00Z", false},
		{"bad timestamp", SQLite, TypeTimestamp, "yesterday", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dialect.toColumnValue(tt.typ, tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromColumnValue(t *testing.T) {
	id := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}

	assert.Equal(t, "12345678-9abc-def0-1234-56789abcdef0", fromColumnValue("", id))
	assert.Equal(t, "Acme Corporation", fromColumnValue(TypeText, []byte("Acme Corporation")))
	assert.Equal(t, true, fromColumnValue(TypeBoolean, int64(1)))
	assert.Equal(t, int64(5), fromColumnValue(TypeInteger, int32(5)))
	assert.Equal(t, "2025-03-01T10:00:00Z",
		fromColumnValue(TypeTimestamp, time.Date(2025, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600))))
	assert.Nil(t, fromColumnValue(TypeText, nil))
}

func TestSelectStatement(t *testing.T) {
	obj := newObject(ObjectType{Name: "Account", Fields: []Field{{Name: "Name", Type: TypeText}}})

	pg := New(nil, Postgres)
	stmt, args := pg.SelectStatement(obj, batch.QuerySpec{
		APIName:     "Account",
		Fields:      []string{"Id", "Name"},
		WhereClause: "Name LIKE 'A%'",
		OrderBy:     "Name",
		QueryLimit:  batch.Int(10),
	})
	assert.Equal(t, `SELECT Id, Name FROM "account" WHERE Name LIKE 'A%' ORDER BY Name LIMIT $1`, stmt)
	assert.Equal(t, []any{10}, args)

	lite := New(nil, SQLite)
	stmt, args = lite.SelectStatement(obj, batch.QuerySpec{APIName: "Account", Fields: []string{"Id"}, QuerySelect: "Id, Name, CreatedDate"})
	assert.Equal(t, `SELECT Id, Name, CreatedDate FROM "account"`, stmt)
	assert.Empty(t, args)

	stmt, _ = lite.SelectStatement(obj, batch.QuerySpec{APIName: "Account"})
	assert.Equal(t, `SELECT * FROM "account"`, stmt)
}

func TestObjectRowKey(t *testing.T) {
	obj := newObject(ObjectType{Name: "Account", Fields: []Field{{Name: "Ext__c", Type: TypeText}, {Name: "Active", Type: TypeBoolean}}})

	key, typ := obj.RowKey("id")
	assert.Equal(t, "Id", key)
	assert.Equal(t, TypeText, typ)

	key, typ = obj.RowKey("ext__c")
	assert.Equal(t, "Ext__c", key)
	assert.Equal(t, TypeText, typ)

	key, typ = obj.RowKey("ACTIVE")
	assert.Equal(t, "Active", key)
	assert.Equal(t, TypeBoolean, typ)

	key, typ = obj.RowKey("total")
	assert.Equal(t, "total", key)
	assert.Equal(t, FieldType(""), typ)
}
