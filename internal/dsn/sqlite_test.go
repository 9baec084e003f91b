// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import "testing"

func TestSQLiteResolver(t *testing.T) {
	tests := []struct {
		dsn        string
		wantPath   string
		normalized string
		memory     bool
	}{
		{"sqlite:///var/lib/recordgate/records.db", "/var/lib/recordgate/records.db", "file:/var/lib/recordgate/records.db?_foreign_keys=on", false},
		{"sqlite://./records.db?_busy_timeout=5000", "./records.db", "file:./records.db?_busy_timeout=5000&_foreign_keys=on", false},
		{"sqlite::memory:", ":memory:", "file::memory:?_foreign_keys=on", true},
		{"file:shared.db?mode=memory&cache=shared", "shared.db", "file:shared.db?_foreign_keys=on&cache=shared&mode=memory", true},
	}

	r := NewSQLiteResolver()
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			info, err := r.Parse(tt.dsn)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if info.Database != tt.wantPath {
				t.Errorf("Database = %q, want %q", info.Database, tt.wantPath)
			}
			if info.IsMemory() != tt.memory {
				t.Errorf("IsMemory() = %v, want %v", info.IsMemory(), tt.memory)
			}
			got, err := r.Normalize(info)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.normalized {
				t.Errorf("Normalize() = %q, want %q", got, tt.normalized)
			}
		})
	}

	if _, err := r.Parse("sqlite://"); err == nil {
		t.Error("expected error for missing path")
	}
}
