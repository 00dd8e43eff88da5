// Package testschema provides the opcode table used by package tests.
package testschema

import (
	_ "embed"
	"testing"

	"github.com/pmdscript/ssb/schema"
)

//go:embed schema.toml
var data []byte

// Data returns the raw TOML table.
func Data() []byte {
	return data
}

// Load parses the test table, failing the test on error.
func Load(t testing.TB) *schema.Static {
	t.Helper()
	s, err := schema.Parse(data)
	if err != nil {
		t.Fatalf("test schema: %v", err)
	}
	return s
}
