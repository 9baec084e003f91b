// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the recordgate CLI.
// It submits bulk record mutations and queries to a record store backend.
package main

import (
	"recordgate/cli/cmd"
)

func main() {
	cmd.Execute()
}
