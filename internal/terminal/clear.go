// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides prompts and small terminal helpers.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Width returns the width of stdout, or 80 when it is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// linesUsed returns how many rows textLength characters occupy at width,
// plus the row the cursor moved to after Enter.
func linesUsed(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	lines := (textLength + width - 1) / width
	if lines < 1 {
		lines = 1
	}
	return lines + 1
}

// ClearPreviousLines erases a prompt and its answer (textLength characters)
// from w.
func ClearPreviousLines(w io.Writer, textLength int) {
	n := linesUsed(textLength, Width())
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
