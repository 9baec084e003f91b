// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"recordgate/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Mask(err.Error())
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// FormatBackendError renders an operation failure for the terminal: a title
// per error kind, a short explanation and the masked technical details.
func FormatBackendError(operation string, err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder

	switch errors.KindOf(err) {
	case errors.InvalidArgument:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Invalid request"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("The %s request was rejected before reaching the backend.\n", operation))
		b.WriteString("Nothing was changed.\n")
	case errors.BackendUnavailable:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Backend unavailable"))
		b.WriteString("\n\n")
		b.WriteString("The record store could not be reached. This usually means:\n")
		b.WriteString("  • The database or gateway server is down\n")
		b.WriteString("  • The connection settings are wrong\n")
		b.WriteString("  • The call timed out\n")
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Check 'recordgate dbinfo' and try again"))
		b.WriteString("\n")
	case errors.BackendRejected:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Backend rejected the request"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("The %s call was refused by the record store.\n", operation))
		b.WriteString("Common causes are a malformed where/order clause, an unknown object type\n")
		b.WriteString("or missing permissions.\n")
	default:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(operation + " failed"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	return b.String()
}
