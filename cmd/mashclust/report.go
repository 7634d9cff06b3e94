package main

import (
	"errors"
	"fmt"
	"io"

	mcerrors "mashclust/internal/errors"
)

// printError writes err and, for coded errors, its suggested fixes.
func printError(w io.Writer, err error) {
	var me *mcerrors.MashclustError
	if !errors.As(err, &me) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %v\n", me)
	fixes := me.SuggestedFixes
	if len(fixes) == 0 {
		fixes = mcerrors.GetSuggestedFixes(me.Code)
	}
	for _, fix := range fixes {
		fmt.Fprintln(w, "  "+describeFix(fix))
	}
}

func describeFix(fix mcerrors.FixAction) string {
	switch fix.Type {
	case mcerrors.RunCommand:
		if fix.Description != "" {
			return fmt.Sprintf("Run: %s (%s)", fix.Command, fix.Description)
		}
		return "Run: " + fix.Command
	case mcerrors.InstallTool:
		if fix.URL != "" {
			return fmt.Sprintf("Install %s: %s (%s)", fix.Tool, fix.Description, fix.URL)
		}
		return fmt.Sprintf("Install %s: %s", fix.Tool, fix.Description)
	default:
		if fix.URL != "" {
			return fix.Description + " (" + fix.URL + ")"
		}
		return fix.Description
	}
}
