// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCase renders a snake_case field name ("batch_id") as display text
// ("Batch Id"), the same golang.org/x/text/cases title-casing the
// teacher's own example CLIs apply to Slurm field names.
func titleCase(field string) string {
	words := strings.Split(field, "_")
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encoding output:", err)
	}
}
