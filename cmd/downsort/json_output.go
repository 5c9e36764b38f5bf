package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON is the --json output path shared by the rules and daemon
// subcommands. Indented so piped output stays readable without jq.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
