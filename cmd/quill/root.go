package main

import (
	"fmt"

	"quill/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root quill command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quill",
		Short: "Terminal text editor driven by a controller process",
		Long: "quill is a small editor front-end. A controller process launches it,\n" +
			"writes commands to its stdin and reads events from its stdout,\n" +
			"one JSON envelope per line.",
		Version:       fmt.Sprintf("quill %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newEncodeCmd(),
		newDecodeCmd(),
		newJournalCmd(),
	)

	return cmd
}
