package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/pkg/protocol"
)

// newEncodeCmd creates the "quill encode" subcommand: a host-side helper
// that prints one envelope line.
func newEncodeCmd() *cobra.Command {
	var (
		serial       int64
		allowUnknown bool
	)

	cmd := &cobra.Command{
		Use:   "encode <tag> [data...]",
		Short: "Print one envelope line",
		Example: "  quill encode SetAvailableFilesCommand a.txt b.txt\n" +
			"  quill encode OpenFileCommand notes.txt --serial 3",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := protocol.Tag(args[0])
			if !tag.Known() && !allowUnknown {
				return fmt.Errorf("unknown tag %q (use --allow-unknown to send it anyway)", tag)
			}
			env := protocol.New(tag, serial, args[1:]...)
			// Reject commands the dispatcher would refuse.
			if _, err := protocol.ParseCommand(env); err != nil {
				return err
			}
			_, err := cmd.OutOrStdout().Write(protocol.Encode(env))
			return err
		},
	}

	cmd.Flags().Int64Var(&serial, "serial", 0, "serial number to stamp on the envelope")
	cmd.Flags().BoolVar(&allowUnknown, "allow-unknown", false, "accept tags outside the known set")

	return cmd
}
