package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quill/pkg/journal"
	"quill/pkg/protocol"
)

// journalFlags holds command-line flags for the journal command.
type journalFlags struct {
	path      string
	limit     int
	session   string
	direction string
	tag       string
}

// newJournalCmd creates the "quill journal" subcommand.
func newJournalCmd() *cobra.Command {
	var flags journalFlags

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded bridge traffic",
		Long:  "Lists envelopes recorded by `quill run` when journal.enabled is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.path
			if path == "" {
				paths, err := ResolvePaths()
				if err != nil {
					return fmt.Errorf("resolve paths: %w", err)
				}
				path = paths.JournalPath
			}

			j, err := journal.OpenReadOnly(path)
			if err != nil {
				return err
			}
			defer j.Close()

			q := journal.Query{
				Limit:     flags.limit,
				Session:   flags.session,
				Direction: protocol.Direction(flags.direction),
				Tag:       protocol.Tag(flags.tag),
			}
			return printJournal(cmd.Context(), j, q, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.path, "path", "", "journal database (default $QUILL_HOME/journal.db)")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "number of most recent entries to show (0 = all)")
	cmd.Flags().StringVar(&flags.session, "session", "", "only show one session")
	cmd.Flags().StringVar(&flags.direction, "direction", "", "only show in or out")
	cmd.Flags().StringVar(&flags.tag, "tag", "", "only show one tag")

	return cmd
}

func printJournal(ctx context.Context, j *journal.Journal, q journal.Query, w io.Writer) error {
	entries, err := j.Recent(ctx, q)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no entries")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSESSION\tDIR\tSERIAL\tTAG\tDATA")
	for _, e := range entries {
		session := e.Session
		if len(session) > 8 {
			session = session[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Format("15:04:05.000"), session, e.Direction,
			e.Envelope.Serial, e.Envelope.Tag, formatData(e.Envelope.Data))
	}
	return tw.Flush()
}
