package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quill/pkg/bridge"
	"quill/pkg/protocol"
)

// newDecodeCmd creates the "quill decode" subcommand.
func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Validate and pretty-print envelope lines",
		Long:  "Reads envelope lines from file, or stdin when no file is given.\nStops at the first malformed line.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}
			return decodeLines(in, cmd.OutOrStdout())
		},
	}
}

// decodeLines prints one row per envelope. The first malformed line is
// returned as an error naming its line number.
func decodeLines(r io.Reader, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tTAG\tDATA")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), bridge.DefaultMaxLineBytes)
	n := 0
	for scanner.Scan() {
		n++
		env, err := protocol.Decode(scanner.Bytes())
		if err != nil {
			_ = tw.Flush()
			return fmt.Errorf("line %d: %w", n, err)
		}
		note := ""
		if !env.Tag.Known() {
			note = " (unknown tag)"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\n", env.Serial, env.Tag, note, formatData(env.Data))
	}
	if err := scanner.Err(); err != nil {
		_ = tw.Flush()
		return fmt.Errorf("read line %d: %w", n+1, err)
	}
	return tw.Flush()
}

// formatData quotes each entry so embedded whitespace stays visible.
func formatData(data []string) string {
	quoted := make([]string, len(data))
	for i, d := range data {
		quoted[i] = fmt.Sprintf("%q", d)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}
