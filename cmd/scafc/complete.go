package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/rlch/complete"
)

var (
	ErrNoFile      = errors.New("no file specified")
	ErrNoPosition  = errors.New("exactly one of --offset or --pos is required")
	ErrBadPosition = errors.New("invalid position")
)

func completeCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Print the completions at a position in a scaf file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Usage:   "byte offset of the cursor",
			},
			&cli.StringFlag{
				Name:    "pos",
				Aliases: []string{"p"},
				Usage:   "cursor as LINE:COL, both 1-based, COL in bytes",
			},
			&cli.BoolFlag{
				Name:    "case-sensitive",
				Aliases: []string{"c"},
				Usage:   "match prefixes case-sensitively (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "log resolution decisions to stderr",
				Sources: cli.EnvVars("SCAFC_DEBUG"),
			},
		},
		Action: runComplete,
	}
}

func runComplete(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return ErrNoFile
	}

	if cmd.IsSet("offset") == cmd.IsSet("pos") {
		return ErrNoPosition
	}

	s, err := newSession(cmd.Args().First(), sessionOptions{
		caseSensitive: cmd.Bool("case-sensitive"),
		debug:         cmd.Bool("debug"),
	})
	if err != nil {
		return err
	}

	defer s.close()

	content, err := s.read()
	if err != nil {
		return err
	}

	offset := int(cmd.Int("offset"))
	if cmd.IsSet("pos") {
		offset, err = offsetOf(content, cmd.String("pos"))
		if err != nil {
			return err
		}
	}

	candidates, err := s.complete(ctx, content, offset)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}

	return printCandidates(w, candidates, isTerminal(w))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

// offsetOf converts a 1-based LINE:COL into a byte offset of content. COL may
// point one past the last byte of its line.
func offsetOf(content, pos string) (int, error) {
	lineText, colText, ok := strings.Cut(pos, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q, want LINE:COL", ErrBadPosition, pos)
	}

	line, err := strconv.Atoi(lineText)
	if err != nil || line < 1 {
		return 0, fmt.Errorf("%w: line %q", ErrBadPosition, lineText)
	}

	col, err := strconv.Atoi(colText)
	if err != nil || col < 1 {
		return 0, fmt.Errorf("%w: column %q", ErrBadPosition, colText)
	}

	start := 0

	for i := 1; i < line; i++ {
		nl := strings.IndexByte(content[start:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("%w: line %d is past the end of the file", ErrBadPosition, line)
		}

		start += nl + 1
	}

	width := strings.IndexByte(content[start:], '\n')
	if width < 0 {
		width = len(content) - start
	}

	if col-1 > width {
		return 0, fmt.Errorf("%w: column %d is past the end of line %d", ErrBadPosition, col, line)
	}

	return start + col - 1, nil
}

// printCandidates writes one candidate per line as label, detail and kind
// separated by tabs.
func printCandidates(w io.Writer, candidates []complete.Candidate, styled bool) error {
	st := defaultStyles()

	for _, c := range candidates {
		label, detail, kind := c.Label, c.Detail, string(c.Kind)
		if styled {
			label = st.Label.Render(label)
			detail = st.Detail.Render(detail)
			kind = st.Kind.Render(kind)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", label, detail, kind); err != nil {
			return err
		}
	}

	return nil
}
