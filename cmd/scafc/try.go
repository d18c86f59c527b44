package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/rlch/complete"
)

const maxVisible = 10

func tryCommand() *cli.Command {
	return &cli.Command{
		Name:      "try",
		Usage:     "Type after the end of a scaf file and watch completions update",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "case-sensitive",
				Aliases: []string{"c"},
				Usage:   "match prefixes case-sensitively (overrides config)",
			},
		},
		Action: runTry,
	}
}

func runTry(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return ErrNoFile
	}

	// Logs would draw over the TUI.
	s, err := newSession(cmd.Args().First(), sessionOptions{
		caseSensitive: cmd.Bool("case-sensitive"),
		quiet:         true,
	})
	if err != nil {
		return err
	}

	defer s.close()

	base, err := s.read()
	if err != nil {
		return err
	}

	model := newTryModel(ctx, s, base)

	// Without a watcher the prompt still works; it just misses edits on disk.
	if watcher, err := newWatcher(s.path); err == nil {
		defer func() { _ = watcher.Close() }()

		model.watcher = watcher
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))

	_, err = p.Run()
	if err != nil {
		return fmt.Errorf("running prompt: %w", err)
	}

	return nil
}

// candidatesMsg carries the completions computed for text.
type candidatesMsg struct {
	text       string
	candidates []complete.Candidate
	err        error
}

// tryModel is a prompt whose value is appended to base. Candidates are
// recomputed at the end of the combined text after every edit.
type tryModel struct {
	ctx     context.Context //nolint:containedctx // bubbletea commands run outside any call chain
	session *session
	base    string
	styles  *styles
	watcher *fsnotify.Watcher

	input      textinput.Model
	candidates []complete.Candidate
	selected   int
	err        error
}

func newTryModel(ctx context.Context, s *session, base string) *tryModel {
	input := textinput.New()
	input.Placeholder = "type scaf here"
	input.Prompt = "› "
	input.Focus()

	return &tryModel{
		ctx:     ctx,
		session: s,
		base:    base,
		styles:  defaultStyles(),
		input:   input,
	}
}

func (m *tryModel) text() string {
	return m.base + m.input.Value()
}

func (m *tryModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.completeCmd(), m.watch())
}

func (m *tryModel) watch() tea.Cmd {
	if m.watcher == nil {
		return nil
	}

	return waitForChange(m.watcher)
}

func (m *tryModel) completeCmd() tea.Cmd {
	text := m.text()

	return func() tea.Msg {
		candidates, err := m.session.complete(m.ctx, text, len(text))

		return candidatesMsg{text: text, candidates: candidates, err: err}
	}
}

func (m *tryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case candidatesMsg:
		// Drop results for text that has since changed.
		if msg.text != m.text() {
			return m, nil
		}

		m.candidates, m.err = msg.candidates, msg.err
		m.selected = 0

		return m, nil

	case fileChangedMsg:
		// Imports of the file may live next to it.
		m.session.loader.Invalidate(msg.path)

		if filepath.Clean(msg.path) == m.session.path {
			if base, err := m.session.read(); err == nil && base != m.base {
				m.base = base
				m.clearCandidates()
			}
		}

		return m, tea.Batch(m.completeCmd(), m.watch())

	case watchErrMsg:
		m.err = msg.err

		return m, m.watch()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}

			return m, nil
		case tea.KeyDown:
			if m.selected < len(m.candidates)-1 {
				m.selected++
			}

			return m, nil
		case tea.KeyTab, tea.KeyEnter:
			if m.accept() {
				return m, m.completeCmd()
			}

			return m, nil
		}
	}

	before := m.input.Value()

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	if m.input.Value() != before {
		m.clearCandidates()

		return m, tea.Batch(cmd, m.completeCmd())
	}

	return m, cmd
}

// accept applies the selected candidate to the input. Candidates without a
// replace range overwrite the identifier before the cursor.
func (m *tryModel) accept() bool {
	if m.selected >= len(m.candidates) {
		return false
	}

	c := m.candidates[m.selected]
	text := m.text()

	r := complete.TextRange{Start: len(text) - len(complete.IdentSuffix(text)), End: len(text)}
	if c.Replace != nil {
		r = *c.Replace
	}

	if r.Start < len(m.base) || r.End > len(text) {
		return false
	}

	edited := text[:r.Start] + c.InsertText() + text[r.End:]
	m.input.SetValue(edited[len(m.base):])
	m.input.CursorEnd()
	m.clearCandidates()

	return true
}

// clearCandidates drops candidates computed for an older text; their
// ranges do not apply to the current one.
func (m *tryModel) clearCandidates() {
	m.candidates = nil
	m.selected = 0
}

func (m *tryModel) View() string {
	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	}

	for i, c := range m.candidates {
		if i == maxVisible {
			fmt.Fprintf(&b, "  %s\n", m.styles.Help.Render(fmt.Sprintf("… %d more", len(m.candidates)-maxVisible)))

			break
		}

		pointer, label := " ", m.styles.Label.Render(c.Label)
		if i == m.selected {
			pointer, label = m.styles.Selected.Render(m.styles.SymbolPointer), m.styles.Selected.Render(c.Label)
		}

		fmt.Fprintf(&b, "%s %s  %s %s\n", pointer, label, m.styles.Detail.Render(c.Detail), m.styles.Kind.Render(string(c.Kind)))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("tab/enter accept • ↑/↓ select • esc quit"))
	b.WriteString("\n")

	return b.String()
}
