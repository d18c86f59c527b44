package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, base string) *tryModel {
	t.Helper()

	path := writeFile(t, t.TempDir(), "suite.scaf", base)

	s, err := newSession(path, sessionOptions{quiet: true})
	require.NoError(t, err)
	t.Cleanup(s.close)

	return newTryModel(context.Background(), s, base)
}

func typeRunes(m *tryModel, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func labels(m *tryModel) []string {
	out := make([]string, len(m.candidates))
	for i, c := range m.candidates {
		out[i] = c.Label
	}

	return out
}

func TestTryModel_CompletesAsYouType(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "")

	typeRunes(m, "qu")
	require.Equal(t, "qu", m.input.Value())

	m.Update(m.completeCmd()())
	assert.Equal(t, []string{"query"}, labels(m))
	assert.Contains(t, m.View(), "query")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, "query", m.input.Value())
}

func TestTryModel_AppendsToFile(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "query GetUser `MATCH (u) RETURN u`\n")

	typeRunes(m, "Get")
	m.Update(m.completeCmd()())
	assert.Equal(t, []string{"GetUser"}, labels(m))

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "GetUser", m.input.Value())
}

func TestTryModel_AcceptTwiceBeforeRecompute(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "query GetUser `MATCH (u) RETURN u`\n")

	typeRunes(m, "Ge")
	m.Update(m.completeCmd()())
	require.Equal(t, []string{"GetUser"}, labels(m))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, "GetUser", m.input.Value())
	assert.Empty(t, m.candidates)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.Equal(t, "GetUser", m.input.Value())
}

func TestTryModel_TypeThenAcceptBeforeRecompute(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "query GetUser `MATCH (u) RETURN u`\n")

	typeRunes(m, "Ge")
	m.Update(m.completeCmd()())
	require.Equal(t, []string{"GetUser"}, labels(m))

	typeRunes(m, "tU")
	assert.Empty(t, m.candidates)
	assert.Equal(t, 0, m.selected)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "GetU", m.input.Value())

	m.Update(m.completeCmd()())
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "GetUser", m.input.Value())
}

func TestTryModel_DropsStaleResults(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "")

	typeRunes(m, "q")
	stale := m.completeCmd()()

	typeRunes(m, "u")
	m.Update(stale)
	assert.Empty(t, m.candidates)

	m.Update(m.completeCmd()())
	assert.Equal(t, []string{"query"}, labels(m))
}

func TestTryModel_Selection(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "")
	m.Update(m.completeCmd()())
	require.Greater(t, len(m.candidates), 1)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.selected)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.selected)

	second := m.candidates[1].Label

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, second, m.input.Value())
}

func TestTryModel_Quit(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRunTry_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := run(t, "try", filepath.Join(t.TempDir(), "missing.scaf"))
	require.Error(t, err)
}

func TestTryModel_ReloadsChangedFile(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "")
	typeRunes(m, "Get")

	m.Update(m.completeCmd()())
	assert.Empty(t, m.candidates)

	require.NoError(t, os.WriteFile(m.session.path, []byte("query GetUser `MATCH (u) RETURN u`\n"), 0o600))

	_, cmd := m.Update(fileChangedMsg{path: m.session.path})
	require.NotNil(t, cmd)
	assert.Equal(t, "query GetUser `MATCH (u) RETURN u`\n", m.base)

	m.Update(m.completeCmd()())
	assert.Equal(t, []string{"GetUser"}, labels(m))
}

func TestTryModel_ReloadsChangedImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fixtures := writeFile(t, dir, "fixtures.scaf", "query CreateUser `CREATE (:User)`\n")
	base := "import fixtures \"./fixtures\"\n"
	path := writeFile(t, dir, "suite.scaf", base)

	s, err := newSession(path, sessionOptions{quiet: true})
	require.NoError(t, err)
	t.Cleanup(s.close)

	m := newTryModel(context.Background(), s, base)
	typeRunes(m, "setup fixtures.")

	m.Update(m.completeCmd()())
	require.Contains(t, labels(m), "CreateUser")

	require.NoError(t, os.WriteFile(fixtures, []byte("query DeleteAll `MATCH (n) DELETE n`\n"), 0o600))
	m.Update(fileChangedMsg{path: fixtures})

	m.Update(m.completeCmd()())
	assert.Contains(t, labels(m), "DeleteAll")
	assert.NotContains(t, labels(m), "CreateUser")
}

func TestWaitForChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "suite.scaf", "")

	watcher, err := newWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Close() })

	msgs := make(chan tea.Msg, 1)
	go func() { msgs <- waitForChange(watcher)() }()

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "suite.scaf", "query Q `Q`\n")

	select {
	case msg := <-msgs:
		changed, ok := msg.(fileChangedMsg)
		require.True(t, ok, "got %#v", msg)
		assert.Equal(t, path, changed.path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
