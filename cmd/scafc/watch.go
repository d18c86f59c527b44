package main

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// fileChangedMsg reports a scaf file in the watched directory changed on disk.
type fileChangedMsg struct {
	path string
}

type watchErrMsg struct {
	err error
}

// newWatcher watches the directory of path. Editors often save by renaming a
// temporary file, which a watch on the file itself would miss.
func newWatcher(path string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()

		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return watcher, nil
}

// waitForChange blocks until the next relevant event. The model re-issues it
// after every message it returns.
func waitForChange(watcher *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}

				if filepath.Ext(event.Name) != ".scaf" {
					continue
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					return fileChangedMsg{path: event.Name}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}

				return watchErrMsg{err: err}
			}
		}
	}
}
