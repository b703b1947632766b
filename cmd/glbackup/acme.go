package main

import (
	"path"

	"9fans.net/go/acme"
)

// logWindow is an acme window showing progress messages.
type logWindow struct {
	*acme.Win
}

func openLogWindow(tracker, project string) (*logWindow, error) {
	win, err := acme.New()
	if err != nil {
		return nil, err
	}
	if err := win.Name("%s", path.Join("/", tracker, project, "backup")); err != nil {
		win.Ctl("delete")
		return nil, err
	}
	win.Ctl("dirty")
	return &logWindow{win}, nil
}

// Write appends p to the window body.
func (w *logWindow) Write(p []byte) (int, error) {
	return w.Win.Write("body", p)
}
