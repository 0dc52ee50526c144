// ABOUTME: File-backed cookie jar so CLI sessions survive between runs
// ABOUTME: Wraps the in-memory jar and snapshots it to a JSON file on write

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
)

// fileJar is a browser.Document whose contents persist to a JSON file.
// Cookie attributes are applied by the in-memory jar; only the surviving
// name/value pairs are written to disk.
type fileJar struct {
	path string
	doc  *browser.FakeDocument
}

// openFileJar loads the jar at path, creating parent directories as
// needed. A missing file is an empty jar.
func openFileJar(path string) (*fileJar, error) {
	j := &fileJar{path: path, doc: browser.NewFakeDocument()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cookie file: %w", err)
	}

	var pairs map[string]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		// A corrupt jar means a fresh session, not a dead CLI.
		return j, nil
	}
	for name, value := range pairs {
		j.doc.SetCookie(name + "=" + value)
	}
	return j, nil
}

func (j *fileJar) Cookies() string {
	return j.doc.Cookies()
}

func (j *fileJar) SetCookie(attrs string) {
	j.doc.SetCookie(attrs)
	j.save()
}

func (j *fileJar) save() {
	pairs := make(map[string]string)
	for _, part := range strings.Split(j.doc.Cookies(), "; ") {
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		pairs[name] = value
	}

	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return
	}
	// Tokens live in here; keep it owner-only.
	_ = os.WriteFile(j.path, data, 0600)
}
