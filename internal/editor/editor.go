// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
)

// Editor is the editor surface the panel reads from and writes to.
type Editor interface {
	// Selection returns the current selection; ok is false when nothing is selected.
	Selection() (text string, ok bool)
	// Insert places code at the cursor.
	Insert(code string) error
}

// ErrNoTarget indicates there is nowhere to insert code.
var ErrNoTarget = errors.New("no active editor to insert into")

// =============================================================================
// STATIC EDITOR
// =============================================================================

// Static serves a fixed selection and copies inserted code to the clipboard.
type Static struct {
	selection string
	copy      func(string) error
}

// NewStatic reads the selection from path. lines is either empty (whole file),
// a single line "N", or an inclusive range "N-M"; lines are 1-based.
// An empty path yields an editor with no selection.
func NewStatic(path, lines string) (*Static, error) {
	s := NewStaticText("")
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selection file: %w", err)
	}
	sel, err := sliceLines(string(data), lines)
	if err != nil {
		return nil, err
	}
	s.selection = sel
	return s, nil
}

// NewStaticText creates a Static editor over an in-memory selection.
func NewStaticText(selection string) *Static {
	s := &Static{selection: selection}
	if !clipboard.Unsupported {
		s.copy = clipboard.WriteAll
	}
	return s
}

// Selection returns the fixed selection.
func (s *Static) Selection() (string, bool) {
	return s.selection, s.selection != ""
}

// Insert copies code to the system clipboard for pasting at the cursor.
func (s *Static) Insert(code string) error {
	if s.copy == nil {
		return ErrNoTarget
	}
	if err := s.copy(code); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// sliceLines returns the requested 1-based inclusive line range of text.
func sliceLines(text, rng string) (string, error) {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return text, nil
	}

	startStr, endStr, isRange := strings.Cut(rng, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return "", fmt.Errorf("invalid line range %q", rng)
	}
	end := start
	if isRange {
		end, err = strconv.Atoi(strings.TrimSpace(endStr))
		if err != nil {
			return "", fmt.Errorf("invalid line range %q", rng)
		}
	}
	if start < 1 || end < start {
		return "", fmt.Errorf("invalid line range %q", rng)
	}

	lines := strings.Split(text, "\n")
	if start > len(lines) {
		return "", fmt.Errorf("line range %q is past the end of the file (%d lines)", rng, len(lines))
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// =============================================================================
// SHARED EDITOR
// =============================================================================

// Shared holds a selection pushed by a remote editor and forwards insertions
// to a callback. It is safe for concurrent use.
type Shared struct {
	mu        sync.RWMutex
	selection string
	insert    func(string) error
}

// NewShared creates a Shared editor forwarding insertions to insert.
func NewShared(insert func(string) error) *Shared {
	return &Shared{insert: insert}
}

// SetSelection replaces the current selection.
func (s *Shared) SetSelection(text string) {
	s.mu.Lock()
	s.selection = text
	s.mu.Unlock()
}

// Selection returns the latest pushed selection.
func (s *Shared) Selection() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection, s.selection != ""
}

// Insert forwards code to the remote editor.
func (s *Shared) Insert(code string) error {
	if s.insert == nil {
		return ErrNoTarget
	}
	return s.insert(code)
}
