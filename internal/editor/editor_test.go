// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewStatic_Lines(t *testing.T) {
	path := writeFile(t, "one\ntwo\nthree\nfour")

	tests := []struct {
		lines   string
		want    string
		wantErr bool
	}{
		{"", "one\ntwo\nthree\nfour", false},
		{"2", "two", false},
		{"2-3", "two\nthree", false},
		{"3-99", "three\nfour", false},
		{"5", "", true},
		{"0", "", true},
		{"3-2", "", true},
		{"a-b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.lines, func(t *testing.T) {
			ed, err := NewStatic(path, tt.lines)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, ok := ed.Selection()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewStatic_NoFile(t *testing.T) {
	ed, err := NewStatic("", "")
	require.NoError(t, err)
	_, ok := ed.Selection()
	assert.False(t, ok)

	_, err = NewStatic(filepath.Join(t.TempDir(), "missing.go"), "")
	assert.Error(t, err)
}

func TestStatic_InsertUsesCopy(t *testing.T) {
	var copied string
	ed := NewStaticText("sel")
	ed.copy = func(s string) error {
		copied = s
		return nil
	}

	require.NoError(t, ed.Insert("fmt.Println()"))
	assert.Equal(t, "fmt.Println()", copied)

	ed.copy = func(string) error { return errors.New("no clipboard") }
	assert.Error(t, ed.Insert("x"))
}

func TestShared(t *testing.T) {
	var inserted []string
	ed := NewShared(func(code string) error {
		inserted = append(inserted, code)
		return nil
	})

	_, ok := ed.Selection()
	assert.False(t, ok)

	ed.SetSelection("func main() {}")
	sel, ok := ed.Selection()
	assert.True(t, ok)
	assert.Equal(t, "func main() {}", sel)

	require.NoError(t, ed.Insert("x := 1"))
	assert.Equal(t, []string{"x := 1"}, inserted)

	assert.ErrorIs(t, NewShared(nil).Insert("x"), ErrNoTarget)
}
