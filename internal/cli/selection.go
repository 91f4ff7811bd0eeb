// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/codebuddy/internal/editor"
	"github.com/jeranaias/codebuddy/internal/panel"
	"github.com/jeranaias/codebuddy/internal/prompt"
)

// =============================================================================
// SELECTION FLAGS
// =============================================================================

// selectionFlags choose the code the assistant is asked about.
type selectionFlags struct {
	file  string
	lines string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "file holding the selected code")
	cmd.Flags().StringVarP(&f.lines, "lines", "l", "", "line or range of --file to select (e.g. 12 or 12-40)")
}

// editor builds the selection source. Without --file, piped stdin becomes the
// selection when readStdin is set.
func (f *selectionFlags) editor(cmd *cobra.Command, readStdin bool) (editor.Editor, error) {
	if f.file != "" {
		return editor.NewStatic(f.file, f.lines)
	}
	if f.lines != "" {
		return nil, fmt.Errorf("--lines requires --file")
	}
	if !readStdin || inputIsTerminal(cmd.InOrStdin()) {
		return editor.NewStaticText(""), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read selection from stdin: %w", err)
	}
	return editor.NewStaticText(strings.TrimRight(string(data), "\n")), nil
}

func inputIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// OUTBOX DRAINING
// =============================================================================

// drain returns every message currently queued in the outbox without blocking.
func drain(outbox <-chan panel.OutboundMessage) []panel.OutboundMessage {
	var msgs []panel.OutboundMessage
	for {
		select {
		case msg, ok := <-outbox:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// transcript is the line-oriented view of a batch of panel messages.
type transcript struct {
	Answer  string
	Tokens  int64
	Counted bool
}

// collect folds messages into the last shown answer and token count.
func collect(msgs []panel.OutboundMessage) transcript {
	var t transcript
	for _, msg := range msgs {
		switch msg.Type {
		case panel.TypeAddResponse:
			if text := msg.Text(); text != prompt.Placeholder {
				t.Answer = text
			}
		case panel.TypeClearResponse:
			t.Answer = ""
		case panel.TypeSetTokenCount:
			t.Tokens = msg.Count()
			t.Counted = true
		}
	}
	return t
}

// isErrorBlock reports whether text is a rendered error block rather than an
// answer that merely quotes the marker.
func isErrorBlock(text string) bool {
	return strings.HasPrefix(text, prompt.Separator+prompt.ErrorMarker)
}

// printMessages writes panel messages for a line-oriented terminal. asked is
// the question the user just typed; its echo is suppressed.
func printMessages(out, errOut io.Writer, msgs []panel.OutboundMessage, asked string) {
	for _, msg := range msgs {
		switch msg.Type {
		case panel.TypeAddResponse:
			text := msg.Text()
			if text == prompt.Placeholder {
				continue
			}
			if isErrorBlock(text) {
				fmt.Fprintln(out, ErrorStyle.Render(strings.TrimSpace(text)))
				continue
			}
			fmt.Fprintln(out, strings.TrimRight(renderMarkdown(out, text), "\n"))
		case panel.TypeSetTokenCount:
			fmt.Fprintln(errOut, MutedStyle.Render(fmt.Sprintf("tokens: %d", msg.Count())))
		case panel.TypeSetPrompt:
			if text := msg.Text(); text != "" && text != asked {
				fmt.Fprintln(errOut, MutedStyle.Render(text))
			}
		case panel.TypeInsertSnippet:
			fmt.Fprintln(errOut, MutedStyle.Render("snippet copied"))
		}
	}
}
