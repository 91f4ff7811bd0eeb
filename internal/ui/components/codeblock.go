// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/codebuddy/internal/prompt"
	"github.com/jeranaias/codebuddy/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK
// =============================================================================

// CodeBlock is one fenced code fragment of an answer.
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks returns the fenced code blocks of a markdown answer in
// order. An unterminated trailing block is included unless it is blank.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	var (
		blocks  []CodeBlock
		inBlock bool
		lang    string
		lines   []string
	)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, prompt.Fence) {
			if inBlock {
				blocks = append(blocks, CodeBlock{Language: lang, Code: strings.Join(lines, "\n")})
				lines = nil
				inBlock = false
				continue
			}
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, prompt.Fence))
			inBlock = true
			continue
		}
		if inBlock {
			lines = append(lines, line)
		}
	}

	if code := strings.Join(lines, "\n"); inBlock && strings.TrimSpace(code) != "" {
		blocks = append(blocks, CodeBlock{Language: lang, Code: code})
	}
	return blocks
}

// Render draws the block with line numbers and syntax highlighting inside
// frame, limited to maxWidth columns.
func (c CodeBlock) Render(frame lipgloss.Style, maxWidth int) string {
	code := strings.TrimRight(c.Code, "\n")
	highlighted := highlightCode(code, c.Language)

	lineNum := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	lines := strings.Split(highlighted, "\n")
	for i, line := range lines {
		lines[i] = lineNum.Render(strconv.Itoa(i+1)) + line
	}

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.OverlayDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language) + "\n"
	}

	if maxWidth < 24 {
		maxWidth = 24
	}
	return frame.
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(header + strings.Join(lines, "\n"))
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode applies terminal syntax highlighting, returning code
// unchanged when highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// DetectLanguage guesses the language of code, or returns "".
func DetectLanguage(code string) string {
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
