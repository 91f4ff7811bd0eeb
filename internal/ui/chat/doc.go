// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the terminal panel of codebuddy.

The panel is a thin Bubble Tea front end over a panel controller: key
presses become inbound messages and outbox updates are rendered. It holds
no chat logic of its own.

# Key Components

## Model (model.go)

Prompt input, markdown answer pane (glamour) and spinner.

## Update Loop (update.go)

  - enter submits the prompt, or pastes the picked code block
  - tab / shift+tab pick a code block of the answer (chroma highlighted)
  - /explain, /refactor, /findProblems, /documentation, /writetests run the
    prompt prefix commands; /clear, /reconnect and /quit are local

## View Rendering (view.go)

Header, answer pane or code block picker, state badge and token counter.

# Usage

	m := chat.New(ctx, ctrl, styles.NewTheme(), version)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
