// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"

	"github.com/jeranaias/codebuddy/internal/cloud"
)

// SystemPrompt is the system instruction sent with every question.
const SystemPrompt = "You are Code-Buddy, a large language model that acts as a coding assistant trained to focus on programming languages, syntax,  optimization, and security. Answer as concisely as possible for each response, keeping the list items to a minimum. Always inspect any code for security vulnerabilities and explain any risks.  Prioritize efficiency and elegance in your recommendations.\nUser: "

// Placeholder is the assistant acknowledgement that closes every exchange
// and the text shown while a reply is pending.
const Placeholder = "..."

// Fence is the markdown code-fence delimiter.
const Fence = "```"

// Compose builds the three-message exchange for a question.
//
// A non-empty selection is placed on the line after the question, fenced
// when wrap is set. The result is always [system, user, assistant "..."].
func Compose(system, question, selection string, wrap bool) []cloud.ChatMessage {
	user := question
	if selection != "" {
		if wrap {
			selection = Fence + "\n" + selection + "\n" + Fence
		}
		user = question + "\n" + selection
	}

	return []cloud.ChatMessage{
		cloud.NewSystemMessage(strings.TrimSpace(system)),
		cloud.NewUserMessage(strings.TrimSpace(user)),
		cloud.NewAssistantMessage(Placeholder),
	}
}
