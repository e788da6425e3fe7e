package chatbot

import (
	"google.golang.org/genai"

	"github.com/planit/planit/internal/thread"
)

// AssembleHistory converts stored thread messages into model contents.
// Only user and assistant messages are replayed; tool and system
// entries exist for auditability, not for the model. When the filtered
// history exceeds window, only the most recent window messages are
// kept. A window of zero or less means no limit.
func AssembleHistory(messages []thread.Message, window int) []*genai.Content {
	filtered := make([]thread.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == thread.RoleUser || m.Role == thread.RoleAssistant {
			filtered = append(filtered, m)
		}
	}

	if window > 0 && len(filtered) > window {
		filtered = filtered[len(filtered)-window:]
	}

	contents := make([]*genai.Content, 0, len(filtered))
	for _, m := range filtered {
		role := genai.Role(genai.RoleUser)
		if m.Role == thread.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}
