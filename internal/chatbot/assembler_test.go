package chatbot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/planit/planit/internal/thread"
)

func TestAssembleHistoryFiltersRoles(t *testing.T) {
	name := "get_task_stats"
	messages := []thread.Message{
		{Role: thread.RoleSystem, Content: "system note"},
		{Role: thread.RoleUser, Content: "hi"},
		{Role: thread.RoleTool, Content: `{"totalTasks":0}`, ToolName: &name},
		{Role: thread.RoleAssistant, Content: "hello!"},
	}

	contents := AssembleHistory(messages, 0)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "hi", contents[0].Parts[0].Text)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "hello!", contents[1].Parts[0].Text)
}

func TestAssembleHistoryWindowKeepsNewest(t *testing.T) {
	var messages []thread.Message
	for i := 0; i < 10; i++ {
		messages = append(messages, thread.Message{
			Role:    thread.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	contents := AssembleHistory(messages, 4)
	require.Len(t, contents, 4)
	assert.Equal(t, "message 6", contents[0].Parts[0].Text)
	assert.Equal(t, "message 9", contents[3].Parts[0].Text)
}

func TestAssembleHistoryWindowAppliesAfterFiltering(t *testing.T) {
	// Tool messages must not eat into the window.
	messages := []thread.Message{
		{Role: thread.RoleUser, Content: "first"},
		{Role: thread.RoleTool, Content: "{}"},
		{Role: thread.RoleTool, Content: "{}"},
		{Role: thread.RoleAssistant, Content: "second"},
	}

	contents := AssembleHistory(messages, 2)
	require.Len(t, contents, 2)
	assert.Equal(t, "first", contents[0].Parts[0].Text)
	assert.Equal(t, "second", contents[1].Parts[0].Text)
}

func TestAssembleHistoryEmpty(t *testing.T) {
	assert.Empty(t, AssembleHistory(nil, 100))
}
