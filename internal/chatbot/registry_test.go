package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryValidates(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	decls := registry.Declarations()
	require.Len(t, decls, len(Kinds()))
	for i, k := range Kinds() {
		assert.Equal(t, string(k), decls[i].Name)
		assert.NotEmpty(t, decls[i].Description)
		require.NotNil(t, decls[i].Parameters)
	}

	tools := registry.Tools()
	require.Len(t, tools, 1)
	assert.Len(t, tools[0].FunctionDeclarations, len(Kinds()))
}

func TestKindFromName(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := KindFromName(string(k))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}

	_, ok := KindFromName("make_coffee")
	assert.False(t, ok)
}

func TestValidateArgs(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		name    string
		kind    Kind
		args    map[string]any
		wantErr bool
	}{
		{"search no args", KindSearchTasks, nil, false},
		{"search full args", KindSearchTasks, map[string]any{"query": "milk", "status": "pending", "priority": "high"}, false},
		{"search bad status", KindSearchTasks, map[string]any{"status": "done"}, true},
		{"search bad priority", KindSearchTasks, map[string]any{"priority": "urgent"}, true},
		{"search non-string query", KindSearchTasks, map[string]any{"query": 42}, true},
		{"stats no args", KindTaskStats, nil, false},
		{"suggest no args", KindSuggestPriorities, map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.ValidateArgs(tt.kind, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateArgsUnknownKind(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, registry.ValidateArgs(Kind("bogus"), nil))
}
