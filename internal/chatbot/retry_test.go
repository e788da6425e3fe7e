package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("googleapi: Error 429: rate limit exceeded"), true},
		{"quota", errors.New("quota exceeded for model"), true},
		{"server error", errors.New("backend returned 503"), true},
		{"unavailable", errors.New("service UNAVAILABLE"), true},
		{"network", errors.New("read tcp: connection reset by peer"), true},
		{"bad request", errors.New("invalid argument: contents must not be empty"), false},
		{"auth", errors.New("API key not valid"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

func TestRespondRetriesTransientFailures(t *testing.T) {
	model := NewStubModel(
		ScriptedTurn{Err: errors.New("429 rate limit exceeded")},
		ScriptedTurn{TextChunks: []string{"Recovered."}},
	)
	bot := newTestChatbot(t, model)

	result, err := bot.Respond(context.Background(), "u1", nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", result.Response)
	assert.Equal(t, 2, model.Calls())
}

func TestRespondDoesNotRetryPermanentFailures(t *testing.T) {
	model := NewStubModel(ScriptedTurn{Err: errors.New("API key not valid")})
	bot := newTestChatbot(t, model)

	_, err := bot.Respond(context.Background(), "u1", nil, "hello")
	require.Error(t, err)
	assert.Equal(t, 1, model.Calls())
}
