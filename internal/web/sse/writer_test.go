package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterSetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	_, err := NewWriter(rec)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}

// noFlush implements http.ResponseWriter without http.Flusher.
type noFlush struct{}

func (noFlush) Header() http.Header         { return http.Header{} }
func (noFlush) Write(b []byte) (int, error) { return len(b), nil }
func (noFlush) WriteHeader(int)             {}

func TestNewWriterRequiresFlusher(t *testing.T) {
	_, err := NewWriter(noFlush{})
	assert.Error(t, err)
}

func TestWriteJSONFrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	err = w.WriteJSON(context.Background(), map[string]string{"type": "text", "content": "hi"})
	require.NoError(t, err)

	assert.Equal(t, "data: {\"content\":\"hi\",\"type\":\"text\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestWriteJSONCanceledContext(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = w.WriteJSON(ctx, map[string]string{"type": "text"})
	assert.Error(t, err)
	assert.Empty(t, rec.Body.String())
}
