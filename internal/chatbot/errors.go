package chatbot

import "errors"

var (
	// ErrModelNotConfigured is returned when no model was injected,
	// typically because the Gemini API key is missing.
	ErrModelNotConfigured = errors.New("chatbot model is not configured")

	// ErrEmptyMessage is returned when the user message is empty or
	// whitespace. The model is never called in that case.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrEmptyResponse is returned when the model produced neither
	// text nor tool calls.
	ErrEmptyResponse = errors.New("assistant returned an empty response")

	// ErrToolLoopExceeded is returned when the model kept requesting
	// tools past the turn limit without producing any text.
	ErrToolLoopExceeded = errors.New("tool loop exceeded maximum turns")
)
