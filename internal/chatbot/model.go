package chatbot

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

// SystemPrompt shapes the assistant's persona and tool usage.
const SystemPrompt = `You are Plan-It, a friendly and focused productivity assistant that helps users manage their tasks and improve productivity.

When users greet you with messages like "hi", "hello", "hey", or similar, respond warmly and introduce yourself briefly. For example:
- "Hello! I'm Plan-It, your productivity assistant. I'm here to help you manage your tasks and stay organized. How can I assist you today?"
- "Hi there! Welcome to Plan-It! I can help you create tasks, check your schedule, and keep you on track. What would you like to do?"

You have access to the following tools:
- search_tasks: Search through the user's tasks by keywords or filters
- get_task_stats: Get statistics about pending, completed, and overdue tasks
- suggest_priorities: Analyze tasks and suggest which ones to prioritize

Be conversational and helpful. When discussing tasks, use these tools to provide actionable insights and recommendations. Keep your responses concise but friendly.`

// Model abstracts the generative backend so the turn loop can be
// driven against a fake in tests.
type Model interface {
	GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, contents []*genai.Content) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Gemini is the production Model backed by the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
	config    *genai.GenerateContentConfig
}

// NewGemini creates a Gemini model with the registry's tools attached.
func NewGemini(ctx context.Context, apiKey, modelName string, registry *Registry) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrModelNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
			Tools:             registry.Tools(),
		},
	}, nil
}

func (g *Gemini) GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	return g.client.Models.GenerateContent(ctx, g.modelName, contents, g.config)
}

func (g *Gemini) GenerateContentStream(ctx context.Context, contents []*genai.Content) iter.Seq2[*genai.GenerateContentResponse, error] {
	return g.client.Models.GenerateContentStream(ctx, g.modelName, contents, g.config)
}
