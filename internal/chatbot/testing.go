package chatbot

import (
	"context"
	"iter"
	"sync"

	"google.golang.org/genai"
)

// ScriptedTurn is one model response in a StubModel script. Text is
// split into TextChunks when streaming; non-streaming calls see the
// chunks joined. Calls are attached after the text.
type ScriptedTurn struct {
	TextChunks []string
	Calls      []*genai.FunctionCall
	Err        error
}

// StubModel replays a fixed script of model turns and records every
// request it receives. It implements Model for loop tests without any
// network access.
type StubModel struct {
	mu       sync.Mutex
	script   []ScriptedTurn
	next     int
	Requests [][]*genai.Content
}

// NewStubModel creates a stub that replays turns in order. Once the
// script is exhausted it keeps repeating the last turn, which lets
// tests model a backend that never stops calling tools.
func NewStubModel(turns ...ScriptedTurn) *StubModel {
	return &StubModel{script: turns}
}

func (s *StubModel) take(contents []*genai.Content) ScriptedTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]*genai.Content, len(contents))
	copy(copied, contents)
	s.Requests = append(s.Requests, copied)

	if len(s.script) == 0 {
		return ScriptedTurn{}
	}
	turn := s.script[min(s.next, len(s.script)-1)]
	s.next++
	return turn
}

// Calls returns how many generate requests the stub has served.
func (s *StubModel) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

func (s *StubModel) GenerateContent(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	turn := s.take(contents)
	if turn.Err != nil {
		return nil, turn.Err
	}

	var parts []*genai.Part
	for _, chunk := range turn.TextChunks {
		parts = append(parts, genai.NewPartFromText(chunk))
	}
	for _, call := range turn.Calls {
		parts = append(parts, &genai.Part{FunctionCall: call})
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromParts(parts, genai.RoleModel),
		}},
	}, nil
}

func (s *StubModel) GenerateContentStream(_ context.Context, contents []*genai.Content) iter.Seq2[*genai.GenerateContentResponse, error] {
	turn := s.take(contents)

	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		if turn.Err != nil {
			yield(nil, turn.Err)
			return
		}

		for _, chunk := range turn.TextChunks {
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: genai.NewContentFromParts(
						[]*genai.Part{genai.NewPartFromText(chunk)}, genai.RoleModel),
				}},
			}
			if !yield(resp, nil) {
				return
			}
		}

		if len(turn.Calls) > 0 {
			parts := make([]*genai.Part, 0, len(turn.Calls))
			for _, call := range turn.Calls {
				parts = append(parts, &genai.Part{FunctionCall: call})
			}
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: genai.NewContentFromParts(parts, genai.RoleModel),
				}},
			}
			yield(resp, nil)
		}
	}
}
