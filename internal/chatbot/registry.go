package chatbot

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

// Kind identifies one of the chatbot's tools. The set is closed: every
// Kind added here must be handled by Declaration, argSchema, and the
// executor dispatch, which Registry validation checks at startup.
type Kind string

const (
	KindSearchTasks       Kind = "search_tasks"
	KindTaskStats         Kind = "get_task_stats"
	KindSuggestPriorities Kind = "suggest_priorities"
)

// Kinds returns all tool kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindSearchTasks, KindTaskStats, KindSuggestPriorities}
}

// KindFromName maps a tool name from the model back to its Kind.
func KindFromName(name string) (Kind, bool) {
	switch Kind(name) {
	case KindSearchTasks:
		return KindSearchTasks, true
	case KindTaskStats:
		return KindTaskStats, true
	case KindSuggestPriorities:
		return KindSuggestPriorities, true
	}
	return "", false
}

// Declaration returns the function declaration advertised to the model
// for this kind.
func (k Kind) Declaration() *genai.FunctionDeclaration {
	switch k {
	case KindSearchTasks:
		return &genai.FunctionDeclaration{
			Name:        string(KindSearchTasks),
			Description: "Search through user tasks by title, description, status, or priority",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "Search query to match task title or description",
					},
					"status": {
						Type:        genai.TypeString,
						Description: "Filter by status: pending, in-progress, completed",
						Enum:        []string{"pending", "in-progress", "completed"},
					},
					"priority": {
						Type:        genai.TypeString,
						Description: "Filter by priority: low, medium, high",
						Enum:        []string{"low", "medium", "high"},
					},
				},
			},
		}
	case KindTaskStats:
		return &genai.FunctionDeclaration{
			Name:        string(KindTaskStats),
			Description: "Get statistics about user tasks including counts by status and priority",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
		}
	case KindSuggestPriorities:
		return &genai.FunctionDeclaration{
			Name:        string(KindSuggestPriorities),
			Description: "Analyze user tasks and suggest which tasks should be prioritized based on due dates and current status",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
		}
	}
	return nil
}

// argSchema returns the JSON Schema used to validate arguments the
// model supplies for this kind.
func (k Kind) argSchema() *jsonschema.Schema {
	switch k {
	case KindSearchTasks:
		return &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":    {Type: "string"},
				"status":   {Type: "string", Enum: []any{"pending", "in-progress", "completed"}},
				"priority": {Type: "string", Enum: []any{"low", "medium", "high"}},
			},
		}
	case KindTaskStats, KindSuggestPriorities:
		// Unknown keys are ignored rather than rejected; models
		// occasionally echo stray arguments.
		return &jsonschema.Schema{Type: "object"}
	}
	return nil
}

// Registry holds the closed tool set with resolved argument schemas.
// Construct one with NewRegistry at startup; construction fails if any
// kind is missing a declaration or a schema.
type Registry struct {
	schemas map[Kind]*jsonschema.Resolved
}

// NewRegistry builds and validates the tool registry.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[Kind]*jsonschema.Resolved, len(Kinds()))}

	for _, k := range Kinds() {
		if k.Declaration() == nil {
			return nil, fmt.Errorf("tool %q has no declaration", k)
		}
		schema := k.argSchema()
		if schema == nil {
			return nil, fmt.Errorf("tool %q has no argument schema", k)
		}
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve schema for tool %q: %w", k, err)
		}
		r.schemas[k] = resolved
	}

	return r, nil
}

// Declarations returns the function declarations for every registered
// tool, in a stable order.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.schemas))
	for _, k := range Kinds() {
		decls = append(decls, k.Declaration())
	}
	return decls
}

// Tools returns the declarations wrapped for a generate request.
func (r *Registry) Tools() []*genai.Tool {
	return []*genai.Tool{{FunctionDeclarations: r.Declarations()}}
}

// ValidateArgs checks the model-supplied arguments for kind against its
// schema. A nil args map is treated as empty.
func (r *Registry) ValidateArgs(kind Kind, args map[string]any) error {
	resolved, ok := r.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown tool kind %q", kind)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := resolved.Validate(args); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", kind, err)
	}
	return nil
}
