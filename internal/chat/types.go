package chat

// Message roles accepted by the chat endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single turn in a conversation. Order within a conversation is
// meaningful; the full sequence is replayed verbatim on every request.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is one tool invocation emitted by a model. Arguments holds the
// JSON text exactly as concatenated from streamed fragments; callers parse it
// once the stream has been fully drained.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a function tool offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
}

// Schema describes the JSON schema for tool parameters.
type Schema struct {
	Type                 string            `json:"type,omitempty"`
	Properties           map[string]Schema `json:"properties,omitempty"`
	Description          string            `json:"description,omitempty"`
	Required             []string          `json:"required,omitempty"`
	AdditionalProperties *bool             `json:"additionalProperties,omitempty"`
}

// StringSchema builds a schema for a JSON string.
func StringSchema(description string) Schema {
	return Schema{Type: "string", Description: description}
}

// ObjectSchema builds a schema for a JSON object.
func ObjectSchema(properties map[string]Schema, required []string) *Schema {
	return &Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// Request describes one chat completion. Tools carries at most one entry in
// this system; OnDelta, when set, receives each content fragment as it
// arrives and must not block.
type Request struct {
	Model    string
	Messages []Message
	Tools    []Tool
	OnDelta  func(delta string)
}

// Response is the fully assembled result of one streamed completion.
type Response struct {
	Content          string
	ToolCall         *ToolCall
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Price holds a model's USD price per million tokens.
type Price struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

// PriceTable maps model ids to prices. Models without an entry cost zero.
type PriceTable map[string]Price

// Cost converts one usage report into USD for the given model.
func (t PriceTable) Cost(model string, promptTokens, completionTokens int) float64 {
	price, ok := t[model]
	if !ok {
		return 0
	}
	const millionTokens = 1_000_000
	return float64(promptTokens)*price.Input/millionTokens +
		float64(completionTokens)*price.Output/millionTokens
}
