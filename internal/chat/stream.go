package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// streamChunk is one parsed SSE data frame.
type streamChunk struct {
	Choices []streamChoice `json:"choices"`
	Usage   *usageReport   `json:"usage"`
}

// streamChoice contains a delta event from the endpoint.
type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

// streamDelta contains incremental content or tool calls.
type streamDelta struct {
	Content   string           `json:"content"`
	ToolCalls []streamToolCall `json:"tool_calls"`
}

// streamToolCall is a streaming tool call fragment.
type streamToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

// functionCall carries the name and raw argument text of a tool call.
type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// usageReport is a token accounting frame. A stream may carry several.
type usageReport struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// toolCallAccumulator gathers streaming tool call fragments for one index.
type toolCallAccumulator struct {
	ID        string
	Name      string
	Arguments strings.Builder
}

// streamDecoder assembles a Response from SSE data frames.
type streamDecoder struct {
	model   string
	prices  PriceTable
	onDelta func(string)

	content      strings.Builder
	accumulators map[int]*toolCallAccumulator
	resp         Response
	done         bool
}

func newStreamDecoder(model string, prices PriceTable, onDelta func(string)) *streamDecoder {
	return &streamDecoder{
		model:        model,
		prices:       prices,
		onDelta:      onDelta,
		accumulators: make(map[int]*toolCallAccumulator),
	}
}

// decodeStream reads the SSE body to completion and assembles the response.
func decodeStream(body io.Reader, model string, prices PriceTable, onDelta func(string)) (Response, error) {
	decoder := newStreamDecoder(model, prices, onDelta)
	var buf lineBuffer
	chunk := make([]byte, 4096)
	for !decoder.done {
		n, err := body.Read(chunk)
		if n > 0 {
			for _, line := range buf.Feed(chunk[:n]) {
				decoder.consume(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Response{}, fmt.Errorf("read stream: %w", err)
		}
	}
	decoder.consume(buf.Rest())
	return decoder.finish(), nil
}

// consume handles one line of the event stream. Frames that fail to parse as
// JSON (keepalives, malformed data) are dropped without aborting the stream;
// the [DONE] sentinel ends it and is never parsed as data.
func (d *streamDecoder) consume(line string) {
	if d.done {
		return
	}
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "data:") {
		return
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		d.done = true
		return
	}
	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return
	}
	d.apply(chunk)
}

func (d *streamDecoder) apply(chunk streamChunk) {
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			d.content.WriteString(choice.Delta.Content)
			if d.onDelta != nil {
				d.onDelta(choice.Delta.Content)
			}
		}
		for _, call := range choice.Delta.ToolCalls {
			acc := d.accumulators[call.Index]
			if acc == nil {
				acc = &toolCallAccumulator{}
				d.accumulators[call.Index] = acc
			}
			if call.ID != "" {
				acc.ID = call.ID
			}
			if call.Function.Name != "" {
				acc.Name = call.Function.Name
			}
			if call.Function.Arguments != "" {
				acc.Arguments.WriteString(call.Function.Arguments)
			}
		}
	}
	if chunk.Usage != nil {
		d.resp.PromptTokens += chunk.Usage.PromptTokens
		d.resp.CompletionTokens += chunk.Usage.CompletionTokens
		d.resp.Cost += d.prices.Cost(d.model, chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
	}
}

// finish returns the assembled response. When the model emitted tool calls,
// the lowest stream index wins; its argument text is returned raw, unparsed.
func (d *streamDecoder) finish() Response {
	resp := d.resp
	resp.Content = d.content.String()
	if len(d.accumulators) == 0 {
		return resp
	}
	indices := make([]int, 0, len(d.accumulators))
	for index := range d.accumulators {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	acc := d.accumulators[indices[0]]
	callID := acc.ID
	if callID == "" {
		callID = fmt.Sprintf("call-%d", indices[0])
	}
	resp.ToolCall = &ToolCall{
		ID:        callID,
		Name:      acc.Name,
		Arguments: acc.Arguments.String(),
	}
	return resp
}
