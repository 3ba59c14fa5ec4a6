package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, server *httptest.Server, prices PriceTable) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:  "key",
		BaseURL: server.URL,
		Client:  server.Client(),
		Prices:  prices,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCompleteAssemblesContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"I will \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"not press it.\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"usage\":{\"prompt_tokens\":10,\"completion_tokens\":5}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, PriceTable{"m": {Input: 2, Output: 10}})
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "press it"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "I will not press it." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.ToolCall != nil {
		t.Fatalf("unexpected tool call: %+v", resp.ToolCall)
	}
	if resp.PromptTokens != 10 || resp.CompletionTokens != 5 {
		t.Fatalf("unexpected usage: %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
	want := 10*2.0/1e6 + 5*10.0/1e6
	if diff := resp.Cost - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("unexpected cost: %v, want %v", resp.Cost, want)
	}
}

func TestCompleteAssemblesToolCallFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_9\",\"type\":\"function\",\"function\":{\"name\":\"press_button\",\"arguments\":\"{\\\"reas\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"oning\\\":\\\"done\\\"}\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "press it"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.ToolCall == nil {
		t.Fatalf("expected tool call")
	}
	if resp.ToolCall.ID != "call_9" || resp.ToolCall.Name != "press_button" {
		t.Fatalf("unexpected tool call: %+v", resp.ToolCall)
	}
	if resp.ToolCall.Arguments != `{"reasoning":"done"}` {
		t.Fatalf("unexpected arguments: %q", resp.ToolCall.Arguments)
	}
}

func TestCompleteReassemblesFramesSplitAcrossWrites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":")
		flusher.Flush()
		fmt.Fprint(w, "{\"content\":\"split\"}}]}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "split" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
}

func TestCompleteSkipsMalformedFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
}

func TestCompleteIgnoresFramesAfterDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"before\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" after\"}}]}\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "before" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
}

func TestCompleteSumsRepeatedUsageReports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"usage\":{\"prompt_tokens\":100,\"completion_tokens\":50}}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"usage\":{\"prompt_tokens\":200,\"completion_tokens\":25}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, PriceTable{"m": {Input: 1, Output: 2}})
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.PromptTokens != 300 || resp.CompletionTokens != 75 {
		t.Fatalf("unexpected usage totals: %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
	want := 300*1.0/1e6 + 75*2.0/1e6
	if diff := resp.Cost - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("unexpected cost: %v, want %v", resp.Cost, want)
	}
}

func TestCompleteContextOverflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"This request exceeds the maximum context length of the model"}}`)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected context overflow, got %v", err)
	}
}

func TestCompleteGenericStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "upstream busy")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil || errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected generic error, got %v", err)
	}
	if !strings.Contains(err.Error(), "upstream busy") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestCompleteTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := NewClient(Options{
		APIKey:  "key",
		BaseURL: server.URL,
		Client:  server.Client(),
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil || errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCompleteSendsToolsAndAuth(t *testing.T) {
	var got chatRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	_, err := client.Complete(context.Background(), Request{
		Model:    "test/model",
		Messages: []Message{{Role: RoleSystem, Content: "never press"}},
		Tools: []Tool{{
			Name:        "press_button",
			Description: "Press the button.",
			Parameters: ObjectSchema(map[string]Schema{
				"reasoning": StringSchema("Why you pressed it."),
			}, []string{"reasoning"}),
		}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if auth != "Bearer key" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
	if got.Model != "test/model" || !got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.ToolChoice != "auto" || len(got.Tools) != 1 {
		t.Fatalf("unexpected tools: %+v", got)
	}
	if got.Tools[0].Function.Name != "press_button" {
		t.Fatalf("unexpected tool name: %q", got.Tools[0].Function.Name)
	}
	if got.Usage == nil || !got.Usage.Include {
		t.Fatalf("expected usage accounting to be requested")
	}
}

func TestCompleteForwardsDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, nil)
	var deltas []string
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		OnDelta:  func(d string) { deltas = append(deltas, d) },
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(deltas) != 2 || deltas[0] != "a" || deltas[1] != "b" {
		t.Fatalf("unexpected deltas: %v", deltas)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected missing api key error")
	}
	client, err := NewClient(Options{APIKey: "key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("unexpected default base url: %q", client.baseURL)
	}
	if client.timeout != defaultTimeout {
		t.Fatalf("unexpected default timeout: %v", client.timeout)
	}
}

func TestPriceTableCost(t *testing.T) {
	prices := PriceTable{"known": {Input: 3, Output: 15}}
	if cost := prices.Cost("unknown", 1000, 1000); cost != 0 {
		t.Fatalf("expected zero cost for unlisted model, got %v", cost)
	}
	want := 1_000_000*3.0/1e6 + 500_000*15.0/1e6
	if cost := prices.Cost("known", 1_000_000, 500_000); cost != want {
		t.Fatalf("unexpected cost: %v, want %v", cost, want)
	}
}
