package mcpserver_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/alteval/internal/app"
	"github.com/MrWong99/alteval/internal/config"
	"github.com/MrWong99/alteval/internal/mcpserver"
	"github.com/MrWong99/alteval/internal/observe"
)

func newServer(t *testing.T) (*mcpserver.Server, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	cfg := config.Default()
	cfg.Tokenizer.Segmenters = nil
	a, err := app.New(cfg, config.NewRegistry(), app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return mcpserver.New(a, mcpserver.WithMetrics(m), mcpserver.WithVersion("test")), reader
}

// connect attaches an in-memory client to s.
func connect(t *testing.T, s *mcpserver.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()

	ss, err := s.MCP().Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server Connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestListTools(t *testing.T) {
	t.Parallel()
	s, _ := newServer(t)
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{mcpserver.ToolComputeMetrics, mcpserver.ToolTokenize} {
		if !names[want] {
			t.Errorf("tool %q not listed", want)
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()
	s, reader := newServer(t)
	cs := connect(t, s)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: mcpserver.ToolComputeMetrics,
		Arguments: map[string]any{
			"references": []string{"Wait (for me)"},
			"hypotheses": []string{"Wait for me"},
			"ids":        []string{"song-1"},
		},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", text(t, res))
	}

	var doc struct {
		Metrics map[string]*float64 `json:"metrics"`
		Items   []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v := doc.Metrics["WER"]; v == nil || *v != 0 {
		t.Errorf("WER = %v, want 0", v)
	}
	if v := doc.Metrics["R_pare"]; v == nil || *v != 0 {
		t.Errorf("R_pare = %v, want 0", v)
	}
	if v, ok := doc.Metrics["P_pare"]; !ok || v != nil {
		t.Errorf("P_pare = %v, want null", v)
	}
	if len(doc.Items) != 1 || doc.Items[0].ID != "song-1" {
		t.Errorf("items = %+v", doc.Items)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !hasToolCall(rm, mcpserver.ToolComputeMetrics, "ok") {
		t.Error("tool call not recorded")
	}
}

func TestComputeMetrics_InvalidInput(t *testing.T) {
	t.Parallel()
	s, reader := newServer(t)
	cs := connect(t, s)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: mcpserver.ToolComputeMetrics,
		Arguments: map[string]any{
			"references": []string{"a", "b"},
			"hypotheses": []string{"a"},
		},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(text(t, res), "differ in length") {
		t.Errorf("error text = %q", text(t, res))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !hasToolCall(rm, mcpserver.ToolComputeMetrics, "error") {
		t.Error("failed tool call not recorded")
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	s, _ := newServer(t)
	cs := connect(t, s)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      mcpserver.ToolTokenize,
		Arguments: map[string]any{"text": "Sei's Melancholie", "language": "German"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", text(t, res))
	}

	var out struct {
		Language string `json:"language"`
		Tokens   []struct {
			Text string `json:"text"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Language != "de" {
		t.Errorf("language = %q, want de", out.Language)
	}
	var texts []string
	for _, tok := range out.Tokens {
		texts = append(texts, tok.Text)
	}
	if got := strings.Join(texts, " "); got != "Sei 's Melancholie" {
		t.Errorf("tokens = %q", got)
	}
}

func TestStreamableHTTP(t *testing.T) {
	t.Parallel()
	s, _ := newServer(t)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      mcpserver.ToolTokenize,
		Arguments: map[string]any{"text": "la la"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", text(t, res))
	}
	if !strings.Contains(text(t, res), `"language":"en"`) {
		t.Errorf("result = %s", text(t, res))
	}
}

func hasToolCall(rm metricdata.ResourceMetrics, tool, status string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "alteval.tool.calls" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return false
			}
			for _, dp := range sum.DataPoints {
				tv, _ := dp.Attributes.Value("tool")
				sv, _ := dp.Attributes.Value("status")
				if tv.AsString() == tool && sv.AsString() == status && dp.Value > 0 {
					return true
				}
			}
		}
	}
	return false
}
