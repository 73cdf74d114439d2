// Package mcpserver exposes the evaluator as Model Context Protocol tools.
//
// Two tools are registered:
//
//   - compute_metrics scores reference/hypothesis pairs and returns the
//     JSON report.
//   - tokenize returns the tagged tokens of one text.
//
// The server runs over stdio ([Server.RunStdio]) or streamable HTTP
// ([Server.Handler]).
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/alteval/internal/app"
	"github.com/MrWong99/alteval/internal/observe"
	"github.com/MrWong99/alteval/internal/report"
)

// Tool names.
const (
	ToolComputeMetrics = "compute_metrics"
	ToolTokenize       = "tokenize"
)

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics sets the tool call instruments. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version reported to clients. Default: "dev".
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server is an MCP server backed by an [app.App].
type Server struct {
	app     *app.App
	metrics *observe.Metrics
	version string
	srv     *mcp.Server
}

// New creates a Server and registers its tools.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{app: a, version: "dev"}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.srv = mcp.NewServer(&mcp.Implementation{Name: "alteval", Version: s.version}, nil)
	mcp.AddTool(s.srv, &mcp.Tool{
		Name: ToolComputeMetrics,
		Description: "Score lyrics transcriptions against reference lyrics. Returns WER, MER, WIL, " +
			"the case error rate and precision/recall/F1 for punctuation, parentheses, line " +
			"breaks and section breaks. Undefined metrics are null.",
	}, instrument(s, ToolComputeMetrics, s.computeMetrics))
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        ToolTokenize,
		Description: "Split lyrics into tagged tokens (word, punctuation, parenthesis, line_break, section_break).",
	}, instrument(s, ToolTokenize, s.tokenize))
	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.srv
}

// Handler returns a streamable HTTP handler serving this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.srv }, nil)
}

// RunStdio serves one client over stdin/stdout until ctx is cancelled or
// the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	if err := s.srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// ComputeMetricsInput is the argument object of the compute_metrics tool.
type ComputeMetricsInput struct {
	References          []string `json:"references" jsonschema:"reference lyrics, one entry per song"`
	Hypotheses          []string `json:"hypotheses" jsonschema:"transcribed lyrics, parallel to references"`
	Languages           []string `json:"languages,omitempty" jsonschema:"one language for all songs or one per song; defaults to the server configuration"`
	IDs                 []string `json:"ids,omitempty" jsonschema:"optional song identifiers used in the per-item results"`
	VisualizeErrors     *bool    `json:"visualize_errors,omitempty" jsonschema:"include an HTML diff per song"`
	NormalizeHypotheses *bool    `json:"normalize_hypotheses,omitempty" jsonschema:"normalize line-final punctuation and capitalization of the hypotheses first"`
}

func (s *Server) computeMetrics(ctx context.Context, in ComputeMetricsInput) (*mcp.CallToolResult, error) {
	res, err := s.app.Evaluate(ctx, app.Request{
		References:          in.References,
		Hypotheses:          in.Hypotheses,
		Languages:           in.Languages,
		VisualizeErrors:     in.VisualizeErrors,
		NormalizeHypotheses: in.NormalizeHypotheses,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(report.NewDocument("", in.IDs, res))
}

// TokenizeInput is the argument object of the tokenize tool.
type TokenizeInput struct {
	Text     string `json:"text" jsonschema:"the lyrics to tokenize"`
	Language string `json:"language,omitempty" jsonschema:"language code or English name; defaults to the server configuration"`
}

type tokenizeOutput struct {
	Language string         `json:"language"`
	Tokens   []report.Token `json:"tokens"`
}

func (s *Server) tokenize(_ context.Context, in TokenizeInput) (*mcp.CallToolResult, error) {
	tokens, code, err := s.app.Tokenize(in.Text, in.Language)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(tokenizeOutput{Language: code, Tokens: report.Tokens(tokens)})
}

// instrument adapts fn to an SDK tool handler that records call counts and
// latency. Tool failures are reported to the client as error results, not
// protocol errors.
func instrument[In any](s *Server, name string, fn func(context.Context, In) (*mcp.CallToolResult, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		ctx, span := observe.StartSpan(ctx, "mcp."+name)
		defer span.End()

		res, err := fn(ctx, in)
		status := "ok"
		if err != nil || (res != nil && res.IsError) {
			status = "error"
			observe.Fail(span, toolError(err, res))
		}
		s.metrics.RecordToolCall(ctx, name, status)
		s.metrics.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("tool", name), observe.Attr("status", status)))
		observe.Logger(ctx).Debug("mcpserver: tool call", "tool", name, "status", status)
		return res, nil, err
	}
}

// toolError returns err, or the text of an error result.
func toolError(err error, res *mcp.CallToolResult) error {
	if err != nil {
		return err
	}
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return errors.New(tc.Text)
		}
	}
	return errors.New("tool error")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	slog.Debug("mcpserver: tool failed", "err", err)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
