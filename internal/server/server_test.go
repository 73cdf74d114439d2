package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/MrWong99/alteval/internal/app"
	"github.com/MrWong99/alteval/internal/config"
	"github.com/MrWong99/alteval/internal/observe"
	"github.com/MrWong99/alteval/internal/server"
)

func newServer(t *testing.T, opts ...server.Option) *httptest.Server {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	cfg := config.Default()
	cfg.Tokenizer.Segmenters = nil
	a, err := app.New(cfg, config.NewRegistry(), app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv := server.New(a, append([]server.Option{
		server.WithMetrics(m),
		server.WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# scrape\n")
		})),
	}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(data)
}

func TestMetrics_JSON(t *testing.T) {
	t.Parallel()
	ts := newServer(t)

	resp, body := post(t, ts.URL+"/v1/metrics", `{
		"ids": ["song-1"],
		"references": ["Hello\n\nWorld"],
		"hypotheses": ["hello\n\nworld"],
		"visualize_errors": true
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var got struct {
		Metrics map[string]*float64 `json:"metrics"`
		Items   []struct {
			ID         string `json:"id"`
			CaseErrors int    `json:"case_errors"`
			ErrorsHTML string `json:"errors_html"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if v := got.Metrics["WER"]; v == nil || *v != 0 {
		t.Errorf("WER = %v, want 0", v)
	}
	if v := got.Metrics["ER_case"]; v == nil || *v != 1 {
		t.Errorf("ER_case = %v, want 1", v)
	}
	if v, ok := got.Metrics["P_punc"]; !ok || v != nil {
		t.Errorf("P_punc = %v, want null", v)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "song-1" || got.Items[0].CaseErrors != 2 {
		t.Fatalf("items = %+v", got.Items)
	}
	if !strings.Contains(got.Items[0].ErrorsHTML, "ref-case") {
		t.Errorf("errors_html = %q", got.Items[0].ErrorsHTML)
	}
}

// TestHandler_CorrelationID installs a global tracer provider, so it does
// not run in parallel.
func TestHandler_CorrelationID(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	ts := newServer(t)

	resp, body := post(t, ts.URL+"/v1/tokenize", `{"text": "la la"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if id := resp.Header.Get("X-Correlation-ID"); len(id) != 32 {
		t.Errorf("X-Correlation-ID = %q, want a trace ID", id)
	}
}

func TestMetrics_Formats(t *testing.T) {
	t.Parallel()
	ts := newServer(t)

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{format: "text", contentType: "text/plain", contains: "METRIC"},
		{format: "html", contentType: "text/html", contains: "<!DOCTYPE html>"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			resp, body := post(t, ts.URL+"/v1/metrics?format="+tt.format,
				`{"references": ["a b"], "hypotheses": ["a c"]}`)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d: %s", resp.StatusCode, body)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %s", ct, tt.contentType)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body does not contain %q:\n%s", tt.contains, body)
			}
		})
	}
}

func TestMetrics_Errors(t *testing.T) {
	t.Parallel()
	ts := newServer(t, server.WithMaxBodyBytes(256))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed json", "/v1/metrics", `{`, http.StatusBadRequest},
		{"unknown field", "/v1/metrics", `{"refs": []}`, http.StatusBadRequest},
		{"missing hypotheses", "/v1/metrics", `{"references": ["a"]}`, http.StatusBadRequest},
		{"length mismatch", "/v1/metrics", `{"references": ["a", "b"], "hypotheses": ["a"]}`, http.StatusBadRequest},
		{"language count", "/v1/metrics", `{"references": ["a", "b", "c"], "hypotheses": ["a", "b", "c"], "languages": ["en", "de"]}`, http.StatusBadRequest},
		{"unsupported language", "/v1/metrics", `{"references": ["a"], "hypotheses": ["a"], "languages": ["klingonese"]}`, http.StatusBadRequest},
		{"unknown format", "/v1/metrics?format=xml", `{"references": ["a"], "hypotheses": ["a"]}`, http.StatusBadRequest},
		{"body too large", "/v1/metrics", `{"references": ["` + strings.Repeat("a", 512) + `"], "hypotheses": ["a"]}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, body := post(t, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
			var e struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal([]byte(body), &e); err != nil || e.Error == "" {
				t.Errorf("error body = %q", body)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	ts := newServer(t)

	resp, body := post(t, ts.URL+"/v1/tokenize", `{"text": "Oh, (yeah)\nla", "language": "English"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var got struct {
		Language string `json:"language"`
		Tokens   []struct {
			Text string   `json:"text"`
			Tags []string `json:"tags"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Language != "en" {
		t.Errorf("language = %q, want en", got.Language)
	}
	var texts, tags []string
	for _, tok := range got.Tokens {
		texts = append(texts, tok.Text)
		tags = append(tags, strings.Join(tok.Tags, "+"))
	}
	if want := "Oh , ( yeah ) <L> la"; strings.Join(texts, " ") != want {
		t.Errorf("texts = %q, want %q", strings.Join(texts, " "), want)
	}
	if want := "word punctuation parenthesis word parenthesis line_break word"; strings.Join(tags, " ") != want {
		t.Errorf("tags = %q, want %q", strings.Join(tags, " "), want)
	}
}

func TestTokenize_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	ts := newServer(t)

	resp, _ := post(t, ts.URL+"/v1/tokenize", `{"text": "hi", "language": "klingonese"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProbesAndScrape(t *testing.T) {
	t.Parallel()
	ts := newServer(t)

	for path, want := range map[string]int{
		"/healthz":    http.StatusOK,
		"/readyz":     http.StatusOK,
		"/metrics":    http.StatusOK,
		"/mcp":        http.StatusNotFound,
		"/v1/metrics": http.StatusMethodNotAllowed,
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestMCPHandlerMounted(t *testing.T) {
	t.Parallel()
	ts := newServer(t, server.WithMCPHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	resp, err := http.Get(ts.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Tokenizer.Segmenters = nil
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	a, err := app.New(cfg, config.NewRegistry(), app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv := server.New(a, server.WithMetrics(m))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, nil) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
