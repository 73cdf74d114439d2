package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args. The commands install a global
// logger, so these tests do not run in parallel.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type document struct {
	Name    string              `json:"name"`
	Metrics map[string]*float64 `json:"metrics"`
	Items   []struct {
		ID       string `json:"id"`
		Language string `json:"language"`
	} `json:"items"`
}

func TestEval_Files(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "song.txt", "Hello big world\n")
	hyp := writeFile(t, dir, "song.hyp", "Hello world\n")

	out, err := execute(t, "", "eval", "-q", "-r", ref, "-H", hyp, "-l", "en")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	var doc document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	wer := doc.Metrics["WER"]
	if wer == nil || math.Abs(*wer-1.0/3) > 1e-9 {
		t.Errorf("WER = %v, want 1/3", wer)
	}
	if doc.Metrics["P_punc"] != nil {
		t.Errorf("P_punc = %v, want null", *doc.Metrics["P_punc"])
	}
	if len(doc.Items) != 1 || doc.Items[0].ID != "song" || doc.Items[0].Language != "en" {
		t.Errorf("items = %+v", doc.Items)
	}
}

func TestEval_Manifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "Wie'n Stern\n")
	manifest := writeFile(t, dir, "jam.yaml", `
language: en
items:
  - id: "a"
    reference: "Hello world"
    hypothesis: "Hello world"
  - id: "b"
    language: de
    reference_file: b.txt
    hypothesis: "Wie ein Stern"
`)

	out, err := execute(t, "", "eval", "-q", "-m", manifest, "-f", "text")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	for _, want := range []string{"WER", "a", "b", "de"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "NaN") {
		t.Errorf("output contains NaN:\n%s", out)
	}
}

func TestEval_HTMLToFile(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "corpus.yaml", `
items:
  - id: "x"
    reference: "Hello world"
    hypothesis: "Hello word"
`)
	outPath := filepath.Join(dir, "report.html")

	if _, err := execute(t, "", "eval", "-q", "-m", manifest, "-f", "html", "-o", outPath); err != nil {
		t.Fatalf("eval: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	page := string(data)
	if !strings.Contains(page, "<title>corpus") {
		t.Errorf("page does not carry the manifest name")
	}
	if !strings.Contains(page, `class="token hyp`) {
		t.Errorf("page has no rendered diff")
	}
}

func TestEval_Errors(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "a.txt", "la la")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no input", args: []string{"eval"}, want: "--manifest"},
		{name: "count mismatch", args: []string{"eval", "-r", ref}, want: "1 reference files but 0 hypothesis files"},
		{name: "bad format", args: []string{"eval", "-r", ref, "-H", ref, "-f", "pdf"}, want: "unknown format"},
		{name: "missing config", args: []string{"eval", "-c", filepath.Join(dir, "nope.yaml")}, want: "not found"},
		{name: "unsupported language", args: []string{"eval", "-r", ref, "-H", ref, "-l", "klingonese"}, want: "klingonese"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", append(tt.args, "-q")...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestTokenize_Arg(t *testing.T) {
	out, err := execute(t, "", "tokenize", "-q", "-l", "de", "Wie'n Stern")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := "Wie\tword\n'n\tword\nStern\tword\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestTokenize_StdinJSON(t *testing.T) {
	out, err := execute(t, "Oh, (yeah)\nla", "tokenize", "-q", "--json")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var got struct {
		Language string `json:"language"`
		Tokens   []struct {
			Text string   `json:"text"`
			Tags []string `json:"tags"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Language != "en" {
		t.Errorf("language = %q, want en", got.Language)
	}
	var texts []string
	for _, tok := range got.Tokens {
		texts = append(texts, tok.Text)
	}
	if s := strings.Join(texts, " "); s != "Oh , ( yeah ) <L> la" {
		t.Errorf("tokens = %q", s)
	}
}
