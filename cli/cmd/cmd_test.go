package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/adapter/redis"
	"github.com/glassbead-io/prism/adapter/webhook"
	"github.com/glassbead-io/prism/cli/config"
)

// testApp wraps commands in an app whose exit handler does not call
// os.Exit, so exit-coded errors surface as return values.
func testApp(commands ...*cli.Command) *cli.App {
	return &cli.App{
		Commands:       commands,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func TestBackendFlags_IncludesConfigAndBackend(t *testing.T) {
	names := map[string]bool{}
	for _, f := range BackendFlags() {
		names[f.Names()[0]] = true
	}

	for _, want := range []string{"config", "backend"} {
		if !names[want] {
			t.Errorf("BackendFlags should include --%s", want)
		}
	}
}

func TestBuildAdapter_None(t *testing.T) {
	a, err := buildAdapter(config.AdapterConfig{})
	if err != nil {
		t.Fatalf("buildAdapter: %v", err)
	}
	if a != nil {
		t.Error("expected nil adapter when none configured")
	}
}

func TestBuildAdapter_Webhook(t *testing.T) {
	a, err := buildAdapter(config.AdapterConfig{
		Type: "webhook",
		URL:  "https://hooks.example.com/prism",
	})
	if err != nil {
		t.Fatalf("buildAdapter: %v", err)
	}
	if _, ok := a.(*webhook.Adapter); !ok {
		t.Errorf("expected *webhook.Adapter, got %T", a)
	}
}

func TestBuildAdapter_Redis(t *testing.T) {
	a, err := buildAdapter(config.AdapterConfig{
		Type: "redis",
		URL:  "redis://localhost:6379",
	})
	if err != nil {
		t.Fatalf("buildAdapter: %v", err)
	}
	if _, ok := a.(*redis.Adapter); !ok {
		t.Errorf("expected *redis.Adapter, got %T", a)
	}
	_ = a.Close()
}

func TestBuildAdapter_UnknownType(t *testing.T) {
	_, err := buildAdapter(config.AdapterConfig{Type: "kafka"})
	if err == nil {
		t.Fatal("expected error for unknown adapter type")
	}
}

func TestBuildAdapter_WebhookRequiresURL(t *testing.T) {
	_, err := buildAdapter(config.AdapterConfig{Type: "webhook"})
	if err == nil {
		t.Fatal("expected error for webhook without URL")
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	a, b := newSessionID(), newSessionID()
	if a == b {
		t.Errorf("expected distinct session IDs, got %q twice", a)
	}
	if !strings.HasPrefix(a, "sess-") {
		t.Errorf("expected sess- prefix, got %q", a)
	}
}

func TestPrepareCommand_WritesOut(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "chart.jsx")
	out := filepath.Join(dir, "prepared.jsx")

	source := `import { BarChart } from "recharts";

export default function Chart({ data }) {
  return <BarChart data={data.rows} />;
}
`
	if err := os.WriteFile(src, []byte(source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	app := testApp(PrepareCommand())
	args := []string{"prism", "prepare", src,
		"--data", `{"columns":["a"],"rows":[[1]],"row_count":1}`,
		"--out", out,
	}
	if err := app.Run(args); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	prepared, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(prepared)

	if strings.Contains(text, "import") {
		t.Errorf("ambient import should be stripped:\n%s", text)
	}
	if !strings.Contains(text, "const __app = Chart({ data, params });") {
		t.Errorf("expected export rewrite:\n%s", text)
	}
}

func TestPrepareCommand_MissingFile(t *testing.T) {
	app := testApp(PrepareCommand())
	err := app.Run([]string{"prism", "prepare", "/nonexistent/chart.jsx"})
	if err == nil {
		t.Fatal("expected error for missing source file")
	}

	var exitErr cli.ExitCoder
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != exitUsage {
		t.Errorf("expected usage exit code, got %v", err)
	}
}

func TestPrepareCommand_InvalidDataJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "chart.jsx")
	if err := os.WriteFile(src, []byte("const x = 1;"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	app := testApp(PrepareCommand())
	err := app.Run([]string{"prism", "prepare", src, "--data", "{not json"})
	if err == nil {
		t.Fatal("expected error for invalid data JSON")
	}
}

func TestPreparedOutput_JSONShape(t *testing.T) {
	out := preparedOutput{
		Source: "const x = 1;",
		Shape:  "records",
		Scope:  map[string]any{"data": nil, "params": nil},
	}

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"source"`, `"shape"`, `"scope"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("expected %s in JSON output: %s", key, raw)
		}
	}
}
