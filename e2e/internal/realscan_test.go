// Package internal contains end-to-end tests that run the scanner over
// class files laid out on disk the way a build tree would produce them,
// from config file discovery through rendered output.
package internal

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mpyw/useaddall"
	"github.com/mpyw/useaddall/internal/bcasm"
	"github.com/mpyw/useaddall/internal/bytecode"
	"github.com/mpyw/useaddall/internal/config"
	"github.com/mpyw/useaddall/internal/report"
)

const (
	listClass = "java/util/List"
	iterClass = "java/util/Iterator"

	sigIterator = "()Ljava/util/Iterator;"
	sigHasNext  = "()Z"
	sigNext     = "()Ljava/lang/Object;"
	sigAdd      = "(Ljava/lang/Object;)Z"
	sigCopy     = "(Ljava/util/List;Ljava/util/List;)V"
)

// buildCopyLoopClass compiles a class whose copy method is the
// canonical element-by-element loop.
func buildCopyLoopClass(name, source string, line int) []byte {
	b := bcasm.NewClass(name)
	if source != "" {
		b.SourceFile(source)
	}
	m := b.Method(0, "copy", sigCopy)
	if line > 0 {
		m.Line(line)
	}
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)
	return b.Build()
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustWriteJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("jar entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("jar entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	mustWrite(t, path, buf.Bytes())
}

// TestConfigFileDrivesScan verifies that a checked-in .useaddall.yaml
// controls severity and exclusions for a whole build tree, including
// classes inside a jar.
func TestConfigFileDrivesScan(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, config.DefaultFile), []byte(`
severity: high
exclude:
  - com/example/generated/**
`))
	mustWrite(t, filepath.Join(dir, "classes/com/example/Sync.class"),
		buildCopyLoopClass("com/example/Sync", "Sync.java", 12))
	mustWrite(t, filepath.Join(dir, "classes/com/example/generated/Mapper.class"),
		buildCopyLoopClass("com/example/generated/Mapper", "", 0))
	mustWriteJar(t, filepath.Join(dir, "lib/extra.jar"), map[string][]byte{
		"com/example/Extra.class": buildCopyLoopClass("com/example/Extra", "Extra.java", 7),
	})

	cfg, err := config.LoadDefault(dir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	res, err := useaddall.NewScanner(cfg, nil).Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}
	if len(res.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d: %+v", len(res.Diagnostics), res.Diagnostics)
	}
	// Sorted by class name: Extra before Sync; Mapper excluded.
	if res.Diagnostics[0].Class != "com/example/Extra" || res.Diagnostics[1].Class != "com/example/Sync" {
		t.Errorf("wrong classes reported: %+v", res.Diagnostics)
	}
	for _, d := range res.Diagnostics {
		if d.Severity != report.SeverityHigh {
			t.Errorf("severity not taken from config: %+v", d)
		}
	}
}

// TestRenderedOutput verifies the text and JSON renderings of a real
// scan result, end to end from bytes on disk.
func TestRenderedOutput(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "Sync.class"),
		buildCopyLoopClass("com/example/Sync", "Sync.java", 12))

	res, err := useaddall.NewScanner(nil, nil).Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(res.Diagnostics))
	}

	var text bytes.Buffer
	if err := report.WriteText(&text, res.Summary, false); err != nil {
		t.Fatalf("write text: %v", err)
	}
	line := strings.TrimSpace(text.String())
	if !strings.HasPrefix(line, "Sync.java:12: [useaddall] com/example/Sync.copy") {
		t.Errorf("unexpected text rendering: %s", line)
	}
	if !strings.Contains(line, "use addAll") {
		t.Errorf("text rendering lost the message: %s", line)
	}

	var raw bytes.Buffer
	if err := report.WriteJSON(&raw, res.Summary); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var decoded report.Summary
	if err := json.Unmarshal(raw.Bytes(), &decoded); err != nil {
		t.Fatalf("json round trip: %v", err)
	}
	if len(decoded.Diagnostics) != 1 || decoded.Diagnostics[0] != res.Diagnostics[0] {
		t.Errorf("json round trip changed the diagnostic: %+v", decoded.Diagnostics)
	}
}

// TestUnknownSupertypeDegradesToMissingClass verifies that a scan over
// classes referencing types outside the scan roots stays quiet instead
// of guessing, and surfaces the gap.
func TestUnknownSupertypeDegradesToMissingClass(t *testing.T) {
	dir := t.TempDir()
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", "(Lcom/acme/Bag;Lcom/acme/Bag;)V")
	m.ALoad(1).
		InvokeInterface("com/acme/Bag", "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface("com/acme/Bag", "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)
	mustWrite(t, filepath.Join(dir, "Sync.class"), b.Build())

	res, err := useaddall.NewScanner(nil, nil).Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %+v", res.Diagnostics)
	}
	if len(res.MissingClasses) != 1 || res.MissingClasses[0] != "com/acme/Bag" {
		t.Errorf("expected com/acme/Bag missing, got %v", res.MissingClasses)
	}

	var text bytes.Buffer
	if err := report.WriteText(&text, res.Summary, false); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if !strings.Contains(text.String(), "missing class: com/acme/Bag") {
		t.Errorf("missing class not surfaced: %s", text.String())
	}
}
