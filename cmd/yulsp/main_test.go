package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/yulsp/lookup"
)

// offlineConfig disables network lookups and the cache.
const offlineConfig = `
[lookup]
enabled = false

[cache]
enabled = false
`

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("DUNE_API_KEY", "")
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "YULSP_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the CLI with the offline config and returns its stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(dir, "yulsp.toml")
	if _, err := os.Stat(cfg); err != nil {
		writeFile(t, dir, "yulsp.toml", offlineConfig)
	}

	root := newRootCommand(buildInfo{Version: "1.0.0", Commit: "abc", Date: "today"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand(buildInfo{})
	for _, name := range []string{"serve", "mcp", "identify", "definition", "references", "hover", "check", "signature", "contract", "config", "version"} {
		sub, _, err := root.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q missing: %v", name, err)
		}
	}
	for _, flag := range []string{"config", "verbose", "log-file"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("global flag --%s missing", flag)
		}
	}
}

func TestVersion(t *testing.T) {
	dir := isolate(t)
	out, err := execute(t, dir, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "yulsp 1.0.0 (commit abc, built today)\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestIdentifyAndDefinition(t *testing.T) {
	dir := isolate(t)
	src := writeFile(t, dir, "f.yul", "function f(x) -> y { y := x }")

	out, err := execute(t, dir, "identify", src, "26")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "f.yul:1:27: x reference #") {
		t.Errorf("identify output = %q", out)
	}

	out, err = execute(t, dir, "definition", src, "1:27")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "f.yul:1:12: x declaration") {
		t.Errorf("definition output = %q", out)
	}

	out, err = execute(t, dir, "definition", src, "0")
	if err != nil {
		t.Fatal(err)
	}
	if out != "no definition\n" {
		t.Errorf("definition on keyword = %q", out)
	}
}

func TestReferences(t *testing.T) {
	dir := isolate(t)
	src := writeFile(t, dir, "f.yul", "function f(x) -> y { y := x }")

	out, err := execute(t, dir, "references", src, "11")
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 {
		t.Errorf("references = %q, want 2 lines", out)
	}

	out, err = execute(t, dir, "references", "--no-declaration", src, "11")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "f.yul:1:27:") || strings.Contains(out, "1:12") {
		t.Errorf("references without declaration = %q", out)
	}
}

func TestBadPosition(t *testing.T) {
	dir := isolate(t)
	src := writeFile(t, dir, "f.yul", "{ }")

	for _, pos := range []string{"99", "-1", "x", "0:1", "5:1", "1:"} {
		if _, err := execute(t, dir, "identify", src, pos); err == nil {
			t.Errorf("position %q: expected error", pos)
		}
	}
}

func TestPositionPastLastLine(t *testing.T) {
	dir := isolate(t)
	src := writeFile(t, dir, "f.yul", "{\n}\n")

	_, err := execute(t, dir, "identify", src, "4:1")
	if err == nil || !strings.Contains(err.Error(), "(3 lines)") {
		t.Errorf("err = %v, want line count in the message", err)
	}
}

func TestHoverUsesCache(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "sigs.db")
	writeFile(t, dir, "yulsp.toml", `
[lookup]
enabled = false

[cache]
enabled = true
path = "sigs.db"
ttl = "0s"
`)

	cache, err := lookup.OpenCache(dbPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(context.Background(), lookup.OpFunctionSignature, "0x70a08231", lookup.Entry{Value: "balanceOf(address)"}); err != nil {
		t.Fatal(err)
	}
	cache.Close()

	src := writeFile(t, dir, "s.yul", "{\n  mstore(0, 0x70a08231)\n}")
	out, err := execute(t, dir, "hover", src, "2:14")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "**Signature**: balanceOf(address)") || !strings.Contains(out, "s.yul:2:13: selector") {
		t.Errorf("hover output = %q", out)
	}

	out, err = execute(t, dir, "signature", "0x70A08231")
	if err != nil {
		t.Fatal(err)
	}
	if out != "balanceOf(address)\n" {
		t.Errorf("signature output = %q", out)
	}
}

func TestSignatureWithoutLookup(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, dir, "signature", "0x70a08231")
	if !errors.Is(err, lookup.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCheck(t *testing.T) {
	dir := isolate(t)
	good := writeFile(t, dir, "good.yul", "{ let a := 1 pop(a) }")
	bad := writeFile(t, dir, "bad.yul", "{ let a := b }")
	broken := writeFile(t, dir, "broken.yul", "{\n  let x := \n")

	out, err := execute(t, dir, "check", good)
	if err != nil || out != "" {
		t.Errorf("check good = (%q, %v), want clean", out, err)
	}

	out, err = execute(t, dir, "check", good, bad)
	if !errors.Is(err, errCheckFailed) {
		t.Errorf("err = %v, want errCheckFailed", err)
	}
	if !strings.Contains(out, "bad.yul:1:12: error: undeclared identifier") {
		t.Errorf("check output = %q", out)
	}

	out, err = execute(t, dir, "check", broken)
	if !errors.Is(err, errCheckFailed) {
		t.Errorf("err = %v, want errCheckFailed", err)
	}
	if !strings.Contains(out, "broken.yul:") || !strings.Contains(out, "error:") {
		t.Errorf("check output = %q", out)
	}

	if _, err := execute(t, dir, "check", filepath.Join(dir, "missing.yul")); err == nil || errors.Is(err, errCheckFailed) {
		t.Errorf("missing file: err = %v, want read error", err)
	}
}

func TestConfigRedactsKey(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "yulsp.toml", `
[lookup]
api_key = "secret"

[cache]
enabled = false
`)
	out, err := execute(t, dir, "config")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "secret") || !strings.Contains(out, "<redacted>") {
		t.Errorf("config output leaks the key: %q", out)
	}
}

func TestBadConfigFails(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "yulsp.toml", "[server]\ntransport = \"pigeon\"\n")
	_, err := execute(t, dir, "version")
	if err == nil || !strings.Contains(err.Error(), "loading configuration") {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "yulsp.toml", offlineConfig)
	bad := writeFile(t, dir, "bad.yul", "{ let a := b }")
	cfg := filepath.Join(dir, "yulsp.toml")

	if code := run([]string{"--config", cfg, "version"}); code != 0 {
		t.Errorf("version exit = %d", code)
	}
	if code := run([]string{"--config", cfg, "check", bad}); code != 1 {
		t.Errorf("check exit = %d, want 1", code)
	}
}
