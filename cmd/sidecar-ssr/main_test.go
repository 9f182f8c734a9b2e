package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/theory-cloud/sidecarssr"
	"github.com/theory-cloud/sidecarssr/pkg/lambdainvoke"
	"github.com/theory-cloud/sidecarssr/pkg/observability"
	"github.com/theory-cloud/sidecarssr/testkit"
)

func stubDeps(t *testing.T, env *testkit.Env) *observability.TestLogger {
	t.Helper()
	logs := observability.NewTestLogger()

	prevLogger, prevClient := newLogger, newLambdaClient
	newLogger = func(context.Context, string) (observability.StructuredLogger, error) { return logs, nil }
	newLambdaClient = func(context.Context, sidecarssr.Config) (lambdainvoke.Client, error) {
		if env == nil {
			return nil, errors.New("no lambda in this test")
		}
		return env.Client(), nil
	}
	t.Cleanup(func() {
		newLogger, newLambdaClient = prevLogger, prevClient
	})
	return logs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	for _, key := range []string{"SIDECAR_SSR_CONFIG", "SIDECAR_SSR_ENABLED", "SIDECAR_SSR_HANDLER", "SIDECAR_SSR_APP", "SIDECAR_SSR_ENV", "SIDECAR_SSR_BASE_PATH"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv %s: %v", key, err)
		}
	}
	path := filepath.Join(t.TempDir(), "ssr.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// fakeTool puts an executable named name on PATH that exits with status.
func fakeTool(t *testing.T, name string, status int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\nexit " + string(rune('0'+status)) + "\n"
	//nolint:gosec // Test fixture must be executable.
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o700); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	t.Setenv("PATH", dir)
}

func TestRun_Usage(t *testing.T) {
	stubDeps(t, nil)

	code, _, stderr := runCLI(t, "")
	if code != 2 || !strings.Contains(stderr, "usage: sidecar-ssr") {
		t.Fatalf("expected usage with code 2, got %d: %s", code, stderr)
	}

	code, _, stderr = runCLI(t, "", "deploy")
	if code != 2 || !strings.Contains(stderr, `unknown command "deploy"`) {
		t.Fatalf("expected unknown command, got %d: %s", code, stderr)
	}

	code, stdout, _ := runCLI(t, "", "help")
	if code != 0 || !strings.Contains(stdout, "render") {
		t.Fatalf("expected help on stdout, got %d: %s", code, stdout)
	}
}

func TestRun_Functions(t *testing.T) {
	stubDeps(t, nil)
	cfg := writeConfig(t, "sidecar:\n  app: shop\n  env: staging\n")

	code, stdout, stderr := runCLI(t, "", "functions", "-config", cfg)
	if code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr)
	}
	for _, want := range []string{"mix", "vite-bundled", "SC-shop-staging-Inertia-SSR", "bootstrap/ssr/ssr.handler", "1024MB"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestRun_Manifest(t *testing.T) {
	stubDeps(t, nil)
	root := t.TempDir()
	cfg := writeConfig(t, "ssr:\n  handler: mix\nsidecar:\n  app: shop\n  base_path: "+root+"\n")

	code, stdout, stderr := runCLI(t, "", "manifest", "-config", cfg)
	if code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr)
	}

	var got manifest
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("manifest is not JSON: %v\n%s", err, stdout)
	}
	if got.FunctionName != "SC-shop-production-Inertia-SSR" || got.Handler != "ssr.handler" || got.MemoryMB != 1024 {
		t.Fatalf("unexpected manifest: %+v", got)
	}
	if len(got.Files) != 1 || got.Files[0] != filepath.Join(root, "public/js/ssr.js") {
		t.Fatalf("unexpected files: %v", got.Files)
	}
}

func TestRun_ManifestRequiresKnownHandler(t *testing.T) {
	stubDeps(t, nil)
	cfg := writeConfig(t, "sidecar:\n  app: shop\n")

	if code, _, stderr := runCLI(t, "", "manifest", "-config", cfg); code != 2 || !strings.Contains(stderr, "no handler") {
		t.Fatalf("expected missing handler failure, got %d: %s", code, stderr)
	}
	if code, _, stderr := runCLI(t, "", "manifest", "-config", cfg, "-handler", "webpack"); code != 2 || !strings.Contains(stderr, "unknown function") {
		t.Fatalf("expected unknown handler failure, got %d: %s", code, stderr)
	}
}

func TestRun_BuildRunsLayoutCommand(t *testing.T) {
	logs := stubDeps(t, nil)
	fakeTool(t, "npm", 0)
	root := t.TempDir()
	cfg := writeConfig(t, "ssr:\n  handler: vite\nsidecar:\n  app: shop\n  base_path: "+root+"\n")

	code, stdout, stderr := runCLI(t, "", "build", "-config", cfg)
	if code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, `"handler": "bootstrap/ssr/ssr.handler"`) {
		t.Fatalf("expected manifest on stdout:\n%s", stdout)
	}
	if len(logs.EntriesWithMessage("JavaScript SSR bundle compiled")) != 1 {
		t.Fatalf("expected compile log, got %+v", logs.Entries())
	}
}

func TestRun_BuildFailureExitsOne(t *testing.T) {
	stubDeps(t, nil)
	fakeTool(t, "npm", 3)
	cfg := writeConfig(t, "ssr:\n  handler: vite\nsidecar:\n  base_path: "+t.TempDir()+"\n")

	code, stdout, stderr := runCLI(t, "", "build", "-config", cfg)
	if code != 1 {
		t.Fatalf("expected 1, got %d: %s", code, stderr)
	}
	if stdout != "" || !strings.Contains(stderr, "exited with status 3") {
		t.Fatalf("expected build failure only, stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestRun_Render(t *testing.T) {
	env := testkit.New()
	env.Lambda.Handle("SC-shop-production-Inertia-SSR", func(_ context.Context, page map[string]any) (map[string]any, error) {
		return map[string]any{
			"head": []string{"<title>" + page["component"].(string) + "</title>"},
			"body": `<div id="app"></div>`,
		}, nil
	})
	stubDeps(t, env)
	cfg := writeConfig(t, "ssr:\n  enabled: true\n  handler: vite\nsidecar:\n  app: shop\n")

	code, stdout, stderr := runCLI(t, `{"component":"Home","props":{}}`, "render", "-config", cfg)
	if code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr)
	}
	var resp sidecarssr.Response
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, stdout)
	}
	if resp.Head != "<title>Home</title>" || resp.Body != `<div id="app"></div>` {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRun_RenderFallsBack(t *testing.T) {
	env := testkit.New()
	env.Lambda.Fail("SC-shop-production-Inertia-SSR", errors.New("throttled"))
	stubDeps(t, env)

	disabled := writeConfig(t, "ssr:\n  handler: vite\nsidecar:\n  app: shop\n")
	if code, _, _ := runCLI(t, `{}`, "render", "-config", disabled); code != 1 {
		t.Fatalf("expected fallback when disabled, got %d", code)
	}

	enabled := writeConfig(t, "ssr:\n  enabled: true\n  handler: vite\nsidecar:\n  app: shop\n")
	if code, _, _ := runCLI(t, `{}`, "render", "-config", enabled); code != 1 {
		t.Fatalf("expected fallback on suppressed failure, got %d", code)
	}

	debug := writeConfig(t, "ssr:\n  enabled: true\n  debug: true\n  handler: vite\nsidecar:\n  app: shop\n")
	if code, _, stderr := runCLI(t, `{}`, "render", "-config", debug); code != 2 || !strings.Contains(stderr, "throttled") {
		t.Fatalf("expected raised failure in debug mode, got %d: %s", code, stderr)
	}
}

func TestRun_RenderRejectsBadPage(t *testing.T) {
	stubDeps(t, testkit.New())
	cfg := writeConfig(t, "ssr:\n  enabled: true\n  handler: vite\n")

	if code, _, stderr := runCLI(t, `[1,2]`, "render", "-config", cfg); code != 2 || !strings.Contains(stderr, "not a JSON object") {
		t.Fatalf("expected bad page failure, got %d: %s", code, stderr)
	}
}
