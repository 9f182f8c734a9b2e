package naming

import (
	"regexp"
	"testing"

	"pgregory.net/rapid"
)

func TestNormalizeEnvironment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"prod", "production"},
		{"Production", "production"},
		{"live", "production"},
		{"dev", "development"},
		{"stg", "staging"},
		{"testing", "testing"},
		{"Local", "local"},
		{"My Env!", "my-env"},
	}
	for _, tt := range tests {
		if got := NormalizeEnvironment(tt.in); got != tt.want {
			t.Fatalf("NormalizeEnvironment(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsProduction(t *testing.T) {
	if !IsProduction("production") || !IsProduction(" PROD ") {
		t.Fatalf("expected production aliases to be production")
	}
	if IsProduction("staging") || IsProduction("") {
		t.Fatalf("expected non-production envs")
	}
}

func TestFunctionName(t *testing.T) {
	if got := FunctionName("Acme Shop", "production", "Inertia-SSR"); got != "SC-Acme-Shop-production-Inertia-SSR" {
		t.Fatalf("FunctionName: %q", got)
	}
	if got := FunctionName("", "local", "Inertia-SSR"); got != "SC-local-Inertia-SSR" {
		t.Fatalf("FunctionName without app: %q", got)
	}
	if got := FunctionName("app", "dev", "ssr.v2/next"); got != "SC-app-dev-ssr-v2-next" {
		t.Fatalf("FunctionName invalid chars: %q", got)
	}
}

var validFunctionName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestFunctionName_AlwaysValidForLambda(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		app := rapid.String().Draw(t, "app")
		env := rapid.String().Draw(t, "env")
		name := rapid.String().Draw(t, "name")

		got := FunctionName(app, env, name)
		if len(got) == 0 || len(got) > MaxFunctionNameLength {
			t.Fatalf("length out of range: %q", got)
		}
		if !validFunctionName.MatchString(got) {
			t.Fatalf("invalid characters: %q", got)
		}
	})
}
