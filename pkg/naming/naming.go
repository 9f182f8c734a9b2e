package naming

import (
	"regexp"
	"strings"
)

// MaxFunctionNameLength is Lambda's limit for an unqualified function name.
const MaxFunctionNameLength = 64

const functionPrefix = "SC"

var (
	invalidChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	multiDash    = regexp.MustCompile(`-+`)
)

func sanitizePart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, " ", "-")
	value = invalidChars.ReplaceAllString(value, "-")
	value = multiDash.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

// NormalizeEnvironment maps environment aliases to canonical values.
func NormalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	switch env {
	case "prod", "production", "live":
		return "production"
	case "dev", "development":
		return "development"
	case "stg", "stage", "staging":
		return "staging"
	case "test", "testing":
		return "testing"
	case "local":
		return "local"
	default:
		return strings.ToLower(sanitizePart(env))
	}
}

// IsProduction reports whether env names a production environment.
func IsProduction(env string) bool {
	return NormalizeEnvironment(env) == "production"
}

// FunctionName returns the deployed Lambda name for a function descriptor:
//   - SC-<app>-<env>-<name>
//   - empty parts are skipped
//
// The result only contains characters Lambda accepts and is truncated to
// MaxFunctionNameLength.
func FunctionName(appName, env, name string) string {
	parts := []string{functionPrefix}
	for _, part := range []string{sanitizePart(appName), sanitizePart(env), sanitizePart(name)} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	out := strings.Join(parts, "-")
	if len(out) > MaxFunctionNameLength {
		out = strings.TrimRight(out[:MaxFunctionNameLength], "-")
	}
	return out
}
