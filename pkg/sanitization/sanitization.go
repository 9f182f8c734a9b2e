package sanitization

import (
	"fmt"
	"strings"
)

const redactedValue = "[REDACTED]"

const maskedValue = "***masked***"

// SanitizationType defines how to sanitize a field.
type SanitizationType int

const (
	FullyRedact SanitizationType = iota
	PartialMask
)

// SensitiveFields is keyed by lowercased field name.
//
// Inertia page payloads routinely carry session and CSRF material in shared
// props, and Lambda invocation failures can echo credentials from the
// environment, so both families are covered here.
var SensitiveFields = map[string]SanitizationType{
	"password":      FullyRedact,
	"secret":        FullyRedact,
	"cookie":        FullyRedact,
	"set-cookie":    FullyRedact,
	"authorization": FullyRedact,
	"csrf_token":    FullyRedact,
	"xsrf-token":    FullyRedact,
	"_token":        FullyRedact,

	"aws_secret_access_key": FullyRedact,
	"aws_session_token":     FullyRedact,
	"aws_access_key_id":     PartialMask,
	"access_key_id":         PartialMask,
	"session_id":            PartialMask,
}

var blockedSubstrings = []string{
	"secret",
	"token",
	"password",
	"private_key",
	"api_key",
	"authorization",
}

// SanitizeLogString removes control characters that could enable log forging.
func SanitizeLogString(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

// SanitizeFieldValue sanitizes a field value based on its key name.
func SanitizeFieldValue(key string, value any) any {
	keyLower := strings.ToLower(strings.TrimSpace(key))
	if keyLower == "" {
		return sanitizeValue(value)
	}

	if typ, ok := SensitiveFields[keyLower]; ok {
		if typ == PartialMask {
			return maskIdentifier(value)
		}
		return redactedValue
	}

	for _, substr := range blockedSubstrings {
		if strings.Contains(keyLower, substr) {
			return redactedValue
		}
	}

	return sanitizeValue(value)
}

// MaskFirstLast keeps the first prefixLen and last suffixLen characters and masks the middle.
func MaskFirstLast(value string, prefixLen, suffixLen int) string {
	if prefixLen < 0 || suffixLen < 0 || len(value) <= prefixLen+suffixLen {
		return maskedValue
	}
	return value[:prefixLen] + "***" + value[len(value)-suffixLen:]
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return SanitizeLogString(typed)
	case []byte:
		return SanitizeLogString(string(typed))
	case bool, int, int32, int64, float64:
		return typed
	case []string:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = SanitizeLogString(typed[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = sanitizeValue(typed[i])
		}
		return out
	default:
		return SanitizeLogString(fmt.Sprintf("%v", typed))
	}
}

func maskIdentifier(value any) string {
	var s string
	switch v := value.(type) {
	case string:
		s = strings.TrimSpace(v)
	case []byte:
		s = strings.TrimSpace(string(v))
	default:
		return redactedValue
	}
	if len(s) <= 8 {
		return redactedValue
	}
	return MaskFirstLast(s, 4, 4)
}
