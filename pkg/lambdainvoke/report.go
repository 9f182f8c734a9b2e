package lambdainvoke

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Report is the platform REPORT line Lambda appends to every invocation's log
// tail: timings, memory, and the init duration that marks a cold start.
type Report struct {
	RequestID       string
	Duration        time.Duration
	BilledDuration  time.Duration
	InitDuration    time.Duration
	MemorySizeMB    int
	MaxMemoryUsedMB int
}

// ColdStart reports whether the invocation paid an init phase.
func (r Report) ColdStart() bool {
	return r.InitDuration > 0
}

// Total is execution plus init time.
func (r Report) Total() time.Duration {
	return r.Duration + r.InitDuration
}

// Empty reports whether no REPORT line was found.
func (r Report) Empty() bool {
	return r == Report{}
}

// Fields renders the report as log fields. Durations are milliseconds.
func (r Report) Fields() map[string]any {
	return map[string]any{
		"request":         r.RequestID,
		"execution_time":  millis(r.Duration),
		"billed_duration": millis(r.BilledDuration),
		"cold_boot_delay": millis(r.InitDuration),
		"total_time":      millis(r.Total()),
		"memory":          r.MemorySizeMB,
		"max_memory":      r.MaxMemoryUsedMB,
		"cold_start":      r.ColdStart(),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ParseReport extracts the last REPORT line from a decoded log tail. Unknown
// keys are ignored and malformed values are left at zero.
func ParseReport(logs string) Report {
	var line string
	for _, candidate := range strings.Split(logs, "\n") {
		candidate = strings.TrimSpace(candidate)
		if strings.HasPrefix(candidate, "REPORT ") {
			line = candidate
		}
	}
	if line == "" {
		return Report{}
	}

	var r Report
	for _, part := range strings.Split(strings.TrimPrefix(line, "REPORT "), "\t") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "RequestId":
			r.RequestID = value
		case "Duration":
			r.Duration = parseMillis(value)
		case "Billed Duration":
			r.BilledDuration = parseMillis(value)
		case "Init Duration":
			r.InitDuration = parseMillis(value)
		case "Memory Size":
			r.MemorySizeMB = parseMegabytes(value)
		case "Max Memory Used":
			r.MaxMemoryUsedMB = parseMegabytes(value)
		}
	}
	return r
}

func parseMillis(value string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, "ms")), 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Millisecond)))
}

func parseMegabytes(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(value, "MB")))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
