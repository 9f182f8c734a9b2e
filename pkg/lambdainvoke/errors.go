package lambdainvoke

import (
	"encoding/json"
	"fmt"
)

// FunctionError is returned when the function ran but reported an error
// (X-Amz-Function-Error), including timeouts and runtime crashes.
type FunctionError struct {
	FunctionName string
	Kind         string // "Unhandled" or "Handled"
	ErrorType    string
	ErrorMessage string
	Trace        []string
	Logs         string
}

func (e *FunctionError) Error() string {
	msg := e.ErrorMessage
	if msg == "" {
		msg = e.Kind
	}
	if e.ErrorType != "" {
		return fmt.Sprintf("lambdainvoke: %s failed: %s: %s", e.FunctionName, e.ErrorType, msg)
	}
	return fmt.Sprintf("lambdainvoke: %s failed: %s", e.FunctionName, msg)
}

func newFunctionError(functionName, kind string, payload []byte, logs string) *FunctionError {
	fe := &FunctionError{FunctionName: functionName, Kind: kind, Logs: logs}

	var body struct {
		ErrorType    string   `json:"errorType"`
		ErrorMessage string   `json:"errorMessage"`
		Trace        []string `json:"trace"`
		StackTrace   []string `json:"stackTrace"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		fe.ErrorType = body.ErrorType
		fe.ErrorMessage = body.ErrorMessage
		fe.Trace = body.Trace
		if len(fe.Trace) == 0 {
			fe.Trace = body.StackTrace
		}
	} else if len(payload) > 0 {
		fe.ErrorMessage = string(payload)
	}
	return fe
}

// StatusError is returned for a non-2xx invocation status without a function error.
type StatusError struct {
	FunctionName string
	StatusCode   int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lambdainvoke: %s returned status %d", e.FunctionName, e.StatusCode)
}
