package testkit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/theory-cloud/sidecarssr/pkg/lambdainvoke"
)

// LambdaCall records one Invoke made against a FakeLambda.
type LambdaCall struct {
	FunctionName   string
	Qualifier      string
	InvocationType string
	LogType        string
	Payload        []byte
}

// LambdaOutput is a canned Lambda service response.
type LambdaOutput struct {
	StatusCode    int32
	Payload       []byte
	FunctionError string
	// Logs is the decoded log tail; FakeLambda base64-encodes it.
	Logs string
}

// InvocationReport controls the synthetic REPORT line appended to every log
// tail. The first invocation of each function is reported as a cold start
// when InitDuration is non-zero.
type InvocationReport struct {
	Duration     time.Duration
	InitDuration time.Duration
	MemorySizeMB int
	MaxMemoryMB  int
}

// FakeLambda implements lambdainvoke.API in process. Functions are Go
// handlers with any signature accepted by lambda.NewHandler, so tests exercise
// the same JSON contract a deployed Node handler would.
type FakeLambda struct {
	mu sync.Mutex

	Calls []LambdaCall

	handlers map[string]lambda.Handler
	outputs  map[string]LambdaOutput
	errs     map[string]error
	warm     map[string]bool

	report    InvocationReport
	nextReqID int
}

var _ lambdainvoke.API = (*FakeLambda)(nil)

func NewFakeLambda() *FakeLambda {
	return &FakeLambda{
		handlers: map[string]lambda.Handler{},
		outputs:  map[string]LambdaOutput{},
		errs:     map[string]error{},
		warm:     map[string]bool{},
		report: InvocationReport{
			Duration:     12500 * time.Microsecond,
			InitDuration: 180 * time.Millisecond,
			MemorySizeMB: 1024,
			MaxMemoryMB:  96,
		},
		nextReqID: 1,
	}
}

// Handle installs handler for functionName. A handler error is reported the
// way the Lambda runtime reports it: an "Unhandled" function error whose
// payload carries errorType and errorMessage.
func (f *FakeLambda) Handle(functionName string, handler any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[functionName] = lambda.NewHandler(handler)
}

// Respond makes functionName return out verbatim.
func (f *FakeLambda) Respond(functionName string, out LambdaOutput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[functionName] = out
}

// Fail makes Invoke for functionName fail at the transport level.
func (f *FakeLambda) Fail(functionName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[functionName] = err
}

func (f *FakeLambda) SetReport(report InvocationReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report = report
}

// CallCount returns how many invocations were attempted, all functions
// included.
func (f *FakeLambda) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// CallsTo returns the recorded invocations of functionName.
func (f *FakeLambda) CallsTo(functionName string) []LambdaCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []LambdaCall
	for _, call := range f.Calls {
		if call.FunctionName == functionName {
			out = append(out, call)
		}
	}
	return out
}

func (f *FakeLambda) Invoke(
	ctx context.Context,
	params *awslambda.InvokeInput,
	_ ...func(*awslambda.Options),
) (*awslambda.InvokeOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: lambda client is nil")
	}
	if params == nil {
		return nil, errors.New("testkit: invoke input is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	name := strings.TrimSpace(aws.ToString(params.FunctionName))
	if name == "" {
		return nil, errors.New("testkit: function name is empty")
	}

	f.mu.Lock()
	f.Calls = append(f.Calls, LambdaCall{
		FunctionName:   name,
		Qualifier:      aws.ToString(params.Qualifier),
		InvocationType: string(params.InvocationType),
		LogType:        string(params.LogType),
		Payload:        append([]byte(nil), params.Payload...),
	})
	err := f.errs[name]
	canned, hasCanned := f.outputs[name]
	handler := f.handlers[name]
	cold := !f.warm[name]
	f.warm[name] = true
	reqID := fmt.Sprintf("req-%d", f.nextReqID)
	f.nextReqID++
	report := f.report
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out LambdaOutput
	switch {
	case hasCanned:
		out = canned
	case handler != nil:
		out = invokeHandler(ctx, handler, params.Payload)
	default:
		out = LambdaOutput{
			StatusCode:    200,
			FunctionError: "Unhandled",
			Payload:       errorPayload("ResourceNotFoundException", "Function not found: "+name),
		}
	}
	if out.StatusCode == 0 {
		out.StatusCode = 200
	}

	logs := out.Logs
	if logs != "" && !strings.HasSuffix(logs, "\n") {
		logs += "\n"
	}
	logs += reportLine(reqID, report, cold)

	result := &awslambda.InvokeOutput{
		StatusCode:      out.StatusCode,
		Payload:         out.Payload,
		ExecutedVersion: aws.String("$LATEST"),
		LogResult:       aws.String(base64.StdEncoding.EncodeToString([]byte(logs))),
	}
	if out.FunctionError != "" {
		result.FunctionError = aws.String(out.FunctionError)
	}
	return result, nil
}

func invokeHandler(ctx context.Context, handler lambda.Handler, payload []byte) LambdaOutput {
	resp, err := handler.Invoke(ctx, payload)
	if err != nil {
		return LambdaOutput{
			FunctionError: "Unhandled",
			Payload:       errorPayload(errorType(err), err.Error()),
		}
	}
	return LambdaOutput{Payload: resp}
}

func errorType(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func errorPayload(errType, message string) []byte {
	raw, err := json.Marshal(map[string]any{
		"errorType":    errType,
		"errorMessage": message,
	})
	if err != nil {
		return []byte(`{"errorType":"Unknown"}`)
	}
	return raw
}

func reportLine(reqID string, r InvocationReport, cold bool) string {
	billed := r.Duration.Round(time.Millisecond)
	if billed < r.Duration {
		billed += time.Millisecond
	}
	parts := []string{
		"REPORT RequestId: " + reqID,
		fmt.Sprintf("Duration: %.2f ms", ms(r.Duration)),
		fmt.Sprintf("Billed Duration: %d ms", billed.Milliseconds()),
		fmt.Sprintf("Memory Size: %d MB", r.MemorySizeMB),
		fmt.Sprintf("Max Memory Used: %d MB", r.MaxMemoryMB),
	}
	if cold && r.InitDuration > 0 {
		parts = append(parts, fmt.Sprintf("Init Duration: %.2f ms", ms(r.InitDuration)))
	}
	return strings.Join(parts, "\t") + "\t\n"
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
