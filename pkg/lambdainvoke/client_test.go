package lambdainvoke

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	inputs []*lambda.InvokeInput
	out    *lambda.InvokeOutput
	err    error
}

func (f *fakeAPI) Invoke(_ context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.inputs = append(f.inputs, params)
	return f.out, f.err
}

const coldReport = "START RequestId: abc Version: $LATEST\n" +
	"END RequestId: abc\n" +
	"REPORT RequestId: abc\tDuration: 12.34 ms\tBilled Duration: 13 ms\tMemory Size: 1024 MB\tMax Memory Used: 71 MB\tInit Duration: 150.50 ms\t\n"

func tail(s string) *string {
	return aws.String(base64.StdEncoding.EncodeToString([]byte(s)))
}

func TestClient_InvokeSendsSynchronousRequest(t *testing.T) {
	fake := &fakeAPI{out: &lambda.InvokeOutput{
		StatusCode:      200,
		Payload:         []byte(`{"head":[],"body":"x"}`),
		ExecutedVersion: aws.String("$LATEST"),
		LogResult:       tail(coldReport),
	}}
	c, err := NewClient(context.Background(), WithAPI(fake), WithQualifier("live"))
	require.NoError(t, err)

	res, err := c.Invoke(context.Background(), " SC-app-production-Inertia-SSR ", map[string]any{"component": "Home"})
	require.NoError(t, err)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	require.Equal(t, "SC-app-production-Inertia-SSR", aws.ToString(in.FunctionName))
	require.Equal(t, types.InvocationTypeRequestResponse, in.InvocationType)
	require.Equal(t, types.LogTypeTail, in.LogType)
	require.Equal(t, "live", aws.ToString(in.Qualifier))
	require.JSONEq(t, `{"component":"Home"}`, string(in.Payload))

	require.Equal(t, int32(200), res.StatusCode)
	require.Equal(t, "$LATEST", res.ExecutedVersion)
	require.Equal(t, coldReport, res.Logs)
	require.Equal(t, "abc", res.Report.RequestID)
	require.True(t, res.Report.ColdStart())

	var body struct {
		Body string `json:"body"`
	}
	require.NoError(t, res.Decode(&body))
	require.Equal(t, "x", body.Body)
}

func TestClient_InvokePassesRawPayloadThrough(t *testing.T) {
	fake := &fakeAPI{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{}`)}}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "fn", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	_, err = c.Invoke(context.Background(), "fn", nil)
	require.NoError(t, err)

	require.Equal(t, `{"a":1}`, string(fake.inputs[0].Payload))
	require.Equal(t, `{}`, string(fake.inputs[1].Payload))
	require.Nil(t, fake.inputs[0].Qualifier)
}

func TestClient_InvokeValidatesFunctionName(t *testing.T) {
	fake := &fakeAPI{}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "  ", nil)
	require.Error(t, err)
	require.Empty(t, fake.inputs)
}

func TestClient_InvokeRejectsUnencodablePayload(t *testing.T) {
	fake := &fakeAPI{}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "fn", map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	require.Empty(t, fake.inputs)
}

func TestClient_InvokeFunctionError(t *testing.T) {
	fake := &fakeAPI{out: &lambda.InvokeOutput{
		StatusCode:    200,
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorType":"ReferenceError","errorMessage":"window is not defined","trace":["at render"]}`),
		LogResult:     tail("REPORT RequestId: r1\tDuration: 1 ms\n"),
	}}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "fn", nil)
	var fnErr *FunctionError
	require.ErrorAs(t, err, &fnErr)
	require.Equal(t, "Unhandled", fnErr.Kind)
	require.Equal(t, "ReferenceError", fnErr.ErrorType)
	require.Equal(t, "window is not defined", fnErr.ErrorMessage)
	require.Equal(t, []string{"at render"}, fnErr.Trace)
	require.Contains(t, fnErr.Logs, "REPORT")
	require.Contains(t, err.Error(), "window is not defined")
}

func TestClient_InvokeFunctionErrorWithOpaquePayload(t *testing.T) {
	fake := &fakeAPI{out: &lambda.InvokeOutput{
		StatusCode:    200,
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`Task timed out after 3.00 seconds`),
	}}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "fn", nil)
	var fnErr *FunctionError
	require.ErrorAs(t, err, &fnErr)
	require.Equal(t, "Task timed out after 3.00 seconds", fnErr.ErrorMessage)
}

func TestClient_InvokeStatusError(t *testing.T) {
	fake := &fakeAPI{out: &lambda.InvokeOutput{StatusCode: 502}}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "fn", nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, int32(502), statusErr.StatusCode)
}

func TestClient_InvokeTransportErrorIsWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	fake := &fakeAPI{err: cause}
	c, err := NewClient(context.Background(), WithAPI(fake))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "fn", nil)
	require.ErrorIs(t, err, cause)
}

func TestNewClient_BuildsSDKClientFromConfig(t *testing.T) {
	cfg := aws.Config{Region: "us-east-1"}
	c, err := NewClient(context.Background(), WithAWSConfig(cfg), WithEndpoint("http://localhost:4566"))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestNewClient_LoadsDefaultConfigWithOverrides(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	t.Setenv("AWS_PROFILE", "")

	c, err := NewClient(context.Background(),
		WithRegion("eu-west-1"),
		WithStaticCredentials("test", "test", ""),
		WithEndpoint("http://localhost:4566"),
	)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestResult_DecodeErrors(t *testing.T) {
	var nilResult *Result
	require.Error(t, nilResult.Decode(&struct{}{}))
	require.Error(t, (&Result{Payload: []byte("not json")}).Decode(&struct{}{}))
}

func TestParseReport(t *testing.T) {
	r := ParseReport(coldReport)
	require.Equal(t, "abc", r.RequestID)
	require.Equal(t, 12340*time.Microsecond, r.Duration)
	require.Equal(t, 13*time.Millisecond, r.BilledDuration)
	require.Equal(t, 150500*time.Microsecond, r.InitDuration)
	require.Equal(t, 1024, r.MemorySizeMB)
	require.Equal(t, 71, r.MaxMemoryUsedMB)
	require.True(t, r.ColdStart())
	require.Equal(t, 162840*time.Microsecond, r.Total())

	fields := r.Fields()
	require.Equal(t, "abc", fields["request"])
	require.InDelta(t, 12.34, fields["execution_time"], 1e-9)
	require.InDelta(t, 162.84, fields["total_time"], 1e-9)
	require.Equal(t, 1024, fields["memory"])
	require.Equal(t, true, fields["cold_start"])
}

func TestParseReport_WarmAndMissing(t *testing.T) {
	warm := ParseReport("REPORT RequestId: w\tDuration: 2.00 ms\tBilled Duration: 2 ms\tMemory Size: 512 MB\tMax Memory Used: bogus\t")
	require.False(t, warm.ColdStart())
	require.Equal(t, 0, warm.MaxMemoryUsedMB)
	require.Equal(t, 512, warm.MemorySizeMB)

	require.True(t, ParseReport("").Empty())
	require.True(t, ParseReport("START RequestId: x\nEND RequestId: x").Empty())
}
