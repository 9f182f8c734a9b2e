package lambdainvoke

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Client invokes Lambda functions synchronously.
type Client interface {
	// Invoke runs the function with payload (JSON-encoded unless it already
	// is []byte or json.RawMessage) and waits for the result. Any
	// non-successful outcome is returned as an error: transport failures,
	// non-2xx status codes (*StatusError) and function errors (*FunctionError).
	Invoke(ctx context.Context, functionName string, payload any) (*Result, error)
}

// Result is a successful synchronous invocation.
type Result struct {
	StatusCode      int32
	ExecutedVersion string
	Payload         []byte
	Logs            string
	Report          Report
}

// Decode unmarshals the function's JSON response into out.
func (r *Result) Decode(out any) error {
	if r == nil {
		return errors.New("lambdainvoke: result is nil")
	}
	if err := json.Unmarshal(r.Payload, out); err != nil {
		return fmt.Errorf("lambdainvoke: decode payload: %w", err)
	}
	return nil
}

// API is the subset of the Lambda service client used here.
type API interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

type client struct {
	api       API
	qualifier string
}

type clientOptions struct {
	api       API
	awsCfg    *aws.Config
	region    string
	endpoint  string
	creds     aws.CredentialsProvider
	qualifier string
}

type Option func(*clientOptions)

func WithAWSConfig(cfg aws.Config) Option {
	return func(opts *clientOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

func WithAPI(api API) Option {
	return func(opts *clientOptions) {
		opts.api = api
	}
}

func WithRegion(region string) Option {
	return func(opts *clientOptions) {
		opts.region = strings.TrimSpace(region)
	}
}

// WithEndpoint points the client at a Lambda-compatible endpoint such as
// LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(opts *clientOptions) {
		opts.endpoint = strings.TrimSpace(endpoint)
	}
}

// WithStaticCredentials is intended for local emulators.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(opts *clientOptions) {
		opts.creds = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	}
}

// WithQualifier invokes a specific version or alias.
func WithQualifier(qualifier string) Option {
	return func(opts *clientOptions) {
		opts.qualifier = strings.TrimSpace(qualifier)
	}
}

func NewClient(ctx context.Context, options ...Option) (Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &clientOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	if opts.api != nil {
		return &client{api: opts.api, qualifier: opts.qualifier}, nil
	}

	var cfg aws.Config
	if opts.awsCfg != nil {
		cfg = *opts.awsCfg
	} else {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.region))
		}
		if opts.creds != nil {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(opts.creds))
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	svc := lambda.NewFromConfig(cfg, func(o *lambda.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
		}
	})
	return &client{api: svc, qualifier: opts.qualifier}, nil
}

func (c *client) Invoke(ctx context.Context, functionName string, payload any) (*Result, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("lambdainvoke: client is nil")
	}
	functionName = strings.TrimSpace(functionName)
	if functionName == "" {
		return nil, errors.New("lambdainvoke: function name is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	input := &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		LogType:        types.LogTypeTail,
		Payload:        body,
	}
	if c.qualifier != "" {
		input.Qualifier = aws.String(c.qualifier)
	}

	out, err := c.api.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("lambdainvoke: invoke %s: %w", functionName, err)
	}
	if out == nil {
		return nil, fmt.Errorf("lambdainvoke: invoke %s: empty output", functionName)
	}

	logs := decodeLogs(aws.ToString(out.LogResult))
	if out.FunctionError != nil {
		return nil, newFunctionError(functionName, aws.ToString(out.FunctionError), out.Payload, logs)
	}
	if out.StatusCode < 200 || out.StatusCode > 299 {
		return nil, &StatusError{FunctionName: functionName, StatusCode: out.StatusCode}
	}

	return &Result{
		StatusCode:      out.StatusCode,
		ExecutedVersion: aws.ToString(out.ExecutedVersion),
		Payload:         out.Payload,
		Logs:            logs,
		Report:          ParseReport(logs),
	}, nil
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("lambdainvoke: encode payload: %w", err)
		}
		return raw, nil
	}
}

// decodeLogs turns the base64 log tail into text; undecodable tails are dropped.
func decodeLogs(logResult string) string {
	if logResult == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(logResult)
	if err != nil {
		return ""
	}
	return string(raw)
}
