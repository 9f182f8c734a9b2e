// Package infra declares the SSR function as an AWS CDK construct, sized and
// named from a function.Function descriptor.
package infra

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/sidecarssr/pkg/function"
	"github.com/theory-cloud/sidecarssr/pkg/naming"
)

// FunctionPlan is the deployable shape of a descriptor, in plain Go values.
type FunctionPlan struct {
	FunctionName string
	Handler      string
	MemoryMB     int32
	Timeout      time.Duration
	// AssetPath is the directory uploaded as the function code.
	AssetPath string
	// Exclude keeps everything outside the package manifest out of the asset.
	Exclude []string
	// Generated holds in-memory files (the route module) relative to AssetPath.
	Generated   map[string]string
	Environment map[string]string
}

// Plan resolves fn's manifest and metadata. It does not run the build; call
// function.Prepare first when the bundle may be stale.
func Plan(ctx context.Context, fn function.Function, app, env string) (FunctionPlan, error) {
	if fn == nil {
		return FunctionPlan{}, errors.New("infra: function is nil")
	}
	if err := fn.Validate(); err != nil {
		return FunctionPlan{}, err
	}
	pkg, err := fn.Package(ctx)
	if err != nil {
		return FunctionPlan{}, err
	}

	base := pkg.BasePath()
	exclude := []string{"*"}
	for _, path := range pkg.Paths() {
		rel, err := filepath.Rel(base, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return FunctionPlan{}, fmt.Errorf("infra: %s is outside the package base %s", path, base)
		}
		rel = filepath.ToSlash(rel)
		exclude = append(exclude, "!"+rel, "!"+rel+"/**")
	}
	for name := range pkg.Strings() {
		exclude = append(exclude, "!"+filepath.ToSlash(name))
	}

	return FunctionPlan{
		FunctionName: naming.FunctionName(app, env, fn.Name()),
		Handler:      fn.Handler(),
		MemoryMB:     fn.Memory(),
		Timeout:      fn.Timeout(),
		AssetPath:    base,
		Exclude:      exclude,
		Generated:    pkg.Strings(),
		Environment: map[string]string{
			"NODE_ENV": nodeEnv(env),
		},
	}, nil
}

func nodeEnv(env string) string {
	if naming.IsProduction(env) {
		return "production"
	}
	return "development"
}

// SSRFunctionProps configures NewSSRFunction.
type SSRFunctionProps struct {
	Function    function.Function
	App         string
	Environment string
	// Runtime defaults to Node.js 20.
	Runtime awslambda.Runtime
	// Code overrides the asset built from the package manifest.
	Code awslambda.Code
}

// SSRFunction is the CDK view of the deployed renderer.
type SSRFunction struct {
	Fn   awslambda.Function
	Plan FunctionPlan
}

// NewSSRFunction adds the SSR Lambda function to scope. Generated files are
// written into the asset directory before it is staged so the route module
// ships with the bundle.
func NewSSRFunction(ctx context.Context, scope constructs.Construct, id string, props SSRFunctionProps) (*SSRFunction, error) {
	plan, err := Plan(ctx, props.Function, props.App, props.Environment)
	if err != nil {
		return nil, err
	}
	if err := writeGenerated(plan); err != nil {
		return nil, err
	}

	runtime := props.Runtime
	if runtime == nil {
		runtime = awslambda.Runtime_NODEJS_20_X()
	}
	code := props.Code
	if code == nil {
		code = awslambda.Code_FromAsset(jsii.String(plan.AssetPath), &awss3assets.AssetOptions{
			Exclude: jsii.Strings(plan.Exclude...),
		})
	}

	env := make(map[string]*string, len(plan.Environment))
	for k, v := range plan.Environment {
		env[k] = jsii.String(v)
	}

	fn := awslambda.NewFunction(scope, jsii.String(id), &awslambda.FunctionProps{
		FunctionName: jsii.String(plan.FunctionName),
		Handler:      jsii.String(plan.Handler),
		MemorySize:   jsii.Number(float64(plan.MemoryMB)),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(plan.Timeout.Seconds())),
		Runtime:      runtime,
		Code:         code,
		Environment:  &env,
		Description:  jsii.String("Inertia server-side renderer"),
	})
	return &SSRFunction{Fn: fn, Plan: plan}, nil
}

// NewSSRStack is a stack holding only the SSR function, for apps that deploy
// it on its own.
func NewSSRStack(ctx context.Context, scope constructs.Construct, id string, stackProps *awscdk.StackProps, props SSRFunctionProps) (awscdk.Stack, *SSRFunction, error) {
	stack := awscdk.NewStack(scope, jsii.String(id), stackProps)
	fn, err := NewSSRFunction(ctx, stack, "SSRFunction", props)
	if err != nil {
		return nil, nil, err
	}
	awscdk.NewCfnOutput(stack, jsii.String("SSRFunctionName"), &awscdk.CfnOutputProps{
		Value: fn.Fn.FunctionName(),
	})
	return stack, fn, nil
}
