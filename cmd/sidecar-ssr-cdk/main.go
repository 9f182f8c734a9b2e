// Command sidecar-ssr-cdk is the CDK app that deploys the SSR function. Point
// cdk.json at `go run ./cmd/sidecar-ssr-cdk`.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/sidecarssr"
	"github.com/theory-cloud/sidecarssr/pkg/infra"
	"github.com/theory-cloud/sidecarssr/pkg/naming"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer jsii.Close()

	cfg, err := sidecarssr.LoadConfig(os.Getenv("SIDECAR_SSR_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidecar-ssr-cdk: FAIL: %v\n", err)
		return 2
	}
	if cfg.Handler == "" {
		fmt.Fprintln(os.Stderr, "sidecar-ssr-cdk: FAIL: no handler configured")
		return 2
	}

	fn, err := sidecarssr.DefaultRegistry(cfg).Resolve(cfg.Handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidecar-ssr-cdk: FAIL: %v\n", err)
		return 2
	}

	app := awscdk.NewApp(nil)
	_, _, err = infra.NewSSRStack(context.Background(), app,
		naming.FunctionName(cfg.Sidecar.App, cfg.Sidecar.Environment, "SSR"),
		&awscdk.StackProps{Env: stackEnv(cfg)},
		infra.SSRFunctionProps{
			Function:    fn,
			App:         cfg.Sidecar.App,
			Environment: cfg.Sidecar.Environment,
		},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidecar-ssr-cdk: FAIL: %v\n", err)
		return 2
	}

	app.Synth(nil)
	return 0
}

func stackEnv(cfg sidecarssr.Config) *awscdk.Environment {
	region := cfg.Sidecar.Region
	if region == "" {
		region = os.Getenv("CDK_DEFAULT_REGION")
	}
	account := os.Getenv("CDK_DEFAULT_ACCOUNT")
	if region == "" && account == "" {
		return nil
	}
	env := &awscdk.Environment{}
	if region != "" {
		env.Region = jsii.String(region)
	}
	if account != "" {
		env.Account = jsii.String(account)
	}
	return env
}
