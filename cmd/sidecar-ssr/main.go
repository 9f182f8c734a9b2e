package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/theory-cloud/sidecarssr"
	"github.com/theory-cloud/sidecarssr/pkg/function"
	"github.com/theory-cloud/sidecarssr/pkg/lambdainvoke"
	"github.com/theory-cloud/sidecarssr/pkg/logger"
	"github.com/theory-cloud/sidecarssr/pkg/naming"
	"github.com/theory-cloud/sidecarssr/pkg/observability"
	obszap "github.com/theory-cloud/sidecarssr/pkg/observability/zap"
)

const usage = `usage: sidecar-ssr <command> [flags]

commands:
  functions   list the registered SSR function layouts
  manifest    print the deployment manifest of a layout
  build       compile the SSR bundle, then print its manifest
  render      render a page (JSON on stdin or -page) through Lambda
`

// newLambdaClient is replaced in tests.
var newLambdaClient = func(ctx context.Context, cfg sidecarssr.Config) (lambdainvoke.Client, error) {
	opts := []lambdainvoke.Option{
		lambdainvoke.WithRegion(cfg.Sidecar.Region),
		lambdainvoke.WithEndpoint(cfg.Sidecar.Endpoint),
		lambdainvoke.WithQualifier(cfg.Sidecar.Qualifier),
	}
	return lambdainvoke.NewClient(ctx, opts...)
}

// newLogger is replaced in tests.
var newLogger = func(ctx context.Context, level string) (observability.StructuredLogger, error) {
	return obszap.NewZapLogger(observability.LoggerConfig{Level: level},
		obszap.WithEnvironmentErrorNotifications(ctx),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns 0 on success, 1 when a render fell back or a build failed, and
// 2 for usage and configuration errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet("sidecar-ssr "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("SIDECAR_SSR_CONFIG"), "YAML configuration file")
	handler := fs.String("handler", "", "function layout (defaults to ssr.handler from the configuration)")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	pagePath := fs.String("page", "", "page JSON file for render (default stdin)")

	switch cmd {
	case "functions", "manifest", "build", "render":
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "sidecar-ssr: unknown command %q\n%s", cmd, usage)
		return 2
	}
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := sidecarssr.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	if *handler != "" {
		cfg.Handler = strings.TrimSpace(*handler)
	}

	log, err := newLogger(ctx, *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	logger.SetLogger(log)
	defer func() {
		_ = log.Flush(context.Background())
		_ = log.Close()
		logger.SetLogger(nil)
	}()

	registry := sidecarssr.DefaultRegistry(cfg)

	switch cmd {
	case "functions":
		return listFunctions(stdout, stderr, cfg, registry)
	case "manifest":
		return printManifest(ctx, stdout, stderr, cfg, registry, false)
	case "build":
		return printManifest(ctx, stdout, stderr, cfg, registry, true)
	default:
		return render(ctx, stdin, stdout, stderr, cfg, registry, *pagePath)
	}
}

func listFunctions(stdout, stderr io.Writer, cfg sidecarssr.Config, registry *function.Registry) int {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYOUT\tFUNCTION\tHANDLER\tMEMORY\tTIMEOUT")
	for _, name := range registry.Names() {
		fn, err := registry.Resolve(name)
		if err != nil {
			fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
			return 2
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dMB\t%s\n",
			name,
			naming.FunctionName(cfg.Sidecar.App, cfg.Sidecar.Environment, fn.Name()),
			fn.Handler(),
			fn.Memory(),
			fn.Timeout(),
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	return 0
}

type manifest struct {
	Layout         string   `json:"layout"`
	FunctionName   string   `json:"function_name"`
	Handler        string   `json:"handler"`
	MemoryMB       int32    `json:"memory_mb"`
	TimeoutSeconds float64  `json:"timeout_seconds"`
	BasePath       string   `json:"base_path"`
	Files          []string `json:"files"`
}

func printManifest(ctx context.Context, stdout, stderr io.Writer, cfg sidecarssr.Config, registry *function.Registry, build bool) int {
	if cfg.Handler == "" {
		fmt.Fprintln(stderr, "sidecar-ssr: FAIL: no handler configured (set ssr.handler or pass -handler)")
		return 2
	}
	fn, err := registry.Resolve(cfg.Handler)
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}

	var pkg *function.Package
	if build {
		pkg, err = function.Prepare(ctx, fn)
	} else {
		pkg, err = fn.Package(ctx)
	}
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		var buildErr *function.BuildError
		if errors.As(err, &buildErr) {
			return 1
		}
		return 2
	}

	out := manifest{
		Layout:         strings.ToLower(cfg.Handler),
		FunctionName:   naming.FunctionName(cfg.Sidecar.App, cfg.Sidecar.Environment, fn.Name()),
		Handler:        fn.Handler(),
		MemoryMB:       fn.Memory(),
		TimeoutSeconds: fn.Timeout().Seconds(),
		BasePath:       pkg.BasePath(),
		Files:          pkg.Files(),
	}
	return writeJSON(stdout, stderr, out)
}

func render(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cfg sidecarssr.Config, registry *function.Registry, pagePath string) int {
	raw, err := readPage(stdin, pagePath)
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	var page sidecarssr.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: page is not a JSON object: %v\n", err)
		return 2
	}

	client, err := newLambdaClient(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	gw, err := sidecarssr.NewGateway(cfg, registry, client, sidecarssr.WithLogger(logger.Logger()))
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}

	resp, err := gw.Dispatch(ctx, page)
	if err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	if resp == nil {
		fmt.Fprintln(stderr, "sidecar-ssr: no server-rendered response, the page renders client-side")
		return 1
	}
	return writeJSON(stdout, stderr, resp)
}

func readPage(stdin io.Reader, pagePath string) ([]byte, error) {
	if pagePath != "" && pagePath != "-" {
		//nolint:gosec // Page path is operator supplied.
		return os.ReadFile(pagePath)
	}
	if stdin == nil {
		return nil, errors.New("no page given")
	}
	return io.ReadAll(stdin)
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "sidecar-ssr: FAIL: %v\n", err)
		return 2
	}
	return 0
}
