package function

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/theory-cloud/sidecarssr/pkg/logger"
	"github.com/theory-cloud/sidecarssr/pkg/naming"
	"github.com/theory-cloud/sidecarssr/pkg/observability"
	"github.com/theory-cloud/sidecarssr/pkg/routes"
)

// Descriptor is the configuration-driven Function used for every built-in
// layout.
type Descriptor struct {
	layout Layout

	root        string
	environment string
	name        string
	memory      int32
	timeout     time.Duration

	routes       routes.Provider
	routesOnly   []string
	routesExcept []string
	withRoutes   bool

	runner       Runner
	buildTimeout time.Duration
	log          observability.StructuredLogger
}

var _ Function = (*Descriptor)(nil)

type Option func(*Descriptor)

// WithRoot sets the application root: the build working directory and the
// base for package paths.
func WithRoot(root string) Option {
	return func(d *Descriptor) { d.root = root }
}

func WithEnvironment(env string) Option {
	return func(d *Descriptor) { d.environment = env }
}

func WithName(name string) Option {
	return func(d *Descriptor) { d.name = name }
}

func WithMemory(mb int32) Option {
	return func(d *Descriptor) { d.memory = mb }
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Descriptor) { d.timeout = timeout }
}

// WithRouteTable toggles shipping the named-route module. It only takes effect
// when a routes.Provider is also attached.
func WithRouteTable(enabled bool) Option {
	return func(d *Descriptor) { d.withRoutes = enabled }
}

// WithRoutes attaches the route table source. Leaving it unset means the
// feature is not installed.
func WithRoutes(provider routes.Provider) Option {
	return func(d *Descriptor) { d.routes = provider }
}

// WithRouteFilter limits which named routes ship, using path.Match patterns.
func WithRouteFilter(only, except []string) Option {
	return func(d *Descriptor) {
		d.routesOnly = append([]string(nil), only...)
		d.routesExcept = append([]string(nil), except...)
	}
}

func WithRunner(runner Runner) Option {
	return func(d *Descriptor) { d.runner = runner }
}

func WithBuildTimeout(timeout time.Duration) Option {
	return func(d *Descriptor) { d.buildTimeout = timeout }
}

func WithLogger(l observability.StructuredLogger) Option {
	return func(d *Descriptor) { d.log = l }
}

// New returns a descriptor for layout with the package defaults applied.
func New(layout Layout, opts ...Option) *Descriptor {
	d := &Descriptor{
		layout:       layout,
		root:         ".",
		name:         DefaultName,
		memory:       DefaultMemoryMB,
		timeout:      DefaultTimeout,
		runner:       ExecRunner{},
		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d
}

func (d *Descriptor) Name() string           { return d.name }
func (d *Descriptor) Memory() int32          { return d.memory }
func (d *Descriptor) Handler() string        { return d.layout.Handler }
func (d *Descriptor) Timeout() time.Duration { return d.timeout }
func (d *Descriptor) Layout() Layout         { return d.layout }
func (d *Descriptor) Root() string           { return d.root }

func (d *Descriptor) Validate() error {
	if err := Validate(d); err != nil {
		return err
	}
	if len(d.layout.Include) == 0 {
		return fmt.Errorf("%w: layout %q ships no files", ErrInvalidFunction, d.layout.Key)
	}
	if len(d.layout.BuildCommand) == 0 {
		return fmt.Errorf("%w: layout %q has no build command", ErrInvalidFunction, d.layout.Key)
	}
	return nil
}

func (d *Descriptor) logger() observability.StructuredLogger {
	return logger.Or(d.log).WithField("layout", d.layout.Key)
}

// Package lists the compiled bundle and, when enabled, the generated route
// module.
func (d *Descriptor) Package(ctx context.Context) (*Package, error) {
	pkg := NewPackage(filepath.Join(d.root, d.layout.PackageBase)).Include(d.layout.Include...)
	if err := d.includeRoutes(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (d *Descriptor) shouldIncludeRoutes() bool {
	return d.withRoutes && d.routes != nil && d.layout.RoutesModule != ""
}

func (d *Descriptor) includeRoutes(ctx context.Context, pkg *Package) error {
	if !d.shouldIncludeRoutes() {
		if d.withRoutes {
			d.logger().Debug("Route table requested but no route provider is installed")
		}
		return nil
	}

	table, err := d.routes.Routes(ctx)
	if err != nil {
		return fmt.Errorf("function: load routes: %w", err)
	}
	if len(d.routesOnly) > 0 || len(d.routesExcept) > 0 {
		table, err = table.Filter(d.routesOnly, d.routesExcept)
		if err != nil {
			return err
		}
	}
	module, err := routes.RenderModule(table, d.layout.RoutesFormat)
	if err != nil {
		return err
	}

	d.logger().Info("Adding route table to the package", map[string]any{
		"file":   d.layout.RoutesModule,
		"routes": len(table.Routes),
	})
	pkg.IncludeStrings(map[string]string{d.layout.RoutesModule: module})
	return nil
}

// BuildCommand is the command BeforeDeployment runs.
func (d *Descriptor) BuildCommand() Command {
	args := append([]string(nil), d.layout.BuildCommand...)
	if d.layout.ProductionFlag != "" && naming.IsProduction(d.environment) {
		args = append(args, d.layout.ProductionFlag)
	}
	return Command{Dir: d.root, Args: args}
}

// BeforeDeployment compiles the SSR bundle. A failed or timed-out build
// returns *BuildError and nothing may be uploaded.
func (d *Descriptor) BeforeDeployment(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := d.logger()
	log.Info("Executing beforeDeployment hooks")
	log.Info("Compiling Inertia SSR bundle")

	cmd := d.BuildCommand()
	log.Info("Running "+cmd.String(), map[string]any{"dir": cmd.Dir})

	runner := d.runner
	if runner == nil {
		runner = ExecRunner{}
	}
	if err := runBuild(ctx, runner, cmd, d.buildTimeout); err != nil {
		log.Error("JavaScript SSR bundle failed to compile", map[string]any{"error": err.Error()})
		return err
	}

	log.Info("JavaScript SSR bundle compiled")
	return nil
}
