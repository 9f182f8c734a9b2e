package sidecarssr

import (
	"github.com/theory-cloud/sidecarssr/pkg/function"
	"github.com/theory-cloud/sidecarssr/pkg/routes"
)

// FunctionOptions derives descriptor options from cfg: the application root,
// the deployment environment, and the route table settings. A routes file is
// attached as the route provider when one is configured.
func FunctionOptions(cfg Config) []function.Option {
	opts := []function.Option{
		function.WithRoot(cfg.Sidecar.BasePath),
		function.WithEnvironment(cfg.Sidecar.Environment),
		function.WithRouteTable(cfg.Ziggy),
	}
	if cfg.RoutesFile != "" {
		opts = append(opts, function.WithRoutes(routes.File(cfg.RoutesFile)))
	}
	if len(cfg.RouteOnly) > 0 || len(cfg.RouteExcept) > 0 {
		opts = append(opts, function.WithRouteFilter(cfg.RouteOnly, cfg.RouteExcept))
	}
	return opts
}

// DefaultRegistry registers the built-in layouts configured from cfg. Extra
// opts apply after the configuration-derived ones.
func DefaultRegistry(cfg Config, opts ...function.Option) *function.Registry {
	combined := append(FunctionOptions(cfg), opts...)
	return function.Defaults(combined...)
}
