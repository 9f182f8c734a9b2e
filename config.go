package sidecarssr

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the SSR gateway configuration. Build it once (LoadConfig or a
// literal) and pass it in; nothing reads global state at dispatch time.
type Config struct {
	// Enabled turns server-side rendering on.
	Enabled bool `yaml:"enabled"`
	// Handler is the registry key of the function to invoke, e.g. "vite".
	Handler string `yaml:"handler"`
	// Debug surfaces remote failures instead of falling back.
	Debug bool `yaml:"debug"`
	// Timings logs the Lambda REPORT for each successful render.
	Timings bool `yaml:"timings"`
	// Ziggy ships the named-route table with the bundle.
	Ziggy bool `yaml:"ziggy"`

	// RouteOnly and RouteExcept filter the shipped route table.
	RouteOnly   []string `yaml:"route_only"`
	RouteExcept []string `yaml:"route_except"`
	// RoutesFile is a YAML or JSON route table.
	RoutesFile string `yaml:"routes_file"`

	Sidecar SidecarConfig `yaml:"-"`
}

// SidecarConfig is the deployment context used to name and reach the function.
type SidecarConfig struct {
	App         string `yaml:"app"`
	Environment string `yaml:"env"`
	Region      string `yaml:"region"`
	// Endpoint overrides the Lambda endpoint (LocalStack and friends).
	Endpoint  string `yaml:"endpoint"`
	Qualifier string `yaml:"qualifier"`
	// BasePath is the application root: build cwd and package base.
	BasePath string `yaml:"base_path"`
}

type configFile struct {
	SSR     Config        `yaml:"ssr"`
	Sidecar SidecarConfig `yaml:"sidecar"`
}

const envPrefix = "SIDECAR_SSR_"

// DefaultConfig is SSR disabled, with the application root at ".".
func DefaultConfig() Config {
	return Config{Sidecar: SidecarConfig{BasePath: ".", Environment: "production"}}
}

// LoadConfig reads a YAML file (when path is non-empty) over DefaultConfig and
// then applies SIDECAR_SSR_* environment overrides.
//
//	ssr:
//	  enabled: true
//	  handler: vite
//	sidecar:
//	  app: shop
//	  env: production
func LoadConfig(path string) (Config, error) {
	file := configFile{SSR: DefaultConfig()}
	file.Sidecar = file.SSR.Sidecar

	if path != "" {
		//nolint:gosec // Config path is operator supplied.
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg := file.SSR
	cfg.Sidecar = file.Sidecar
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Handler = strings.TrimSpace(cfg.Handler)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	bools := map[string]*bool{
		"ENABLED": &cfg.Enabled,
		"DEBUG":   &cfg.Debug,
		"TIMINGS": &cfg.Timings,
		"ZIGGY":   &cfg.Ziggy,
	}
	for key, dst := range bools {
		raw, ok := os.LookupEnv(envPrefix + key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
		}
		*dst = v
	}

	strs := map[string]*string{
		"HANDLER":     &cfg.Handler,
		"ROUTES_FILE": &cfg.RoutesFile,
		"APP":         &cfg.Sidecar.App,
		"ENV":         &cfg.Sidecar.Environment,
		"REGION":      &cfg.Sidecar.Region,
		"ENDPOINT":    &cfg.Sidecar.Endpoint,
		"QUALIFIER":   &cfg.Sidecar.Qualifier,
		"BASE_PATH":   &cfg.Sidecar.BasePath,
	}
	for key, dst := range strs {
		if raw, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(raw)
		}
	}
	return nil
}
