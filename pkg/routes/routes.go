// Package routes builds the named-route table that is shipped next to the SSR
// bundle so server-rendered code can generate the same URLs as the browser.
//
// The JSON shape matches what the Ziggy JavaScript client expects:
//
//	{"url": "...", "port": null, "defaults": {}, "routes": {"name": {"uri": "...", "methods": [...]}}}
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route is a single named route of the host application.
type Route struct {
	URI        string            `json:"uri" yaml:"uri"`
	Methods    []string          `json:"methods" yaml:"methods"`
	Domain     string            `json:"domain,omitempty" yaml:"domain,omitempty"`
	Parameters []string          `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Wheres     map[string]string `json:"wheres,omitempty" yaml:"wheres,omitempty"`
}

// Table is the full route table plus the base URL used to build absolute URLs.
type Table struct {
	URL      string           `json:"url" yaml:"url"`
	Port     *int             `json:"port" yaml:"port"`
	Defaults map[string]any   `json:"defaults" yaml:"defaults"`
	Routes   map[string]Route `json:"routes" yaml:"routes"`
}

// Provider supplies the host application's route table. A nil Provider means
// the route-table feature is not installed.
type Provider interface {
	Routes(ctx context.Context) (Table, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Table, error)

func (f ProviderFunc) Routes(ctx context.Context) (Table, error) { return f(ctx) }

// Static returns a Provider that always yields table.
func Static(table Table) Provider {
	return ProviderFunc(func(context.Context) (Table, error) { return table, nil })
}

// File returns a Provider that reads a YAML or JSON route table from disk on
// every call.
func File(filename string) Provider {
	return ProviderFunc(func(ctx context.Context) (Table, error) {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}
		//nolint:gosec // Path comes from operator configuration.
		raw, err := os.ReadFile(filename)
		if err != nil {
			return Table{}, fmt.Errorf("routes: read %s: %w", filename, err)
		}
		var table Table
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return Table{}, fmt.Errorf("routes: parse %s: %w", filename, err)
		}
		return table, nil
	})
}

var parameterPattern = regexp.MustCompile(`\{([^}?]+)\??\}`)

// ParametersFromURI returns the placeholder names of uri in order, e.g.
// "posts/{post}/comments/{comment?}" yields [post comment].
func ParametersFromURI(uri string) []string {
	matches := parameterPattern.FindAllStringSubmatch(uri, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Normalize fills derived fields: upper-cased methods, parameters parsed from
// the URI when absent, and non-nil maps so the JSON form is stable.
func (t Table) Normalize() Table {
	out := Table{
		URL:      strings.TrimRight(strings.TrimSpace(t.URL), "/"),
		Port:     t.Port,
		Defaults: t.Defaults,
		Routes:   make(map[string]Route, len(t.Routes)),
	}
	if out.Defaults == nil {
		out.Defaults = map[string]any{}
	}
	for name, route := range t.Routes {
		methods := make([]string, 0, len(route.Methods))
		for _, m := range route.Methods {
			if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
				methods = append(methods, m)
			}
		}
		route.Methods = methods
		route.URI = strings.TrimLeft(route.URI, "/")
		if route.URI == "" {
			route.URI = "/"
		}
		if len(route.Parameters) == 0 {
			route.Parameters = ParametersFromURI(route.URI)
		}
		out.Routes[name] = route
	}
	return out
}

// Filter keeps routes whose name matches any only pattern (all routes when
// only is empty) and drops those matching any except pattern. Patterns use
// path.Match syntax, so "admin.*" matches "admin.users".
func (t Table) Filter(only, except []string) (Table, error) {
	out := t
	out.Routes = make(map[string]Route, len(t.Routes))
	for name, route := range t.Routes {
		keep := len(only) == 0
		for _, pattern := range only {
			ok, err := path.Match(pattern, name)
			if err != nil {
				return Table{}, fmt.Errorf("routes: bad pattern %q: %w", pattern, err)
			}
			if ok {
				keep = true
				break
			}
		}
		for _, pattern := range except {
			ok, err := path.Match(pattern, name)
			if err != nil {
				return Table{}, fmt.Errorf("routes: bad pattern %q: %w", pattern, err)
			}
			if ok {
				keep = false
				break
			}
		}
		if keep {
			out.Routes[name] = route
		}
	}
	return out, nil
}

// Names returns the sorted route names.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.Routes))
	for name := range t.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleFormat selects the JavaScript module syntax of the generated file.
type ModuleFormat int

const (
	// CommonJS emits `module.exports = {...};`.
	CommonJS ModuleFormat = iota
	// ESModule emits `export default {...};`.
	ESModule
)

// RenderModule serializes table into a JavaScript module exporting it.
func RenderModule(table Table, format ModuleFormat) (string, error) {
	raw, err := json.Marshal(table.Normalize())
	if err != nil {
		return "", fmt.Errorf("routes: encode: %w", err)
	}
	switch format {
	case CommonJS:
		return "module.exports = " + string(raw) + ";", nil
	case ESModule:
		return "export default " + string(raw) + ";", nil
	default:
		return "", errors.New("routes: unknown module format")
	}
}
