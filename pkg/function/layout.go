package function

import "github.com/theory-cloud/sidecarssr/pkg/routes"

// Layout captures everything that differs between build tools: where the
// compiled bundle lands, what ships with it, and how it is built.
type Layout struct {
	Key     string
	Handler string
	// PackageBase is relative to the application root; Include entries are
	// relative to PackageBase.
	PackageBase string
	Include     []string

	BuildCommand   []string
	ProductionFlag string

	RoutesModule string
	RoutesFormat routes.ModuleFormat
}

var (
	// LayoutMix ships the single file webpack emits through Laravel Mix.
	LayoutMix = Layout{
		Key:            "mix",
		Handler:        "ssr.handler",
		PackageBase:    "public/js",
		Include:        []string{"ssr.js"},
		BuildCommand:   []string{"npx", "mix", "--mix-config=webpack.ssr.mix.js"},
		ProductionFlag: "--production",
		RoutesModule:   "compiledZiggy.js",
		RoutesFormat:   routes.CommonJS,
	}

	// LayoutVite ships the Vite SSR output directory. Vite externalizes
	// dependencies for SSR builds, so node_modules has to ship too.
	LayoutVite = Layout{
		Key:          "vite",
		Handler:      "bootstrap/ssr/ssr.handler",
		Include:      []string{"bootstrap/ssr", "node_modules"},
		BuildCommand: []string{"npm", "run", "build"},
		RoutesModule: "bootstrap/ssr/compiledZiggy.mjs",
		RoutesFormat: routes.ESModule,
	}

	// LayoutViteBundled ships a single Vite SSR file built with every
	// dependency inlined (ssr.noExternal), so node_modules stays behind.
	LayoutViteBundled = Layout{
		Key:          "vite-bundled",
		Handler:      "bootstrap/ssr/ssr.handler",
		Include:      []string{"bootstrap/ssr/ssr.mjs"},
		BuildCommand: []string{"npx", "vite", "build", "--ssr"},
		RoutesModule: "bootstrap/ssr/compiledZiggy.mjs",
		RoutesFormat: routes.ESModule,
	}
)

// Layouts lists the built-in layouts in registration order.
func Layouts() []Layout {
	return []Layout{LayoutMix, LayoutVite, LayoutViteBundled}
}
