package infra

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/sidecarssr/pkg/function"
	"github.com/theory-cloud/sidecarssr/pkg/routes"
)

func TestConstructorsAreExported(t *testing.T) {
	t.Helper()

	_ = NewSSRFunction
	_ = NewSSRStack
}

func TestPlan_ViteLayout(t *testing.T) {
	root := t.TempDir()
	fn := function.New(function.LayoutVite, function.WithRoot(root), function.WithMemory(2048))

	plan, err := Plan(context.Background(), fn, "shop", "production")
	require.NoError(t, err)
	require.Equal(t, "SC-shop-production-Inertia-SSR", plan.FunctionName)
	require.Equal(t, "bootstrap/ssr/ssr.handler", plan.Handler)
	require.Equal(t, int32(2048), plan.MemoryMB)
	require.Equal(t, 300*time.Second, plan.Timeout)
	require.Equal(t, filepath.Clean(root), plan.AssetPath)
	require.Equal(t, []string{
		"*",
		"!bootstrap/ssr", "!bootstrap/ssr/**",
		"!node_modules", "!node_modules/**",
	}, plan.Exclude)
	require.Equal(t, map[string]string{"NODE_ENV": "production"}, plan.Environment)
	require.Empty(t, plan.Generated)
}

func TestPlan_MixLayoutShipsRouteModule(t *testing.T) {
	root := t.TempDir()
	table := routes.Table{
		URL:    "https://shop.test",
		Routes: map[string]routes.Route{"home": {URI: "/", Methods: []string{"GET"}}},
	}
	fn := function.New(function.LayoutMix,
		function.WithRoot(root),
		function.WithRouteTable(true),
		function.WithRoutes(routes.Static(table)),
	)

	plan, err := Plan(context.Background(), fn, "shop", "dev")
	require.NoError(t, err)
	require.Equal(t, "SC-shop-dev-Inertia-SSR", plan.FunctionName)
	require.Equal(t, filepath.Join(root, "public/js"), plan.AssetPath)
	require.Equal(t, []string{"*", "!ssr.js", "!ssr.js/**", "!compiledZiggy.js"}, plan.Exclude)
	require.Contains(t, plan.Generated["compiledZiggy.js"], "module.exports = ")
	require.Equal(t, "development", plan.Environment["NODE_ENV"])

	require.NoError(t, writeGenerated(plan))
	raw, err := os.ReadFile(filepath.Join(root, "public/js/compiledZiggy.js"))
	require.NoError(t, err)
	require.Equal(t, plan.Generated["compiledZiggy.js"], string(raw))
}

func TestPlan_RejectsInvalidFunction(t *testing.T) {
	_, err := Plan(context.Background(), nil, "shop", "production")
	require.Error(t, err)

	fn := function.New(function.LayoutVite, function.WithMemory(1))
	_, err = Plan(context.Background(), fn, "shop", "production")
	require.ErrorIs(t, err, function.ErrInvalidFunction)
}

func TestWriteGenerated_RejectsEscapingPaths(t *testing.T) {
	plan := FunctionPlan{
		AssetPath: t.TempDir(),
		Generated: map[string]string{"../outside.js": "x"},
	}
	require.Error(t, writeGenerated(plan))
}
