package logger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/sidecarssr/pkg/observability"
)

func TestSetLogger_ReplacesAndResets(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	test := observability.NewTestLogger()
	SetLogger(test)
	Logger().Info("Executing beforeDeployment hooks")
	require.Len(t, test.Entries(), 1)

	SetLogger(nil)
	require.NotSame(t, test, Logger())
	require.True(t, Logger().IsHealthy())
}

func TestOr(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	global := observability.NewTestLogger()
	SetLogger(global)

	explicit := observability.NewTestLogger()
	require.Same(t, explicit, Or(explicit))
	require.Same(t, global, Or(nil))
}
