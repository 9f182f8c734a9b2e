package function

import (
	"context"
	"errors"
)

// Prepare is the deployment-side entry point: run the pre-deployment hooks,
// then collect the manifest. The manifest is never built when a hook fails,
// so stale artifacts cannot ship.
func Prepare(ctx context.Context, fn Function) (*Package, error) {
	if fn == nil {
		return nil, errors.New("function: nil function")
	}
	if err := fn.Validate(); err != nil {
		return nil, err
	}
	if err := fn.BeforeDeployment(ctx); err != nil {
		return nil, err
	}
	return fn.Package(ctx)
}
