// Package function describes the SSR bundle as a deployable Lambda function:
// what it is called, how much memory it gets, which handler runs, which files
// ship, and what has to be built before anything is uploaded.
package function

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultName         = "Inertia-SSR"
	DefaultMemoryMB     = 1024
	DefaultTimeout      = 300 * time.Second
	DefaultBuildTimeout = 60 * time.Second

	minMemoryMB = 128
	maxMemoryMB = 10240
	maxTimeout  = 900 * time.Second
)

// Function is the capability deployment tooling and the SSR gateway need from
// a remote function.
type Function interface {
	// Name is the unprefixed display name.
	Name() string
	// Memory is the allocation in MB.
	Memory() int32
	// Handler is the Lambda entrypoint locator, "<file>.<export>".
	Handler() string
	Timeout() time.Duration
	// Package returns the file manifest to upload.
	Package(ctx context.Context) (*Package, error)
	// BeforeDeployment runs pre-upload hooks. An error aborts the deployment.
	BeforeDeployment(ctx context.Context) error
	// Validate reports whether the descriptor can be deployed and invoked.
	Validate() error
}

var (
	ErrUnknownFunction = errors.New("function: unknown function")
	ErrInvalidFunction = errors.New("function: invalid function")
)

// Validate checks the static metadata shared by every Function.
func Validate(fn Function) error {
	if fn == nil {
		return fmt.Errorf("%w: nil", ErrInvalidFunction)
	}
	var problems []string
	if strings.TrimSpace(fn.Name()) == "" {
		problems = append(problems, "name is empty")
	}
	handler := strings.TrimSpace(fn.Handler())
	if handler == "" || !strings.Contains(handler, ".") || strings.HasSuffix(handler, ".") {
		problems = append(problems, fmt.Sprintf("handler %q is not <file>.<export>", handler))
	}
	if mem := fn.Memory(); mem < minMemoryMB || mem > maxMemoryMB {
		problems = append(problems, fmt.Sprintf("memory %dMB outside %d-%d", mem, minMemoryMB, maxMemoryMB))
	}
	if timeout := fn.Timeout(); timeout <= 0 || timeout > maxTimeout {
		problems = append(problems, fmt.Sprintf("timeout %s outside (0, %s]", timeout, maxTimeout))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFunction, strings.Join(problems, "; "))
	}
	return nil
}
