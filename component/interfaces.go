package component

import (
	"context"

	"github.com/kbukum/flowgen/observability"
)

// Component is a lifecycle-managed part of the process.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) observability.Health
}

// Description is a one-line summary logged at startup.
type Description struct {
	Type    string
	Details string
}

// Describable is optionally implemented by components that want a line in
// the startup summary.
type Describable interface {
	Describe() Description
}
