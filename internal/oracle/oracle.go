// Package oracle provides access to the generative oracle that answers
// individual task steps. The voting engine treats a Gateway as an opaque
// sampling function; everything about prompts, transport and cost lives
// behind it.
package oracle

import (
	"context"
	"time"

	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// Sample is one raw oracle response together with its observed usage.
type Sample struct {
	Text      string
	Cost      float64
	TokensIn  int
	TokensOut int
	Duration  time.Duration
}

// Gateway produces one raw response for the given task state. A Gateway is
// side-effecting and may fail; implementations must honor ctx cancellation.
type Gateway interface {
	Sample(ctx context.Context, state types.State) (*Sample, error)
}

// GatewayFunc adapts a plain function to the Gateway interface.
type GatewayFunc func(ctx context.Context, state types.State) (*Sample, error)

func (f GatewayFunc) Sample(ctx context.Context, state types.State) (*Sample, error) {
	return f(ctx, state)
}
