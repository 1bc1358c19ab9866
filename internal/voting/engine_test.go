package voting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigdegenenergy/maker-framework/internal/oracle"
	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// scripted returns a gateway that replays responses in order and fails once
// they run out, so a test catches an engine consuming more samples than the
// scenario allows.
func scripted(responses ...string) oracle.Gateway {
	i := 0
	return oracle.GatewayFunc(func(ctx context.Context, state types.State) (*oracle.Sample, error) {
		if i >= len(responses) {
			return nil, fmt.Errorf("oracle exhausted after %d samples", len(responses))
		}
		text := responses[i]
		i++
		return &oracle.Sample{Text: text, Cost: 0.001}, nil
	})
}

func always(text string) oracle.Gateway {
	return oracle.GatewayFunc(func(ctx context.Context, state types.State) (*oracle.Sample, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &oracle.Sample{Text: text}, nil
	})
}

func newEngine(g oracle.Gateway, k int, indicators ...string) *Engine {
	return &Engine{
		Gateway:   g,
		Validator: NewValidator(0, indicators),
		K:         k,
	}
}

// k=1: a unanimous oracle answers in exactly one sample.
func TestResolveUnanimousSingleSample(t *testing.T) {
	e := newEngine(scripted(`{"move": 1}`), 1)

	res, err := e.Resolve(context.Background(), types.State{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Samples != 1 {
		t.Errorf("samples = %d, want 1", res.Samples)
	}
	want := map[string]any{"move": 1.0}
	if !reflect.DeepEqual(res.Action.Value, want) {
		t.Errorf("action = %#v, want %#v", res.Action.Value, want)
	}
}

// k=2 with votes A, B, A, A: the lead reaches 2 exactly at the fourth
// sample (3-1), and not one sample earlier.
func TestResolveFirstToAheadByK(t *testing.T) {
	e := newEngine(scripted("A", "B", "A", "A"), 2)

	res, err := e.Resolve(context.Background(), types.State{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Action.Raw != "A" {
		t.Errorf("winner = %q, want A", res.Action.Raw)
	}
	if res.Samples != 4 {
		t.Errorf("samples = %d, want 4", res.Samples)
	}
	if res.Distinct != 2 {
		t.Errorf("distinct = %d, want 2", res.Distinct)
	}
}

// The same vote stream truncated one vote short must not yet terminate.
func TestResolveTruncatedStreamNotDecided(t *testing.T) {
	e := newEngine(scripted("A", "B", "A"), 2)
	e.MaxSamples = 3

	res, err := e.Resolve(context.Background(), types.State{})
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("expected ErrStalled on truncated stream, got %v", err)
	}
	if res.Samples != 3 {
		t.Errorf("samples = %d, want 3", res.Samples)
	}
}

// A red-flagged response is discarded and resampled: two oracle calls, one
// counted vote.
func TestResolveRedFlagTriggersResample(t *testing.T) {
	e := newEngine(scripted("ERROR: failed", `{"move": 2}`), 1, "ERROR")

	res, err := e.Resolve(context.Background(), types.State{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := map[string]any{"move": 2.0}
	if !reflect.DeepEqual(res.Action.Value, want) {
		t.Errorf("action = %#v, want %#v", res.Action.Value, want)
	}
	if res.Samples != 2 {
		t.Errorf("samples = %d, want 2 oracle calls", res.Samples)
	}
	if res.Flagged != 1 {
		t.Errorf("flagged = %d, want 1", res.Flagged)
	}
	if res.Distinct != 1 {
		t.Errorf("distinct = %d: the flagged response must never reach the tally", res.Distinct)
	}
}

// A persistently red-flagging oracle stalls the step at the sample budget
// rather than looping forever.
func TestResolveStalledStep(t *testing.T) {
	e := newEngine(always("ERROR: hopeless"), 1, "ERROR")
	e.MaxSamples = 5

	res, err := e.Resolve(context.Background(), types.State{})
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("expected ErrStalled, got %v", err)
	}
	if res.Samples != 5 || res.Flagged != 5 {
		t.Errorf("samples=%d flagged=%d, want 5,5", res.Samples, res.Flagged)
	}
	if res.Distinct != 0 {
		t.Errorf("distinct = %d, want 0", res.Distinct)
	}
}

func TestResolveTransportFailure(t *testing.T) {
	transportErr := errors.New("connection reset")
	calls := 0
	g := oracle.GatewayFunc(func(ctx context.Context, state types.State) (*oracle.Sample, error) {
		calls++
		if calls == 2 {
			return nil, transportErr
		}
		return &oracle.Sample{Text: "A"}, nil
	})

	e := newEngine(g, 3)
	_, err := e.Resolve(context.Background(), types.State{})
	if !errors.Is(err, transportErr) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(always("A"), 5)
	_, err := e.Resolve(ctx, types.State{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Equivalent answers in different dressings (fenced, bare, embedded) pool
// their votes into one candidate.
func TestResolvePoolsEquivalentAnswers(t *testing.T) {
	e := newEngine(scripted(
		`{"disk": 1, "from": 0, "to": 2}`,
		"```json\n{\"from\": 0, \"disk\": 1, \"to\": 2}\n```",
	), 2)

	res, err := e.Resolve(context.Background(), types.State{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Samples != 2 {
		t.Errorf("samples = %d, want 2", res.Samples)
	}
	if res.Distinct != 1 {
		t.Errorf("distinct = %d, want 1", res.Distinct)
	}
}

func TestResolveParallel(t *testing.T) {
	var calls atomic.Int64
	g := oracle.GatewayFunc(func(ctx context.Context, state types.State) (*oracle.Sample, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		calls.Add(1)
		return &oracle.Sample{Text: `{"move": 1}`}, nil
	})

	e := newEngine(g, 3)
	e.Parallelism = 4

	res, err := e.Resolve(context.Background(), types.State{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := map[string]any{"move": 1.0}
	if !reflect.DeepEqual(res.Action.Value, want) {
		t.Errorf("action = %#v, want %#v", res.Action.Value, want)
	}
	if res.Samples < 3 {
		t.Errorf("samples = %d, want >= 3 for k=3", res.Samples)
	}
}

func TestResolveParallelStalled(t *testing.T) {
	e := newEngine(always("ERROR: hopeless"), 1, "ERROR")
	e.Parallelism = 3
	e.MaxSamples = 6

	res, err := e.Resolve(context.Background(), types.State{})
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("expected ErrStalled, got %v", err)
	}
	if res.Samples != 6 {
		t.Errorf("samples = %d, want 6", res.Samples)
	}
}

func TestResolveParallelCancellation(t *testing.T) {
	g := oracle.GatewayFunc(func(ctx context.Context, state types.State) (*oracle.Sample, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	e := newEngine(g, 1)
	e.Parallelism = 2

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Resolve(ctx, types.State{})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Resolve did not return after cancellation")
	}
}
