package runner

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/graph"
)

// Status is the terminal state of a node run.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusValidationFailed Status = "validation_failed"
	StatusExternalFailed   Status = "external_failed"
)

// Outcome is the result of one node run.
type Outcome struct {
	NodeID    string
	NodeType  graph.NodeType
	Variant   graph.Variant
	Status    Status
	Artifacts []graph.Artifact
	Err       error
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Executor runs nodes. Runner implements it; the decorators in this package
// wrap it.
type Executor interface {
	Run(ctx context.Context, nodeID string) Outcome
	// Expected returns how many artifacts a successful run of n produces.
	Expected(n graph.Node) int
}

// InputSpec declares one input handle of a strategy.
type InputSpec struct {
	Handle   graph.Handle
	Required bool
}

// Inputs maps handles to the values read from upstream nodes.
type Inputs map[graph.Handle]string

// Call is everything a strategy needs to dispatch.
type Call struct {
	Node     graph.Node
	Settings graph.Settings
	Inputs   Inputs
}

// Strategy runs one (node type, model variant) pair.
type Strategy interface {
	Variant() graph.Variant
	Inputs() []InputSpec
	Expected(s graph.Settings) int
	Dispatch(ctx context.Context, call Call) ([]graph.Artifact, error)
}

// Validator is implemented by strategies with checks beyond their inputs.
// It runs before the node is marked generating.
type Validator interface {
	Validate(call Call) error
}

// Runner dispatches node runs to the registered strategies.
type Runner struct {
	store      *graph.Store
	strategies map[graph.Variant]Strategy
	seeds      graph.SeedSource
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSeeds sets the seed source for variants with random default seeds.
func WithSeeds(s graph.SeedSource) Option {
	return func(r *Runner) { r.seeds = s }
}

// WithClock replaces time.Now for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithStrategy registers s, replacing any strategy for the same variant.
func WithStrategy(s Strategy) Option {
	return func(r *Runner) { r.strategies[s.Variant()] = s }
}

// New creates a runner over store with the given strategies.
func New(store *graph.Store, opts ...Option) *Runner {
	r := &Runner{
		store:      store,
		strategies: make(map[graph.Variant]Strategy),
		seeds:      graph.RandomSeeds,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Expected returns the artifact count of a successful run of n, or 0 when
// no strategy handles it.
func (r *Runner) Expected(n graph.Node) int {
	s, ok := r.strategies[n.Variant()]
	if !ok {
		return 0
	}
	settings, err := graph.ResolveSettings(n, graph.StaticSeeds)
	if err != nil {
		return 0
	}
	return s.Expected(settings)
}

// Run executes nodeID once. Validation failures return before the node is
// marked generating; backend failures leave prior artifacts untouched.
func (r *Runner) Run(ctx context.Context, nodeID string) Outcome {
	node, ok := r.store.GetNode(nodeID)
	if !ok {
		return Outcome{NodeID: nodeID, Status: StatusValidationFailed, Err: apperrors.NotFound("node", nodeID)}
	}
	out := Outcome{NodeID: nodeID, NodeType: node.Type, Variant: node.Variant()}

	strategy, ok := r.strategies[out.Variant]
	if !ok {
		out.Status = StatusValidationFailed
		out.Err = apperrors.ValidationFailed(nodeID, "model", fmt.Sprintf("no runner for variant %q", out.Variant))
		return out
	}

	call, err := r.prepare(node, strategy)
	if err != nil {
		out.Status, out.Err = StatusValidationFailed, err
		return out
	}

	if _, err := r.store.UpdateNode(nodeID, func(n *graph.Node) {
		n.Data.Generating = true
		n.Data.LastError = ""
	}); err != nil {
		out.Status, out.Err = StatusValidationFailed, err
		return out
	}

	artifacts, err := strategy.Dispatch(ctx, call)
	if err != nil {
		err = asExternal(string(out.Variant), err)
		_, _ = r.store.UpdateNode(nodeID, func(n *graph.Node) {
			n.Data.Generating = false
			n.Data.LastError = err.Error()
		})
		out.Status, out.Err = StatusExternalFailed, err
		return out
	}

	now := r.now()
	for i := range artifacts {
		if artifacts[i].CreatedAt.IsZero() {
			artifacts[i].CreatedAt = now
		}
	}
	if _, err := r.store.UpdateNode(nodeID, func(n *graph.Node) {
		n.Data.Append(artifacts...)
		n.Data.Generating = false
	}); err != nil {
		// the node was removed while the call was in flight
		out.Status, out.Err = StatusExternalFailed, err
		return out
	}
	out.Status, out.Artifacts = StatusSuccess, artifacts
	return out
}

func (r *Runner) prepare(node graph.Node, s Strategy) (Call, error) {
	inputs, err := r.resolveInputs(node.ID, s.Inputs())
	if err != nil {
		return Call{}, err
	}
	settings, err := graph.ResolveSettings(node, r.seeds)
	if err != nil {
		return Call{}, apperrors.ValidationFailed(node.ID, "settings", err.Error())
	}
	call := Call{Node: node, Settings: settings, Inputs: inputs}
	if v, ok := s.(Validator); ok {
		if err := v.Validate(call); err != nil {
			return Call{}, err
		}
	}
	return call, nil
}

// resolveInputs reads each declared handle from the node connected to it.
// A required handle with no edge, or whose source has no output, fails.
func (r *Runner) resolveInputs(nodeID string, specs []InputSpec) (Inputs, error) {
	edges := r.store.EdgesInto(nodeID)
	inputs := make(Inputs, len(specs))
	for _, spec := range specs {
		var source string
		for _, e := range edges {
			if e.TargetHandle == spec.Handle {
				source = e.Source
				break
			}
		}
		if source == "" {
			if spec.Required {
				return nil, apperrors.ValidationFailed(nodeID, string(spec.Handle),
					fmt.Sprintf("missing required input %q", spec.Handle))
			}
			continue
		}

		src, ok := r.store.GetNode(source)
		var value string
		if ok {
			value, ok = src.Output()
		}
		if !ok {
			if spec.Required {
				return nil, apperrors.ValidationFailed(nodeID, string(spec.Handle),
					fmt.Sprintf("input %q from %s has no output", spec.Handle, source))
			}
			continue
		}
		inputs[spec.Handle] = value
	}
	return inputs, nil
}

func asExternal(backend string, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.ExternalCall(backend, err)
}
