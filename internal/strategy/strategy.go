// Package strategy defines the Runner interface for automated replay
// strategies and provides a Registry for looking them up by name.
package strategy

import (
	"context"
	"sort"

	"paperduel/internal/domain"
	"paperduel/internal/sim"
)

// Runner executes an automated strategy over a full bar series and produces
// a completed run result.
type Runner interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Run replays the bar series with the given contract economics and
	// starting capital, tagging the result with runID.
	Run(ctx context.Context, runID string, bars []domain.Bar, contract sim.Contract, capital float64) (*domain.RunResult, error)
}

// Registry holds a named collection of runners for lookup and enumeration.
type Registry struct {
	runners map[string]Runner
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]Runner),
	}
}

// NewDefaultRegistry returns a Registry with the built-in strategies
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewBuyHold())
	r.Register(NewSMACross(10, 30))
	return r
}

// Register adds a runner to the registry, keyed by its Name().
func (r *Registry) Register(runner Runner) {
	r.runners[runner.Name()] = runner
}

// Get retrieves a runner by name. The second return value indicates whether
// the runner was found.
func (r *Registry) Get(name string) (Runner, bool) {
	runner, ok := r.runners[name]
	return runner, ok
}

// List returns a sorted slice of all registered runner names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
