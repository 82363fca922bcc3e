// Package provider implements the lazy provider registry. A Registry
// holds an ordered list of producers; the first query evaluates each
// producer once, skips the ones whose integration is unavailable, and
// caches the resulting name-to-constructor table for the lifetime of
// the Registry.
package provider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/msabramo/langchaingang/pkg/types"
)

// ErrUnavailable is the "missing optional dependency" signal. A producer
// returns an error wrapping ErrUnavailable when its provider integration
// cannot be used in the current environment; the registry then skips that
// provider silently. Any other producer error is treated as a bug in the
// integration and propagates to the caller.
var ErrUnavailable = errors.New("provider unavailable")

// ErrUnknownProvider is returned by Constructor when the requested name
// did not resolve. Callers presenting errors to users should translate
// it (see pkg/factory).
var ErrUnknownProvider = errors.New("unknown provider")

// Constructor builds a chat model client from keyword configuration.
type Constructor func(Config) (types.ChatModel, error)

// Info describes one resolvable provider: its unique name and the
// constructor for its client.
type Info struct {
	Name string
	New  Constructor
}

// Producer yields one Info, or an error wrapping ErrUnavailable when the
// provider's backing integration is absent.
type Producer func() (Info, error)

// Registry maps provider names to client constructors. The mapping is
// derived lazily from the producer list on first query and cached; an
// explicit derived flag distinguishes "not yet derived" from "derived to
// zero providers". Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	producers []Producer
	table     map[string]Constructor
	derived   bool
}

// New creates a Registry seeded with the given producers, in order. No
// producer is evaluated until the first query.
func New(producers ...Producer) *Registry {
	return &Registry{producers: producers}
}

// Register appends a producer to the registry and returns it unchanged,
// so registration can wrap a producer at its definition site. The
// producer is not evaluated. Registering after the table has been
// derived has no effect on the cached table.
func (r *Registry) Register(p Producer) Producer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers = append(r.producers, p)
	return p
}

// List returns the names of the providers that resolved successfully.
// Order is unspecified.
func (r *Registry) List() ([]string, error) {
	table, err := r.derive()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names, nil
}

// IsSupported reports whether name resolved to a constructor.
func (r *Registry) IsSupported(name string) (bool, error) {
	table, err := r.derive()
	if err != nil {
		return false, err
	}
	_, ok := table[name]
	return ok, nil
}

// Constructor returns the constructor registered under name. The error
// wraps ErrUnknownProvider when name did not resolve.
func (r *Registry) Constructor(name string) (Constructor, error) {
	table, err := r.derive()
	if err != nil {
		return nil, err
	}
	ctor, ok := table[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return ctor, nil
}

// derive evaluates the producer list once and caches the result.
// Producers that report ErrUnavailable are skipped; any other producer
// error aborts derivation without setting the derived flag, so the next
// query re-attempts. Duplicate names resolve last-registration-wins.
func (r *Registry) derive() (map[string]Constructor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.derived {
		return r.table, nil
	}

	table := make(map[string]Constructor, len(r.producers))
	for _, produce := range r.producers {
		info, err := produce()
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				continue
			}
			return nil, fmt.Errorf("evaluating provider producer: %w", err)
		}
		table[info.Name] = info.New
	}

	r.table = table
	r.derived = true
	return r.table, nil
}
