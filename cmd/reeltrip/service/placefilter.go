package service

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// PlaceFilter evaluates CEL predicates against extracted places.
// The language model is free-form, so operators tune what counts as a
// usable place with an expression like:
//
//	place.name != "" && place.confidence >= 0.5
//
// Compiled programs are cached per expression.
type PlaceFilter struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewPlaceFilter creates a new place filter with caching
func NewPlaceFilter() *PlaceFilter {
	return &PlaceFilter{
		cache: make(map[string]cel.Program),
	}
}

// Matches evaluates the expression against a single place.
// The place is exposed to the expression as the `place` variable.
func (f *PlaceFilter) Matches(expr string, place map[string]interface{}) (bool, error) {
	if expr == "" {
		return true, nil
	}

	// Check cache first
	f.mu.RLock()
	prg, exists := f.cache[expr]
	f.mu.RUnlock()

	if !exists {
		var err error
		prg, err = f.compile(expr)
		if err != nil {
			return false, err
		}

		f.mu.Lock()
		f.cache[expr] = prg
		f.mu.Unlock()
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"place": place,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}

	return result, nil
}

// Check compiles the expression without evaluating it, caching the
// program on success. Callers can reject a bad configured expression at
// startup instead of on the first request.
func (f *PlaceFilter) Check(expr string) error {
	if expr == "" {
		return nil
	}

	f.mu.RLock()
	_, exists := f.cache[expr]
	f.mu.RUnlock()
	if exists {
		return nil
	}

	prg, err := f.compile(expr)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.cache[expr] = prg
	f.mu.Unlock()
	return nil
}

func (f *PlaceFilter) compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("place", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return prg, nil
}

// CacheSize returns the number of cached expressions
func (f *PlaceFilter) CacheSize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}
