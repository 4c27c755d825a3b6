package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrConstantMutationExists   = errors.New("constant mutation already registered")
	ErrConstantMutationNotFound = errors.New("constant mutation not found")
)

// ConstantMutationFactory builds a constant mutation from its deviation
// parameter. Strategies that take no parameter ignore it.
type ConstantMutationFactory func(stddev float64) ConstantMutationFunc

var constantMutationRegistry = struct {
	mu sync.RWMutex
	m  map[string]ConstantMutationFactory
}{
	m: make(map[string]ConstantMutationFactory),
}

func init() {
	initializeBuiltInConstantMutations()
}

func initializeBuiltInConstantMutations() {
	constantMutationRegistry.m["identity"] = func(float64) ConstantMutationFunc { return IdentityConstantMutation }
	constantMutationRegistry.m["gaussian"] = GaussianConstantMutation
}

func RegisterConstantMutation(name string, factory ConstantMutationFactory) error {
	if name == "" {
		return errors.New("constant mutation name is required")
	}
	if factory == nil {
		return errors.New("constant mutation factory is required")
	}

	constantMutationRegistry.mu.Lock()
	defer constantMutationRegistry.mu.Unlock()

	if _, exists := constantMutationRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrConstantMutationExists, name)
	}
	constantMutationRegistry.m[name] = factory
	return nil
}

func ResolveConstantMutation(name string, stddev float64) (ConstantMutationFunc, error) {
	constantMutationRegistry.mu.RLock()
	factory, ok := constantMutationRegistry.m[name]
	constantMutationRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConstantMutationNotFound, name)
	}
	return factory(stddev), nil
}

func ListConstantMutations() []string {
	constantMutationRegistry.mu.RLock()
	defer constantMutationRegistry.mu.RUnlock()

	names := make([]string, 0, len(constantMutationRegistry.m))
	for name := range constantMutationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetConstantMutationRegistryForTests() {
	constantMutationRegistry.mu.Lock()
	defer constantMutationRegistry.mu.Unlock()
	constantMutationRegistry.m = make(map[string]ConstantMutationFactory)
	initializeBuiltInConstantMutations()
}
