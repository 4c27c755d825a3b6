package environment

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrModuleExists        = errors.New("module already registered")
	ErrModuleNotRegistered = errors.New("module not registered")
	ErrModuleType          = errors.New("module has unexpected type")
	ErrModuleIncompatible  = errors.New("module incompatible with environment")
)

// ModuleType names a pluggable role of the evolutionary system.
type ModuleType int

const (
	InstructionGenerator ModuleType = iota
	ProgramGenerator
	SelectionOperator
	RecombinationOperator
	MacroMutationOperator
	MicroMutationOperator
	FitnessContext
)

func (t ModuleType) String() string {
	switch t {
	case InstructionGenerator:
		return "instruction_generator"
	case ProgramGenerator:
		return "program_generator"
	case SelectionOperator:
		return "selection_operator"
	case RecombinationOperator:
		return "recombination_operator"
	case MacroMutationOperator:
		return "macro_mutation_operator"
	case MicroMutationOperator:
		return "micro_mutation_operator"
	case FitnessContext:
		return "fitness_context"
	default:
		return fmt.Sprintf("module_type(%d)", int(t))
	}
}

// Factory builds a module instance from the environment.
type Factory func(env *Environment) (any, error)

// CompatibilityFn rejects environments a module cannot serve.
type CompatibilityFn func(env *Environment) error

type ModuleSpec struct {
	Type       ModuleType
	Factory    Factory
	Compatible CompatibilityFn
}

// Provide adapts a typed constructor to a Factory.
func Provide[T any](fn func(env *Environment) (T, error)) Factory {
	return func(env *Environment) (any, error) {
		return fn(env)
	}
}

// Modules maps module roles to factories.
type Modules struct {
	mu sync.RWMutex
	m  map[ModuleType]ModuleSpec
}

func NewModules() *Modules {
	return &Modules{m: make(map[ModuleType]ModuleSpec)}
}

func (r *Modules) Register(t ModuleType, factory Factory) error {
	return r.RegisterWithSpec(ModuleSpec{Type: t, Factory: factory})
}

func (r *Modules) RegisterWithSpec(spec ModuleSpec) error {
	if spec.Factory == nil {
		return fmt.Errorf("module factory is required for %s", spec.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.m[spec.Type]; exists {
		return fmt.Errorf("%w: %s", ErrModuleExists, spec.Type)
	}
	r.m[spec.Type] = spec
	return nil
}

// RegisterAll registers every factory, stopping at the first failure.
func (r *Modules) RegisterAll(factories map[ModuleType]Factory) error {
	types := make([]ModuleType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		if err := r.Register(t, factories[t]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Modules) lookup(t ModuleType) (ModuleSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.m[t]
	return spec, ok
}

// Registered lists the registered module types in declaration order.
func (r *Modules) Registered() []ModuleType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModuleType, 0, len(r.m))
	for t := range r.m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve builds the module registered for t and asserts it to T.
func Resolve[T any](env *Environment, t ModuleType) (T, error) {
	var zero T
	if env == nil || env.modules == nil {
		return zero, fmt.Errorf("%w: %s", ErrModuleNotRegistered, t)
	}
	spec, ok := env.modules.lookup(t)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrModuleNotRegistered, t)
	}
	if spec.Compatible != nil {
		if err := spec.Compatible(env); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", ErrModuleIncompatible, t, err)
		}
	}
	built, err := spec.Factory(env)
	if err != nil {
		return zero, fmt.Errorf("build %s: %w", t, err)
	}
	typed, ok := built.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s built %T, want %T", ErrModuleType, t, built, zero)
	}
	return typed, nil
}
