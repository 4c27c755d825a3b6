package environment

import (
	"errors"
	"fmt"
	"testing"

	"lgp/internal/config"
	"lgp/internal/program"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func testConfig() config.Configuration {
	cfg := config.Default()
	cfg.PopulationSize = 10
	cfg.Generations = 5
	cfg.NumOffspring = 2
	return cfg
}

func TestNewResolvesLayoutAndConstants(t *testing.T) {
	env, err := New(testConfig())
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	layout := env.Layout()
	if layout.Inputs != 1 || layout.Calculations != 4 || layout.Constants != 3 {
		t.Fatalf("unexpected layout: %+v", layout)
	}
	if got := env.Constants(); len(got) != 3 || got[2] != 2 {
		t.Fatalf("unexpected constants: %v", got)
	}
	if outs := env.OutputRegisters(); len(outs) != 1 || outs[0] != 1 {
		t.Fatalf("expected first calculation register as output, got %v", outs)
	}
	if len(env.Operations()) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(env.Operations()))
	}
	if env.Logger() == nil {
		t.Fatal("expected default logger")
	}
}

func TestNewFailsOnUnknownOperation(t *testing.T) {
	cfg := testConfig()
	cfg.Operations = []string{"add", "teleport"}
	if _, err := New(cfg); !errors.Is(err, program.ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestNewFailsOnBadConstant(t *testing.T) {
	cfg := testConfig()
	cfg.Constants = []string{"1.0", "pi"}
	if _, err := New(cfg); !errors.Is(err, config.ErrConfigurationInvalid) {
		t.Fatalf("expected ErrConfigurationInvalid, got %v", err)
	}
}

func TestNewCompilesCustomOperations(t *testing.T) {
	cfg := testConfig()
	cfg.CustomOperations = []config.CustomOperation{{Name: "avg", Arity: 2, Expression: "(a + b) / 2"}}
	env, err := New(cfg)
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	ops := env.Operations()
	last := ops[len(ops)-1]
	if last.Name != "avg" || last.Apply([]float64{2, 4}) != 3 {
		t.Fatalf("unexpected custom operation %s", last.Name)
	}
}

func TestRegisterAndResolveModule(t *testing.T) {
	modules := NewModules()
	if err := modules.Register(SelectionOperator, Provide(func(*Environment) (greeter, error) {
		return englishGreeter{}, nil
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	env, err := New(testConfig(), WithModules(modules))
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}

	g, err := Resolve[greeter](env, SelectionOperator)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if g.Greet() != "hello" {
		t.Fatalf("unexpected module: %v", g)
	}
}

func TestRegisterModuleDuplicate(t *testing.T) {
	modules := NewModules()
	factory := Provide(func(*Environment) (greeter, error) { return englishGreeter{}, nil })
	if err := modules.Register(FitnessContext, factory); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := modules.Register(FitnessContext, factory); !errors.Is(err, ErrModuleExists) {
		t.Fatalf("expected ErrModuleExists, got: %v", err)
	}
	if err := modules.Register(ProgramGenerator, nil); err == nil {
		t.Fatal("expected nil factory error")
	}
}

func TestResolveModuleErrors(t *testing.T) {
	modules := NewModules()
	if err := modules.Register(MicroMutationOperator, func(*Environment) (any, error) { return 42, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := modules.Register(MacroMutationOperator, func(*Environment) (any, error) { return nil, fmt.Errorf("boom") }); err != nil {
		t.Fatalf("register: %v", err)
	}
	env, err := New(testConfig(), WithModules(modules))
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}

	if _, err := Resolve[greeter](env, ProgramGenerator); !errors.Is(err, ErrModuleNotRegistered) {
		t.Fatalf("expected ErrModuleNotRegistered, got: %v", err)
	}
	if _, err := Resolve[greeter](env, MicroMutationOperator); !errors.Is(err, ErrModuleType) {
		t.Fatalf("expected ErrModuleType, got: %v", err)
	}
	if _, err := Resolve[greeter](env, MacroMutationOperator); err == nil {
		t.Fatal("expected factory error")
	}
}

func TestResolveModuleCompatibility(t *testing.T) {
	modules := NewModules()
	if err := modules.RegisterWithSpec(ModuleSpec{
		Type:    FitnessContext,
		Factory: Provide(func(*Environment) (greeter, error) { return englishGreeter{}, nil }),
		Compatible: func(env *Environment) error {
			if len(env.OutputRegisters()) != 2 {
				return errors.New("requires two outputs")
			}
			return nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	env, err := New(testConfig(), WithModules(modules))
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	if _, err := Resolve[greeter](env, FitnessContext); !errors.Is(err, ErrModuleIncompatible) {
		t.Fatalf("expected ErrModuleIncompatible, got: %v", err)
	}
}

func TestRegisteredSorted(t *testing.T) {
	modules := NewModules()
	factory := func(*Environment) (any, error) { return nil, nil }
	if err := modules.RegisterAll(map[ModuleType]Factory{
		FitnessContext:       factory,
		InstructionGenerator: factory,
	}); err != nil {
		t.Fatalf("register all: %v", err)
	}
	got := modules.Registered()
	if len(got) != 2 || got[0] != InstructionGenerator || got[1] != FitnessContext {
		t.Fatalf("unexpected registered list: %+v", got)
	}
}
