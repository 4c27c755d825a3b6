package evo

import (
	"testing"

	"lgp/internal/config"
	"lgp/internal/dataset"
	"lgp/internal/environment"
	"lgp/internal/program"
)

func smallConfig() config.Configuration {
	cfg := config.Default()
	cfg.InitialMinimumProgramLength = 2
	cfg.InitialMaximumProgramLength = 6
	cfg.MinimumProgramLength = 1
	cfg.MaximumProgramLength = 12
	cfg.PopulationSize = 16
	cfg.Generations = 10
	cfg.NumOffspring = 4
	return cfg
}

func newTestEnvironment(t *testing.T, cfg config.Configuration) *environment.Environment {
	t.Helper()
	env, err := environment.New(cfg, environment.WithModules(DefaultModules(ModuleOptions{})))
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	return env
}

func newTestModel(t *testing.T, cfg config.Configuration) *SteadyState {
	t.Helper()
	model, err := NewSteadyState(newTestEnvironment(t, cfg))
	if err != nil {
		t.Fatalf("new steady state: %v", err)
	}
	return model
}

func quadraticDataset(t *testing.T) dataset.Dataset {
	t.Helper()
	xs, err := dataset.SequenceGenerator{}.Generate(-2, 2, 0.5, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return dataset.FromFunction(xs, "x", func(x float64) float64 { return x*x + 2*x + 2 })
}

func linearProgram(t *testing.T, layout program.Layout, length int) program.Program {
	t.Helper()
	add, err := program.ResolveOperation("add")
	if err != nil {
		t.Fatalf("resolve add: %v", err)
	}
	calc := layout.Range(program.CalculationRegister)
	p := program.Program{
		OutputRegisters: []int{calc.Start},
		Layout:          layout,
		Constants:       make([]float64, layout.Constants),
	}
	for i := 0; i < length; i++ {
		p.Instructions = append(p.Instructions, program.NewInstruction(add, calc.Start+i%calc.Len(), 0, calc.Start))
	}
	return p
}

func assertValidRegisters(t *testing.T, p program.Program) {
	t.Helper()
	for idx, instr := range p.Instructions {
		if err := instr.Validate(p.Layout); err != nil {
			t.Fatalf("instruction %d invalid: %v", idx, err)
		}
	}
}
