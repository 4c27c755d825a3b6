package evo

import (
	"fmt"

	"lgp/internal/environment"
	"lgp/internal/fitness"
	"lgp/internal/program"
)

// ModuleOptions tunes the default module set.
type ModuleOptions struct {
	// FitnessCacheSize enables an LRU fitness cache of that many entries.
	FitnessCacheSize int
	// RandomInitialisation uses uniformly random initial programs instead of
	// effective ones.
	RandomInitialisation bool
}

// DefaultModules wires every module role from the environment configuration.
func DefaultModules(opts ModuleOptions) *environment.Modules {
	modules := environment.NewModules()
	factories := map[environment.ModuleType]environment.Factory{
		environment.InstructionGenerator:  environment.Provide(NewInstructionGenerator),
		environment.SelectionOperator:     environment.Provide(NewSelector),
		environment.RecombinationOperator: environment.Provide(NewRecombiner),
		environment.MacroMutationOperator: environment.Provide(NewMacroMutation),
		environment.MicroMutationOperator: environment.Provide(NewMicroMutation),
		environment.ProgramGenerator: environment.Provide(func(env *environment.Environment) (program.ProgramGenerator, error) {
			return NewProgramGenerator(env, opts.RandomInitialisation)
		}),
		environment.FitnessContext: environment.Provide(func(env *environment.Environment) (fitness.Context, error) {
			return NewFitnessContext(env, opts.FitnessCacheSize)
		}),
	}
	if err := modules.RegisterAll(factories); err != nil {
		panic(err)
	}
	return modules
}

func NewInstructionGenerator(env *environment.Environment) (program.InstructionGenerator, error) {
	return program.NewRandomInstructionGenerator(env.Layout(), env.Operations(), env.Config().ConstantsRate)
}

func NewProgramGenerator(env *environment.Environment, random bool) (program.ProgramGenerator, error) {
	instructions, err := environment.Resolve[program.InstructionGenerator](env, environment.InstructionGenerator)
	if err != nil {
		return nil, err
	}
	if random {
		return program.NewRandomProgramGenerator(env.Layout(), env.OutputRegisters(), env.Constants(), env.InitialBounds(), instructions), nil
	}
	return program.NewEffectiveProgramGenerator(env.Layout(), env.OutputRegisters(), env.Constants(), env.InitialBounds(), instructions), nil
}

func NewSelector(env *environment.Environment) (Selector, error) {
	cfg := env.Config()
	return TournamentSelection{
		TournamentSize:    cfg.Operators.TournamentSize,
		NumberOfOffspring: cfg.NumOffspring,
		RemoveWinners:     cfg.Operators.RemoveWinners,
	}, nil
}

func NewRecombiner(env *environment.Environment) (Recombiner, error) {
	cfg := env.Config()
	return LinearCrossover{
		MaximumSegmentLength:           cfg.Operators.MaxSegmentLength,
		MaximumCrossoverDistance:       cfg.Operators.MaxCrossoverDistance,
		MaximumSegmentLengthDifference: cfg.Operators.MaxSegmentLengthDifference,
		Bounds:                         env.Bounds(),
	}, nil
}

func NewMacroMutation(env *environment.Environment) (Mutator, error) {
	instructions, err := environment.Resolve[program.InstructionGenerator](env, environment.InstructionGenerator)
	if err != nil {
		return nil, err
	}
	cfg := env.Config()
	return MacroMutation{
		InsertionRate: cfg.Operators.InsertionRate,
		DeletionRate:  cfg.Operators.DeletionRate,
		Bounds:        env.Bounds(),
		Generator:     instructions,
	}, nil
}

func NewMicroMutation(env *environment.Environment) (Mutator, error) {
	cfg := env.Config()
	constantMutation, err := ResolveConstantMutation(cfg.Operators.ConstantMutation, cfg.Operators.ConstantMutationStdDev)
	if err != nil {
		return nil, err
	}
	return MicroMutation{
		RegisterMutationRate: cfg.Operators.RegisterMutationRate,
		OperatorMutationRate: cfg.Operators.OperatorMutationRate,
		ConstantMutation:     constantMutation,
		Operations:           env.Operations(),
	}, nil
}

// NewFitnessContext picks the single or multiple output context from the
// number of output registers.
func NewFitnessContext(env *environment.Environment, cacheSize int) (fitness.Context, error) {
	var fc fitness.Context
	switch n := len(env.OutputRegisters()); {
	case n == 1:
		fc = fitness.NewSingleOutputContext(env.FitnessFunction(), env.DefaultValue())
	case n > 1:
		fc = fitness.NewMultipleOutputContext(env.FitnessFunction(), env.DefaultValue())
	default:
		return nil, fmt.Errorf("%w: no output registers", fitness.ErrInvalidOutputMapping)
	}
	if cacheSize > 0 {
		return fitness.NewCachedContext(fc, cacheSize)
	}
	return fc, nil
}
