package environment

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"lgp/internal/config"
	"lgp/internal/fitness"
	"lgp/internal/program"
)

// Environment is the validated, resolved context shared by every component of
// a training session. It is immutable after New returns.
type Environment struct {
	cfg             config.Configuration
	operations      []program.Operation
	constants       []float64
	layout          program.Layout
	outputs         []int
	fitnessFunction fitness.Function
	modules         *Modules
	logger          *slog.Logger
}

type Option func(*Environment)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) {
		e.logger = logger
	}
}

func WithModules(modules *Modules) Option {
	return func(e *Environment) {
		e.modules = modules
	}
}

// WithFitnessFunction overrides the function named in the configuration.
func WithFitnessFunction(fn fitness.Function) Option {
	return func(e *Environment) {
		e.fitnessFunction = fn
	}
}

func New(cfg config.Configuration, opts ...Option) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	env := &Environment{cfg: cfg.Clone()}
	for _, opt := range opts {
		opt(env)
	}
	if env.logger == nil {
		env.logger = slog.Default()
	}
	if env.modules == nil {
		env.modules = NewModules()
	}

	ops, err := program.ResolveOperations(cfg.Operations)
	if err != nil {
		return nil, fmt.Errorf("resolve operations: %w", err)
	}
	for _, custom := range cfg.CustomOperations {
		op, err := program.NewExpressionOperation(custom.Name, custom.Arity, custom.Expression)
		if err != nil {
			return nil, fmt.Errorf("%w: custom operation: %v", config.ErrConfigurationInvalid, err)
		}
		ops = append(ops, op)
	}
	env.operations = ops

	constants, err := ParseConstants(cfg.Constants)
	if err != nil {
		return nil, err
	}
	env.constants = constants

	if env.fitnessFunction == nil {
		fn, err := fitness.Resolve(cfg.FitnessFunction)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
		}
		env.fitnessFunction = fn
	}

	env.layout = program.Layout{
		Inputs:       cfg.NumFeatures,
		Calculations: cfg.NumCalculationRegisters,
		Constants:    len(constants),
	}
	start := env.layout.Range(program.CalculationRegister).Start
	env.outputs = make([]int, cfg.NumOutputs)
	for i := range env.outputs {
		env.outputs[i] = start + i
	}
	return env, nil
}

// ParseConstants converts constant literals to values.
func ParseConstants(literals []string) ([]float64, error) {
	out := make([]float64, 0, len(literals))
	for _, literal := range literals {
		v, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: constant %q: %v", config.ErrConfigurationInvalid, literal, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Environment) Config() config.Configuration {
	return e.cfg.Clone()
}

func (e *Environment) Operations() []program.Operation {
	return append([]program.Operation(nil), e.operations...)
}

func (e *Environment) Constants() []float64 {
	return append([]float64(nil), e.constants...)
}

func (e *Environment) Layout() program.Layout {
	return e.layout
}

// OutputRegisters are the first NumOutputs calculation registers.
func (e *Environment) OutputRegisters() []int {
	return append([]int(nil), e.outputs...)
}

func (e *Environment) DefaultValue() float64 {
	return e.cfg.DefaultRegisterValue
}

func (e *Environment) FitnessFunction() fitness.Function {
	return e.fitnessFunction
}

func (e *Environment) Bounds() program.Bounds {
	return program.Bounds{Min: e.cfg.MinimumProgramLength, Max: e.cfg.MaximumProgramLength}
}

func (e *Environment) InitialBounds() program.Bounds {
	return program.Bounds{Min: e.cfg.InitialMinimumProgramLength, Max: e.cfg.InitialMaximumProgramLength}
}

func (e *Environment) Modules() *Modules {
	return e.modules
}

func (e *Environment) Logger() *slog.Logger {
	return e.logger
}
