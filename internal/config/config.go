package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrConfigurationInvalid = errors.New("invalid configuration")

const (
	ConstantMutationIdentity = "identity"
	ConstantMutationGaussian = "gaussian"
)

// CustomOperation declares an operation whose body is an arithmetic
// expression over a (and b when Arity is 2).
type CustomOperation struct {
	Name       string `json:"name" yaml:"name" validate:"required"`
	Arity      int    `json:"arity" yaml:"arity" validate:"oneof=1 2"`
	Expression string `json:"expression" yaml:"expression" validate:"required"`
}

// Operators holds the parameters of the variation operators.
type Operators struct {
	TournamentSize             int     `json:"tournament_size" yaml:"tournament_size" validate:"gte=2"`
	RemoveWinners              bool    `json:"remove_winners" yaml:"remove_winners"`
	MaxSegmentLength           int     `json:"max_segment_length" yaml:"max_segment_length" validate:"gte=1"`
	MaxCrossoverDistance       int     `json:"max_crossover_distance" yaml:"max_crossover_distance" validate:"gte=0"`
	MaxSegmentLengthDifference int     `json:"max_segment_length_difference" yaml:"max_segment_length_difference" validate:"gte=0"`
	InsertionRate              float64 `json:"insertion_rate" yaml:"insertion_rate" validate:"gte=0,lte=1"`
	DeletionRate               float64 `json:"deletion_rate" yaml:"deletion_rate" validate:"gte=0,lte=1"`
	RegisterMutationRate       float64 `json:"register_mutation_rate" yaml:"register_mutation_rate" validate:"gte=0,lte=1"`
	OperatorMutationRate       float64 `json:"operator_mutation_rate" yaml:"operator_mutation_rate" validate:"gte=0,lte=1"`
	ConstantMutation           string  `json:"constant_mutation" yaml:"constant_mutation" validate:"required"`
	ConstantMutationStdDev     float64 `json:"constant_mutation_stddev" yaml:"constant_mutation_stddev" validate:"gte=0"`
}

// Configuration is the full set of evolution parameters. It is immutable once
// handed to an environment.
type Configuration struct {
	InitialMinimumProgramLength int               `json:"initial_minimum_program_length" yaml:"initial_minimum_program_length" validate:"gte=1"`
	InitialMaximumProgramLength int               `json:"initial_maximum_program_length" yaml:"initial_maximum_program_length" validate:"gte=1"`
	MinimumProgramLength        int               `json:"minimum_program_length" yaml:"minimum_program_length" validate:"gte=1"`
	MaximumProgramLength        int               `json:"maximum_program_length" yaml:"maximum_program_length" validate:"gte=1"`
	Operations                  []string          `json:"operations" yaml:"operations"`
	CustomOperations            []CustomOperation `json:"custom_operations,omitempty" yaml:"custom_operations,omitempty" validate:"dive"`
	ConstantsRate               float64           `json:"constants_rate" yaml:"constants_rate" validate:"gte=0,lte=1"`
	Constants                   []string          `json:"constants" yaml:"constants"`
	NumCalculationRegisters     int               `json:"num_calculation_registers" yaml:"num_calculation_registers" validate:"gte=1"`
	NumFeatures                 int               `json:"num_features" yaml:"num_features" validate:"gte=1"`
	NumOutputs                  int               `json:"num_outputs" yaml:"num_outputs" validate:"gte=1"`
	PopulationSize              int               `json:"population_size" yaml:"population_size" validate:"gte=2"`
	Generations                 int               `json:"generations" yaml:"generations" validate:"gte=1"`
	NumOffspring                int               `json:"num_offspring" yaml:"num_offspring" validate:"gte=1"`
	CrossoverRate               float64           `json:"crossover_rate" yaml:"crossover_rate" validate:"gte=0,lte=1"`
	MicroMutationRate           float64           `json:"micro_mutation_rate" yaml:"micro_mutation_rate" validate:"gte=0,lte=1"`
	MacroMutationRate           float64           `json:"macro_mutation_rate" yaml:"macro_mutation_rate" validate:"gte=0,lte=1"`
	StoppingCriterion           float64           `json:"stopping_criterion" yaml:"stopping_criterion"`
	DefaultRegisterValue        float64           `json:"default_register_value" yaml:"default_register_value"`
	FitnessFunction             string            `json:"fitness_function" yaml:"fitness_function" validate:"required"`
	Workers                     int               `json:"workers" yaml:"workers" validate:"gte=0"`
	Seed                        *int64            `json:"seed,omitempty" yaml:"seed,omitempty"`
	Operators                   Operators         `json:"operators" yaml:"operators"`
}

// Default returns the configuration of the quadratic reference problem.
func Default() Configuration {
	return Configuration{
		InitialMinimumProgramLength: 10,
		InitialMaximumProgramLength: 30,
		MinimumProgramLength:        10,
		MaximumProgramLength:        200,
		Operations:                  []string{"add", "sub", "mul"},
		ConstantsRate:               0.5,
		Constants:                   []string{"0.0", "1.0", "2.0"},
		NumCalculationRegisters:     4,
		NumFeatures:                 1,
		NumOutputs:                  1,
		PopulationSize:              500,
		Generations:                 1000,
		NumOffspring:                10,
		CrossoverRate:               0.75,
		MicroMutationRate:           0.4,
		MacroMutationRate:           0.6,
		StoppingCriterion:           0,
		DefaultRegisterValue:        1.0,
		FitnessFunction:             "mse",
		Operators: Operators{
			TournamentSize:             2,
			MaxSegmentLength:           6,
			MaxCrossoverDistance:       5,
			MaxSegmentLengthDifference: 3,
			InsertionRate:              0.67,
			DeletionRate:               0.33,
			RegisterMutationRate:       0.5,
			OperatorMutationRate:       0.3,
			ConstantMutation:           ConstantMutationGaussian,
			ConstantMutationStdDev:     1.0,
		},
	}
}

// Load merges defaults, an optional YAML or JSON file and LGP_* environment
// overrides, then validates the result. A missing file is not an error.
func Load(path string) (Configuration, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func applyEnv(cfg *Configuration) error {
	ints := map[string]*int{
		"LGP_POPULATION_SIZE":           &cfg.PopulationSize,
		"LGP_GENERATIONS":               &cfg.Generations,
		"LGP_NUM_OFFSPRING":             &cfg.NumOffspring,
		"LGP_WORKERS":                   &cfg.Workers,
		"LGP_NUM_CALCULATION_REGISTERS": &cfg.NumCalculationRegisters,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", ErrConfigurationInvalid, key, v)
			}
			*dst = i
		}
	}

	floats := map[string]*float64{
		"LGP_CROSSOVER_RATE":         &cfg.CrossoverRate,
		"LGP_MICRO_MUTATION_RATE":    &cfg.MicroMutationRate,
		"LGP_MACRO_MUTATION_RATE":    &cfg.MacroMutationRate,
		"LGP_STOPPING_CRITERION":     &cfg.StoppingCriterion,
		"LGP_DEFAULT_REGISTER_VALUE": &cfg.DefaultRegisterValue,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a number", ErrConfigurationInvalid, key, v)
			}
			*dst = f
		}
	}

	if v := os.Getenv("LGP_FITNESS_FUNCTION"); v != "" {
		cfg.FitnessFunction = v
	}
	if v := os.Getenv("LGP_OPERATIONS"); v != "" {
		cfg.Operations = splitList(v)
	}
	if v := os.Getenv("LGP_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: LGP_SEED=%q is not an integer", ErrConfigurationInvalid, v)
		}
		cfg.Seed = &seed
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate reports the first inconsistency, wrapped in ErrConfigurationInvalid.
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrConfigurationInvalid, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	switch {
	case c.MinimumProgramLength > c.MaximumProgramLength:
		return fmt.Errorf("%w: minimum program length %d exceeds maximum %d", ErrConfigurationInvalid, c.MinimumProgramLength, c.MaximumProgramLength)
	case c.InitialMinimumProgramLength > c.InitialMaximumProgramLength:
		return fmt.Errorf("%w: initial minimum program length %d exceeds initial maximum %d", ErrConfigurationInvalid, c.InitialMinimumProgramLength, c.InitialMaximumProgramLength)
	case c.InitialMinimumProgramLength < c.MinimumProgramLength || c.InitialMaximumProgramLength > c.MaximumProgramLength:
		return fmt.Errorf("%w: initial length bounds [%d, %d] outside program length bounds [%d, %d]", ErrConfigurationInvalid,
			c.InitialMinimumProgramLength, c.InitialMaximumProgramLength, c.MinimumProgramLength, c.MaximumProgramLength)
	case len(c.Operations)+len(c.CustomOperations) == 0:
		return fmt.Errorf("%w: at least one operation is required", ErrConfigurationInvalid)
	case c.Operators.TournamentSize > c.PopulationSize:
		return fmt.Errorf("%w: tournament size %d exceeds population size %d", ErrConfigurationInvalid, c.Operators.TournamentSize, c.PopulationSize)
	case c.NumOffspring > c.PopulationSize:
		return fmt.Errorf("%w: offspring count %d exceeds population size %d", ErrConfigurationInvalid, c.NumOffspring, c.PopulationSize)
	case c.Operators.RemoveWinners && c.NumOffspring+c.Operators.TournamentSize-1 > c.PopulationSize:
		return fmt.Errorf("%w: removing %d winners leaves too few contestants for tournaments of %d in a population of %d", ErrConfigurationInvalid,
			c.NumOffspring, c.Operators.TournamentSize, c.PopulationSize)
	case c.NumOutputs > c.NumCalculationRegisters:
		return fmt.Errorf("%w: %d output registers need at least as many calculation registers, got %d", ErrConfigurationInvalid, c.NumOutputs, c.NumCalculationRegisters)
	case c.Operators.InsertionRate+c.Operators.DeletionRate <= 0:
		return fmt.Errorf("%w: insertion and deletion rates cannot both be zero", ErrConfigurationInvalid)
	case c.Operators.RegisterMutationRate+c.Operators.OperatorMutationRate > 1:
		return fmt.Errorf("%w: register and operator mutation rates sum to more than 1", ErrConfigurationInvalid)
	}
	if c.ConstantsRate > 0 && len(c.Constants) == 0 {
		return fmt.Errorf("%w: constants rate %f set without constants", ErrConfigurationInvalid, c.ConstantsRate)
	}
	return nil
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := c
	out.Operations = append([]string(nil), c.Operations...)
	out.Constants = append([]string(nil), c.Constants...)
	out.CustomOperations = append([]CustomOperation(nil), c.CustomOperations...)
	if c.Seed != nil {
		seed := *c.Seed
		out.Seed = &seed
	}
	return out
}
