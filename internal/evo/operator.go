package evo

import (
	"math/rand"

	"lgp/internal/program"
)

// Selector picks parent slots from the population and the slots their
// offspring will overwrite.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, pool []Individual) (Selection, error)
}

// Recombiner produces two children from two parents without touching either.
type Recombiner interface {
	Name() string
	Combine(rng *rand.Rand, mother, father program.Program) (program.Program, program.Program)
}

// Mutator returns a mutated copy of p.
type Mutator interface {
	Name() string
	Mutate(rng *rand.Rand, p program.Program) program.Program
}
