package program

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrNoOperations = errors.New("no operations available")

// InstructionGenerator produces random instructions for a fixed layout.
type InstructionGenerator interface {
	Generate(rng *rand.Rand) Instruction
	GenerateWithDestination(rng *rand.Rand, destination int) Instruction
}

// ProgramGenerator produces initial population members.
type ProgramGenerator interface {
	Generate(rng *rand.Rand) Program
}

type RandomInstructionGenerator struct {
	Layout        Layout
	Operations    []Operation
	ConstantsRate float64
}

func NewRandomInstructionGenerator(layout Layout, operations []Operation, constantsRate float64) (*RandomInstructionGenerator, error) {
	if len(operations) == 0 {
		return nil, ErrNoOperations
	}
	if layout.Calculations <= 0 {
		return nil, fmt.Errorf("layout requires at least one calculation register")
	}
	if constantsRate < 0 || constantsRate > 1 {
		return nil, fmt.Errorf("constants rate must be in [0, 1], got %f", constantsRate)
	}
	return &RandomInstructionGenerator{
		Layout:        layout,
		Operations:    append([]Operation(nil), operations...),
		ConstantsRate: constantsRate,
	}, nil
}

func (g *RandomInstructionGenerator) Generate(rng *rand.Rand) Instruction {
	return g.GenerateWithDestination(rng, g.Layout.Random(rng, CalculationRegister))
}

func (g *RandomInstructionGenerator) GenerateWithDestination(rng *rand.Rand, destination int) Instruction {
	op := g.Operations[rng.Intn(len(g.Operations))]
	operands := make([]int, op.Arity)
	for i := range operands {
		operands[i] = g.randomOperand(rng)
	}
	return Instruction{Operation: op, Destination: destination, Operands: operands}
}

func (g *RandomInstructionGenerator) randomOperand(rng *rand.Rand) int {
	if g.Layout.Constants > 0 && rng.Float64() < g.ConstantsRate {
		return g.Layout.Random(rng, ConstantRegister)
	}
	return g.Layout.RandomOperand(rng)
}

// programTemplate holds what every generated program shares.
type programTemplate struct {
	Layout          Layout
	OutputRegisters []int
	Constants       []float64
	Bounds          Bounds
	Instructions    InstructionGenerator
}

func (t programTemplate) length(rng *rand.Rand) int {
	if t.Bounds.Max <= t.Bounds.Min {
		return t.Bounds.Min
	}
	return t.Bounds.Min + rng.Intn(t.Bounds.Max-t.Bounds.Min+1)
}

func (t programTemplate) empty(length int) Program {
	return Program{
		Instructions:    make([]Instruction, length),
		OutputRegisters: append([]int(nil), t.OutputRegisters...),
		Layout:          t.Layout,
		Constants:       append([]float64(nil), t.Constants...),
	}
}

// RandomProgramGenerator fills programs with uniformly random instructions.
type RandomProgramGenerator struct {
	programTemplate
}

func NewRandomProgramGenerator(layout Layout, outputs []int, constants []float64, bounds Bounds, instructions InstructionGenerator) *RandomProgramGenerator {
	return &RandomProgramGenerator{programTemplate{
		Layout:          layout,
		OutputRegisters: outputs,
		Constants:       constants,
		Bounds:          bounds,
		Instructions:    instructions,
	}}
}

func (g *RandomProgramGenerator) Generate(rng *rand.Rand) Program {
	p := g.empty(g.length(rng))
	for i := range p.Instructions {
		p.Instructions[i] = g.Instructions.Generate(rng)
	}
	return p
}

// EffectiveProgramGenerator builds programs from the last instruction
// backwards. Each destination is drawn from the calculation registers still
// live at that point, so generated code is effective whenever registers remain
// live to target.
type EffectiveProgramGenerator struct {
	programTemplate
}

func NewEffectiveProgramGenerator(layout Layout, outputs []int, constants []float64, bounds Bounds, instructions InstructionGenerator) *EffectiveProgramGenerator {
	return &EffectiveProgramGenerator{programTemplate{
		Layout:          layout,
		OutputRegisters: outputs,
		Constants:       constants,
		Bounds:          bounds,
		Instructions:    instructions,
	}}
}

func (g *EffectiveProgramGenerator) Generate(rng *rand.Rand) Program {
	p := g.empty(g.length(rng))

	live := newLiveSet(g.OutputRegisters)
	for i := len(p.Instructions) - 1; i >= 0; i-- {
		destination, ok := live.pick(rng)
		if !ok {
			destination = g.Layout.Random(rng, CalculationRegister)
		}
		instr := g.Instructions.GenerateWithDestination(rng, destination)
		live.remove(destination)
		for _, operand := range instr.Operands {
			if g.Layout.Type(operand) == CalculationRegister {
				live.add(operand)
			}
		}
		p.Instructions[i] = instr
	}
	return p
}

// liveSet is an insertion-ordered register set so random picks stay
// reproducible for a given seed.
type liveSet struct {
	order []int
	index map[int]int
}

func newLiveSet(initial []int) *liveSet {
	s := &liveSet{index: make(map[int]int, len(initial))}
	for _, r := range initial {
		s.add(r)
	}
	return s
}

func (s *liveSet) add(r int) {
	if _, ok := s.index[r]; ok {
		return
	}
	s.index[r] = len(s.order)
	s.order = append(s.order, r)
}

func (s *liveSet) remove(r int) {
	pos, ok := s.index[r]
	if !ok {
		return
	}
	last := len(s.order) - 1
	s.order[pos] = s.order[last]
	s.index[s.order[pos]] = pos
	s.order = s.order[:last]
	delete(s.index, r)
}

func (s *liveSet) pick(rng *rand.Rand) (int, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	return s.order[rng.Intn(len(s.order))], true
}
