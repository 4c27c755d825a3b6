package evo

import (
	"math/rand"

	"lgp/internal/program"
)

// MacroMutation inserts or deletes a single instruction. The action is drawn
// with probability proportional to InsertionRate and DeletionRate; an action
// that would leave the length bounds is skipped.
type MacroMutation struct {
	InsertionRate float64
	DeletionRate  float64
	Bounds        program.Bounds
	Generator     program.InstructionGenerator
}

func (MacroMutation) Name() string {
	return "macro_mutation"
}

func (m MacroMutation) Mutate(rng *rand.Rand, p program.Program) program.Program {
	total := m.InsertionRate + m.DeletionRate
	if total <= 0 {
		return p.Clone()
	}
	if rng.Float64()*total < m.InsertionRate {
		return m.insert(rng, p)
	}
	return m.delete(rng, p)
}

// insert splices a new instruction whose destination is live at the insertion
// point, so the new instruction is effective whenever such a register exists.
func (m MacroMutation) insert(rng *rand.Rand, p program.Program) program.Program {
	if p.Len()+1 > m.Bounds.Max || m.Generator == nil {
		return p.Clone()
	}
	at := rng.Intn(p.Len() + 1)

	live := p.LiveAt(at)
	candidates := make([]int, 0, len(live))
	calc := p.Layout.Range(program.CalculationRegister)
	for r := calc.Start; r < calc.End; r++ {
		if _, ok := live[r]; ok {
			candidates = append(candidates, r)
		}
	}

	var instr program.Instruction
	if len(candidates) > 0 {
		instr = m.Generator.GenerateWithDestination(rng, candidates[rng.Intn(len(candidates))])
	} else {
		instr = m.Generator.Generate(rng)
	}

	out := p.Clone()
	out.Instructions = append(out.Instructions, program.Instruction{})
	copy(out.Instructions[at+1:], out.Instructions[at:])
	out.Instructions[at] = instr
	return out
}

// delete removes an effective instruction when one exists, otherwise any
// instruction.
func (m MacroMutation) delete(rng *rand.Rand, p program.Program) program.Program {
	if p.Len()-1 < m.Bounds.Min || p.Len() == 0 {
		return p.Clone()
	}
	at := rng.Intn(p.Len())
	if effective := p.EffectiveIndices(); len(effective) > 0 {
		at = effective[rng.Intn(len(effective))]
	}

	out := p.Clone()
	out.Instructions = append(out.Instructions[:at], out.Instructions[at+1:]...)
	return out
}

// ConstantMutationFunc perturbs a constant register value.
type ConstantMutationFunc func(rng *rand.Rand, v float64) float64

// MicroMutation changes one effective instruction: a register, its operation
// or a constant it reads.
type MicroMutation struct {
	RegisterMutationRate float64
	OperatorMutationRate float64
	ConstantMutation     ConstantMutationFunc
	Operations           []program.Operation
}

func (MicroMutation) Name() string {
	return "micro_mutation"
}

func (m MicroMutation) Mutate(rng *rand.Rand, p program.Program) program.Program {
	out := p.Clone()
	if out.Len() == 0 {
		return out
	}
	at := rng.Intn(out.Len())
	if effective := out.EffectiveIndices(); len(effective) > 0 {
		at = effective[rng.Intn(len(effective))]
	}
	instr := out.Instructions[at]

	r := rng.Float64()
	switch {
	case r < m.RegisterMutationRate:
		out.Instructions[at] = m.mutateRegister(rng, &out, instr)
	case r < m.RegisterMutationRate+m.OperatorMutationRate:
		out.Instructions[at] = m.mutateOperation(rng, instr)
	default:
		m.mutateConstant(rng, &out, instr)
	}
	return out
}

func (m MicroMutation) mutateRegister(rng *rand.Rand, p *program.Program, instr program.Instruction) program.Instruction {
	layout := p.Layout
	position := rng.Intn(len(instr.Operands) + 1)
	if position == len(instr.Operands) {
		return instr.WithDestination(layout.Random(rng, program.CalculationRegister))
	}

	operand := instr.Operands[position]
	class := layout.Type(operand)
	if class == program.ConstantRegister {
		m.mutateConstantRegister(rng, p, operand)
		return instr
	}
	return instr.WithOperand(position, layout.Random(rng, class))
}

func (m MicroMutation) mutateOperation(rng *rand.Rand, instr program.Instruction) program.Instruction {
	candidates := make([]program.Operation, 0, len(m.Operations))
	for _, op := range m.Operations {
		if op.Arity == instr.Operation.Arity && op.Name != instr.Operation.Name {
			candidates = append(candidates, op)
		}
	}
	if len(candidates) == 0 {
		return instr
	}
	return instr.WithOperation(candidates[rng.Intn(len(candidates))])
}

// mutateConstant perturbs a constant the instruction reads. Instructions
// without constant operands are left alone.
func (m MicroMutation) mutateConstant(rng *rand.Rand, p *program.Program, instr program.Instruction) {
	constants := make([]int, 0, len(instr.Operands))
	for _, operand := range instr.Operands {
		if p.Layout.Type(operand) == program.ConstantRegister {
			constants = append(constants, operand)
		}
	}
	if len(constants) == 0 {
		return
	}
	m.mutateConstantRegister(rng, p, constants[rng.Intn(len(constants))])
}

func (m MicroMutation) mutateConstantRegister(rng *rand.Rand, p *program.Program, register int) {
	if m.ConstantMutation == nil {
		return
	}
	idx := register - p.Layout.Range(program.ConstantRegister).Start
	p.Constants[idx] = m.ConstantMutation(rng, p.Constants[idx])
}

func IdentityConstantMutation(_ *rand.Rand, v float64) float64 {
	return v
}

// GaussianConstantMutation adds zero-mean noise with the given deviation.
func GaussianConstantMutation(stddev float64) ConstantMutationFunc {
	return func(rng *rand.Rand, v float64) float64 {
		return v + rng.NormFloat64()*stddev
	}
}
