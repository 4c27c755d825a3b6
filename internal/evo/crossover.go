package evo

import (
	"math/rand"

	"lgp/internal/program"
)

// LinearCrossover swaps one instruction segment between two parents.
type LinearCrossover struct {
	MaximumSegmentLength           int
	MaximumCrossoverDistance       int
	MaximumSegmentLengthDifference int
	Bounds                         program.Bounds
}

func (LinearCrossover) Name() string {
	return "linear_crossover"
}

func (c LinearCrossover) Combine(rng *rand.Rand, mother, father program.Program) (program.Program, program.Program) {
	a, b := mother, father
	if a.Len() > b.Len() {
		a, b = b, a
	}
	if a.Len() == 0 || b.Len() == 0 || c.MaximumSegmentLength < 1 {
		return mother.Clone(), father.Clone()
	}

	// Crossover points, with |i1 - i2| bounded by the maximum distance.
	i1 := rng.Intn(a.Len())
	lo := max(0, i1-c.MaximumCrossoverDistance)
	hi := min(b.Len()-1, i1+c.MaximumCrossoverDistance)
	i2 := lo + rng.Intn(hi-lo+1)

	// Segment lengths, segment in a no longer than segment in b.
	ls1 := 1 + rng.Intn(min(c.MaximumSegmentLength, a.Len()-i1))
	maxLs2 := min(c.MaximumSegmentLength, b.Len()-i2, ls1+c.MaximumSegmentLengthDifference)
	ls2 := ls1
	if maxLs2 >= ls1 {
		ls2 = ls1 + rng.Intn(maxLs2-ls1+1)
	} else {
		ls1 = maxLs2
		ls2 = maxLs2
	}
	if ls1 < 1 {
		return mother.Clone(), father.Clone()
	}

	// Children change length by ±(ls2 - ls1); clamp to equal segments when
	// either would leave the bounds.
	if !c.Bounds.Contains(a.Len()-ls1+ls2) || !c.Bounds.Contains(b.Len()-ls2+ls1) {
		ls2 = ls1
	}

	childA := splice(a, i1, ls1, b.Instructions[i2:i2+ls2])
	childB := splice(b, i2, ls2, a.Instructions[i1:i1+ls1])
	if !c.Bounds.Contains(childA.Len()) || !c.Bounds.Contains(childB.Len()) {
		return mother.Clone(), father.Clone()
	}
	return childA, childB
}

// splice returns a copy of p with p[at:at+n] replaced by segment.
func splice(p program.Program, at, n int, segment []program.Instruction) program.Program {
	out := p.Clone()
	instructions := make([]program.Instruction, 0, p.Len()-n+len(segment))
	instructions = append(instructions, out.Instructions[:at]...)
	for _, instr := range segment {
		instructions = append(instructions, instr.Clone())
	}
	instructions = append(instructions, out.Instructions[at+n:]...)
	out.Instructions = instructions
	return out
}
