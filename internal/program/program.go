package program

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidProgram = errors.New("invalid program")

// Bounds is an inclusive program length interval.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (b Bounds) Contains(length int) bool {
	return length >= b.Min && length <= b.Max
}

// Program is an ordered instruction sequence over a register layout. The
// values of the program's constant registers travel with it so constant
// mutation stays local to one individual.
type Program struct {
	Instructions    []Instruction
	OutputRegisters []int
	Layout          Layout
	Constants       []float64
}

func (p Program) Len() int {
	return len(p.Instructions)
}

// Clone deep-copies the program.
func (p Program) Clone() Program {
	out := Program{
		Instructions:    make([]Instruction, len(p.Instructions)),
		OutputRegisters: append([]int(nil), p.OutputRegisters...),
		Layout:          p.Layout,
		Constants:       append([]float64(nil), p.Constants...),
	}
	for i, instr := range p.Instructions {
		out.Instructions[i] = instr.Clone()
	}
	return out
}

// Validate checks the length bounds and every register reference.
func (p Program) Validate(bounds Bounds) error {
	if !bounds.Contains(len(p.Instructions)) {
		return fmt.Errorf("%w: length %d outside [%d, %d]", ErrInvalidProgram, len(p.Instructions), bounds.Min, bounds.Max)
	}
	if len(p.Constants) != p.Layout.Constants {
		return fmt.Errorf("%w: constant count %d does not match layout %d", ErrInvalidProgram, len(p.Constants), p.Layout.Constants)
	}
	if len(p.OutputRegisters) == 0 {
		return fmt.Errorf("%w: no output registers", ErrInvalidProgram)
	}
	for _, out := range p.OutputRegisters {
		if !p.Layout.Valid(out) || p.Layout.Type(out) != CalculationRegister {
			return fmt.Errorf("%w: output r[%d] is not a calculation register", ErrInvalidProgram, out)
		}
	}
	for idx, instr := range p.Instructions {
		if err := instr.Validate(p.Layout); err != nil {
			return fmt.Errorf("%w: instruction %d: %v", ErrInvalidProgram, idx, err)
		}
	}
	return nil
}

// EffectiveIndices returns, in program order, the positions of instructions
// that transitively influence an output register.
func (p Program) EffectiveIndices() []int {
	live := make(map[int]struct{}, len(p.OutputRegisters)+4)
	for _, out := range p.OutputRegisters {
		live[out] = struct{}{}
	}

	reversed := make([]int, 0, len(p.Instructions))
	for i := len(p.Instructions) - 1; i >= 0; i-- {
		instr := p.Instructions[i]
		if _, ok := live[instr.Destination]; !ok {
			continue
		}
		delete(live, instr.Destination)
		for _, operand := range instr.Operands {
			live[operand] = struct{}{}
		}
		reversed = append(reversed, i)
	}

	out := make([]int, len(reversed))
	for i, idx := range reversed {
		out[len(reversed)-1-i] = idx
	}
	return out
}

// Effective returns the effective instruction subsequence. The program itself
// is left untouched.
func (p Program) Effective() []Instruction {
	indices := p.EffectiveIndices()
	out := make([]Instruction, 0, len(indices))
	for _, idx := range indices {
		out = append(out, p.Instructions[idx])
	}
	return out
}

// LiveAt reports the registers whose values are read by effective code at or
// after position (before instruction position executes).
func (p Program) LiveAt(position int) map[int]struct{} {
	live := make(map[int]struct{}, len(p.OutputRegisters)+4)
	for _, out := range p.OutputRegisters {
		live[out] = struct{}{}
	}
	for i := len(p.Instructions) - 1; i >= position && i >= 0; i-- {
		instr := p.Instructions[i]
		if _, ok := live[instr.Destination]; !ok {
			continue
		}
		delete(live, instr.Destination)
		for _, operand := range instr.Operands {
			live[operand] = struct{}{}
		}
	}
	return live
}

// Run executes the given instructions against regs.
func Run(instructions []Instruction, regs *RegisterSet) {
	for _, instr := range instructions {
		instr.Execute(regs)
	}
}

// Outputs reads the program's output registers.
func (p Program) Outputs(regs *RegisterSet) []float64 {
	out := make([]float64, len(p.OutputRegisters))
	for i, idx := range p.OutputRegisters {
		out[i] = regs.Read(idx)
	}
	return out
}

// Execute runs the effective program once for a single feature vector.
func (p Program) Execute(features []float64, defaultValue float64) ([]float64, error) {
	regs, err := NewRegisterSet(p.Layout, p.Constants, defaultValue)
	if err != nil {
		return nil, err
	}
	if err := regs.Load(features); err != nil {
		return nil, err
	}
	Run(p.Effective(), regs)
	return p.Outputs(regs), nil
}

// Fingerprint identifies the program's behaviour: its effective code, the
// constants that code references, and its outputs.
func (p Program) Fingerprint() string {
	var b strings.Builder
	constRange := p.Layout.Range(ConstantRegister)
	for _, instr := range p.Effective() {
		b.WriteString(instr.Operation.Name)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(instr.Destination))
		for _, operand := range instr.Operands {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(operand))
			if constRange.Contains(operand) {
				b.WriteByte('=')
				b.WriteString(strconv.FormatFloat(p.Constants[operand-constRange.Start], 'g', -1, 64))
			}
		}
		b.WriteByte(';')
	}
	b.WriteString("out")
	for _, out := range p.OutputRegisters {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(out))
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (p Program) String() string {
	lines := make([]string, 0, len(p.Instructions))
	for _, instr := range p.Instructions {
		lines = append(lines, instr.String())
	}
	return strings.Join(lines, "\n")
}

// EffectiveString renders only the effective instructions, with constants
// substituted for readability.
func (p Program) EffectiveString() string {
	constRange := p.Layout.Range(ConstantRegister)
	lines := make([]string, 0, len(p.Instructions))
	for _, instr := range p.Effective() {
		line := instr.String()
		for _, operand := range instr.Operands {
			if constRange.Contains(operand) {
				value := strconv.FormatFloat(p.Constants[operand-constRange.Start], 'g', -1, 64)
				line = strings.Replace(line, fmt.Sprintf("r[%d]", operand), value, 1)
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
