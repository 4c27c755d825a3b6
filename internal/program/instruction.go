package program

import (
	"fmt"
	"strings"
)

// Instruction applies Operation to its operand registers and writes the result
// to Destination. Instructions are treated as immutable; the With* helpers
// return modified copies.
type Instruction struct {
	Operation   Operation
	Destination int
	Operands    []int
}

func NewInstruction(op Operation, destination int, operands ...int) Instruction {
	return Instruction{
		Operation:   op,
		Destination: destination,
		Operands:    append([]int(nil), operands...),
	}
}

func (i Instruction) Clone() Instruction {
	i.Operands = append([]int(nil), i.Operands...)
	return i
}

func (i Instruction) WithDestination(destination int) Instruction {
	out := i.Clone()
	out.Destination = destination
	return out
}

func (i Instruction) WithOperand(position, register int) Instruction {
	out := i.Clone()
	out.Operands[position] = register
	return out
}

// WithOperation swaps the operation. The operand list is resized to the new
// arity; missing operands reuse the first operand.
func (i Instruction) WithOperation(op Operation) Instruction {
	out := i.Clone()
	out.Operation = op
	switch {
	case len(out.Operands) > op.Arity:
		out.Operands = out.Operands[:op.Arity]
	case len(out.Operands) < op.Arity:
		for len(out.Operands) < op.Arity {
			out.Operands = append(out.Operands, out.Operands[0])
		}
	}
	return out
}

func (i Instruction) Execute(regs *RegisterSet) {
	var buf [2]float64
	args := buf[:len(i.Operands)]
	for k, operand := range i.Operands {
		args[k] = regs.Read(operand)
	}
	regs.Write(i.Destination, i.Operation.Apply(args))
}

// Validate checks register references against the layout.
func (i Instruction) Validate(layout Layout) error {
	if i.Operation.Func == nil {
		return fmt.Errorf("instruction has no operation")
	}
	if len(i.Operands) != i.Operation.Arity {
		return fmt.Errorf("operation %s expects %d operands, got %d", i.Operation.Name, i.Operation.Arity, len(i.Operands))
	}
	if !layout.Valid(i.Destination) || layout.Type(i.Destination) != CalculationRegister {
		return fmt.Errorf("destination r[%d] is not a calculation register", i.Destination)
	}
	for _, operand := range i.Operands {
		if !layout.Valid(operand) {
			return fmt.Errorf("operand r[%d] out of range [0, %d)", operand, layout.Count())
		}
	}
	return nil
}

func (i Instruction) String() string {
	if i.Operation.Arity == 2 && len(i.Operands) == 2 {
		if isInfix(i.Operation.Symbol) {
			return fmt.Sprintf("r[%d] = r[%d] %s r[%d]", i.Destination, i.Operands[0], i.Operation.Symbol, i.Operands[1])
		}
		return fmt.Sprintf("r[%d] = %s(r[%d], r[%d])", i.Destination, i.Operation.Symbol, i.Operands[0], i.Operands[1])
	}
	args := make([]string, 0, len(i.Operands))
	for _, operand := range i.Operands {
		args = append(args, fmt.Sprintf("r[%d]", operand))
	}
	return fmt.Sprintf("r[%d] = %s(%s)", i.Destination, i.Operation.Symbol, strings.Join(args, ", "))
}

func isInfix(symbol string) bool {
	switch symbol {
	case "+", "-", "*", "/", "^":
		return true
	default:
		return false
	}
}
