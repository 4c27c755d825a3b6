package program

import (
	"fmt"
	"math/rand"
)

// RegisterType is the class a register index belongs to.
type RegisterType int

const (
	InputRegister RegisterType = iota
	CalculationRegister
	ConstantRegister
)

func (t RegisterType) String() string {
	switch t {
	case InputRegister:
		return "input"
	case CalculationRegister:
		return "calculation"
	case ConstantRegister:
		return "constant"
	default:
		return fmt.Sprintf("register_type(%d)", int(t))
	}
}

// Layout describes the flat register address space of a program: inputs
// first, then calculation registers, then constants.
type Layout struct {
	Inputs       int `json:"inputs"`
	Calculations int `json:"calculations"`
	Constants    int `json:"constants"`
}

// Range is a half-open register index interval [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) Contains(index int) bool {
	return index >= r.Start && index < r.End
}

func (l Layout) Count() int {
	return l.Inputs + l.Calculations + l.Constants
}

func (l Layout) Range(t RegisterType) Range {
	switch t {
	case InputRegister:
		return Range{Start: 0, End: l.Inputs}
	case CalculationRegister:
		return Range{Start: l.Inputs, End: l.Inputs + l.Calculations}
	case ConstantRegister:
		start := l.Inputs + l.Calculations
		return Range{Start: start, End: start + l.Constants}
	default:
		return Range{}
	}
}

func (l Layout) Valid(index int) bool {
	return index >= 0 && index < l.Count()
}

// Type reports the class of a register index. Callers must check Valid first.
func (l Layout) Type(index int) RegisterType {
	switch {
	case index < l.Inputs:
		return InputRegister
	case index < l.Inputs+l.Calculations:
		return CalculationRegister
	default:
		return ConstantRegister
	}
}

// Random returns a uniformly chosen register index of the given class, or -1
// when the class is empty.
func (l Layout) Random(rng *rand.Rand, t RegisterType) int {
	r := l.Range(t)
	if r.Len() <= 0 {
		return -1
	}
	return r.Start + rng.Intn(r.Len())
}

// RandomOperand picks an input or calculation register uniformly.
func (l Layout) RandomOperand(rng *rand.Rand) int {
	n := l.Inputs + l.Calculations
	if n <= 0 {
		return -1
	}
	return rng.Intn(n)
}

// RegisterSet holds the register values for a single program execution.
type RegisterSet struct {
	layout       Layout
	defaultValue float64
	values       []float64
}

func NewRegisterSet(layout Layout, constants []float64, defaultValue float64) (*RegisterSet, error) {
	if len(constants) != layout.Constants {
		return nil, fmt.Errorf("constant count mismatch: got=%d want=%d", len(constants), layout.Constants)
	}
	values := make([]float64, layout.Count())
	copy(values[layout.Range(ConstantRegister).Start:], constants)
	rs := &RegisterSet{
		layout:       layout,
		defaultValue: defaultValue,
		values:       values,
	}
	rs.resetCalculation()
	return rs, nil
}

// Load writes one sample's feature values into the input registers and resets
// the calculation registers to the default value.
func (r *RegisterSet) Load(features []float64) error {
	if len(features) != r.layout.Inputs {
		return fmt.Errorf("feature count mismatch: got=%d want=%d", len(features), r.layout.Inputs)
	}
	copy(r.values, features)
	r.resetCalculation()
	return nil
}

func (r *RegisterSet) resetCalculation() {
	calc := r.layout.Range(CalculationRegister)
	for i := calc.Start; i < calc.End; i++ {
		r.values[i] = r.defaultValue
	}
}

func (r *RegisterSet) Read(index int) float64 {
	return r.values[index]
}

func (r *RegisterSet) Write(index int, value float64) {
	r.values[index] = value
}

func (r *RegisterSet) Layout() Layout {
	return r.layout
}

// Values returns a copy of every register value.
func (r *RegisterSet) Values() []float64 {
	return append([]float64(nil), r.values...)
}
