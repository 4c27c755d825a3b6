package program

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/PaesslerAG/gval"
)

const (
	// UndefinedValue replaces any non-finite result written by an operation.
	UndefinedValue = 0.0

	protectedEpsilon = 1e-9
	overflowLimit    = 1e12
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrOperationExists  = errors.New("operation already registered")
)

// OperationFunc evaluates an operation over its operand values.
type OperationFunc func(args []float64) float64

// Operation is an arity-1 or arity-2 arithmetic function.
type Operation struct {
	Name   string
	Symbol string
	Arity  int
	Func   OperationFunc
}

func (o Operation) Apply(args []float64) float64 {
	v := o.Func(args)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return UndefinedValue
	}
	return v
}

func (o Operation) validate() error {
	if o.Name == "" {
		return errors.New("operation name is required")
	}
	if o.Func == nil {
		return fmt.Errorf("operation %s: function is required", o.Name)
	}
	if o.Arity != 1 && o.Arity != 2 {
		return fmt.Errorf("operation %s: arity must be 1 or 2, got %d", o.Name, o.Arity)
	}
	return nil
}

var operationRegistry = struct {
	mu sync.RWMutex
	m  map[string]Operation
}{
	m: make(map[string]Operation),
}

func init() {
	initializeBuiltInOperations()
}

func initializeBuiltInOperations() {
	binary := func(name, symbol string, fn func(a, b float64) float64, aliases ...string) {
		op := Operation{Name: name, Symbol: symbol, Arity: 2, Func: func(args []float64) float64 {
			return fn(args[0], args[1])
		}}
		MustRegisterOperation(op)
		for _, alias := range aliases {
			op.Name = alias
			MustRegisterOperation(op)
		}
	}
	unary := func(name, symbol string, fn func(a float64) float64, aliases ...string) {
		op := Operation{Name: name, Symbol: symbol, Arity: 1, Func: func(args []float64) float64 {
			return fn(args[0])
		}}
		MustRegisterOperation(op)
		for _, alias := range aliases {
			op.Name = alias
			MustRegisterOperation(op)
		}
	}

	binary("add", "+", func(a, b float64) float64 { return a + b }, "Addition")
	binary("sub", "-", func(a, b float64) float64 { return a - b }, "Subtraction")
	binary("mul", "*", func(a, b float64) float64 { return a * b }, "Multiplication")
	binary("div", "/", protectedDivide, "Division")
	binary("pow", "^", protectedPow, "Exponent")
	binary("max", "max", math.Max, "Maximum")
	binary("min", "min", math.Min, "Minimum")
	unary("neg", "-", func(a float64) float64 { return -a }, "Negation")
	unary("sin", "sin", math.Sin, "Sine")
	unary("cos", "cos", math.Cos, "Cosine")
	unary("exp", "exp", protectedExp, "Exp")
	unary("log", "log", protectedLog, "Log")
	unary("sqrt", "sqrt", func(a float64) float64 { return math.Sqrt(math.Abs(a)) }, "SquareRoot")
	unary("square", "sq", func(a float64) float64 { return a * a }, "Square")
	unary("abs", "abs", math.Abs, "Absolute")
}

func protectedDivide(a, b float64) float64 {
	if math.Abs(b) < protectedEpsilon {
		return 1.0
	}
	return a / b
}

func protectedLog(a float64) float64 {
	a = math.Abs(a)
	if a < protectedEpsilon {
		return 0
	}
	return math.Log(a)
}

func protectedExp(a float64) float64 {
	return clampOverflow(math.Exp(math.Min(a, math.Log(overflowLimit))))
}

func protectedPow(a, b float64) float64 {
	v := math.Pow(math.Abs(a), b)
	if math.IsNaN(v) {
		return UndefinedValue
	}
	return clampOverflow(v)
}

func clampOverflow(v float64) float64 {
	if v > overflowLimit {
		return overflowLimit
	}
	if v < -overflowLimit {
		return -overflowLimit
	}
	return v
}

func RegisterOperation(op Operation) error {
	if err := op.validate(); err != nil {
		return err
	}

	operationRegistry.mu.Lock()
	defer operationRegistry.mu.Unlock()

	if _, exists := operationRegistry.m[op.Name]; exists {
		return fmt.Errorf("%w: %s", ErrOperationExists, op.Name)
	}
	operationRegistry.m[op.Name] = op
	return nil
}

func MustRegisterOperation(op Operation) {
	if err := RegisterOperation(op); err != nil {
		panic(err)
	}
}

func ResolveOperation(name string) (Operation, error) {
	operationRegistry.mu.RLock()
	op, ok := operationRegistry.m[name]
	operationRegistry.mu.RUnlock()
	if !ok {
		return Operation{}, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return op, nil
}

// ResolveOperations resolves every name, failing on the first unknown one.
func ResolveOperations(names []string) ([]Operation, error) {
	ops := make([]Operation, 0, len(names))
	for _, name := range names {
		op, err := ResolveOperation(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func ListOperations() []string {
	operationRegistry.mu.RLock()
	defer operationRegistry.mu.RUnlock()

	names := make([]string, 0, len(operationRegistry.m))
	for name := range operationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperationRegistryForTests() {
	operationRegistry.mu.Lock()
	operationRegistry.m = make(map[string]Operation)
	operationRegistry.mu.Unlock()
	initializeBuiltInOperations()
}

// expressionLanguage is gval arithmetic plus the unary math functions of the
// built-in set.
var expressionLanguage = gval.NewLanguage(
	gval.Arithmetic(),
	unaryFunction("sin", math.Sin),
	unaryFunction("cos", math.Cos),
	unaryFunction("exp", protectedExp),
	unaryFunction("log", protectedLog),
	unaryFunction("sqrt", func(a float64) float64 { return math.Sqrt(math.Abs(a)) }),
	unaryFunction("abs", math.Abs),
)

func unaryFunction(name string, fn func(float64) float64) gval.Language {
	return gval.Function(name, func(arguments ...interface{}) (interface{}, error) {
		if len(arguments) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(arguments))
		}
		v, ok := arguments[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%s expects a number, got %v", name, arguments[0])
		}
		return fn(v), nil
	})
}

// NewExpressionOperation compiles a gval arithmetic expression over the
// operand variables a (and b for arity 2) into an operation.
func NewExpressionOperation(name string, arity int, expression string) (Operation, error) {
	if expression == "" {
		return Operation{}, fmt.Errorf("operation %s: expression is required", name)
	}
	eval, err := expressionLanguage.NewEvaluable(expression)
	if err != nil {
		return Operation{}, fmt.Errorf("operation %s: compile expression: %w", name, err)
	}

	op := Operation{
		Name:   name,
		Symbol: name,
		Arity:  arity,
		Func: func(args []float64) float64 {
			params := map[string]interface{}{"a": args[0]}
			if len(args) > 1 {
				params["b"] = args[1]
			}
			v, err := eval.EvalFloat64(context.Background(), params)
			if err != nil {
				return UndefinedValue
			}
			return v
		},
	}
	if err := op.validate(); err != nil {
		return Operation{}, err
	}
	return op, nil
}
