package evo

import (
	"errors"
	"math/rand"
	"testing"
)

func TestRegisterAndResolveConstantMutation(t *testing.T) {
	resetConstantMutationRegistryForTests()
	t.Cleanup(resetConstantMutationRegistryForTests)

	if err := RegisterConstantMutation("double", func(float64) ConstantMutationFunc {
		return func(_ *rand.Rand, v float64) float64 { return 2 * v }
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	fn, err := ResolveConstantMutation("double", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := fn(rand.New(rand.NewSource(1)), 1.5); got != 3 {
		t.Fatalf("unexpected mutation result: %f", got)
	}
}

func TestRegisterConstantMutationDuplicate(t *testing.T) {
	resetConstantMutationRegistryForTests()
	t.Cleanup(resetConstantMutationRegistryForTests)

	if err := RegisterConstantMutation("gaussian", GaussianConstantMutation); !errors.Is(err, ErrConstantMutationExists) {
		t.Fatalf("expected ErrConstantMutationExists, got: %v", err)
	}
}

func TestRegisterConstantMutationValidation(t *testing.T) {
	resetConstantMutationRegistryForTests()
	t.Cleanup(resetConstantMutationRegistryForTests)

	if err := RegisterConstantMutation("", GaussianConstantMutation); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterConstantMutation("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
}

func TestResolveConstantMutationNotFound(t *testing.T) {
	resetConstantMutationRegistryForTests()
	t.Cleanup(resetConstantMutationRegistryForTests)

	if _, err := ResolveConstantMutation("cauchy", 1); !errors.Is(err, ErrConstantMutationNotFound) {
		t.Fatalf("expected ErrConstantMutationNotFound, got: %v", err)
	}
}

func TestBuiltInConstantMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	identity, err := ResolveConstantMutation("identity", 10)
	if err != nil {
		t.Fatalf("resolve identity: %v", err)
	}
	if got := identity(rng, 4.25); got != 4.25 {
		t.Fatalf("identity changed value: %f", got)
	}

	gaussian, err := ResolveConstantMutation("gaussian", 0)
	if err != nil {
		t.Fatalf("resolve gaussian: %v", err)
	}
	if got := gaussian(rng, 4.25); got != 4.25 {
		t.Fatalf("zero deviation gaussian changed value: %f", got)
	}
}

func TestListConstantMutationsSorted(t *testing.T) {
	resetConstantMutationRegistryForTests()
	t.Cleanup(resetConstantMutationRegistryForTests)

	names := ListConstantMutations()
	if len(names) != 2 || names[0] != "gaussian" || names[1] != "identity" {
		t.Fatalf("unexpected constant mutation list: %+v", names)
	}
}
