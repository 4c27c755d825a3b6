package storage

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestTrainingCodecRoundTrip(t *testing.T) {
	in := sampleTraining("t1", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	data, err := EncodeTraining(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeTraining(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || out.Runs != in.Runs || string(out.Config) != string(in.Config) {
		t.Fatalf("training changed in round trip: %+v", out)
	}
}

func TestEvolutionCodecKeepsUndefinedScores(t *testing.T) {
	in := sampleEvolution("e1", "t1")
	in.Statistics[0].StdDevFitness = 0.25
	data, err := EncodeEvolution(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeEvolution(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !math.IsInf(float64(out.BestFitness), 1) || !math.IsInf(float64(out.Statistics[0].MeanFitness), 1) {
		t.Fatalf("undefined scores lost: %+v", out)
	}
	if out.Statistics[0].StdDevFitness != 0.25 {
		t.Fatalf("finite score changed: %v", out.Statistics[0].StdDevFitness)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	in := sampleEvolution("e1", "t1")
	in.SchemaVersion = CurrentSchemaVersion + 1
	data, err := EncodeEvolution(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeEvolution(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	training := sampleTraining("t1", time.Now())
	training.CodecVersion = 0
	data, err = EncodeTraining(training)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeTraining(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeTraining([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
