package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Score is a fitness value that survives JSON encoding when it is undefined.
// Non-finite values are written as the strings "+Inf", "-Inf" and "NaN".
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		switch text {
		case "NaN":
			*s = Score(math.NaN())
		case "+Inf", "Inf":
			*s = Score(math.Inf(1))
		case "-Inf":
			*s = Score(math.Inf(-1))
		default:
			return fmt.Errorf("invalid score %q", text)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Score(v)
	return nil
}

// TrainingRecord describes one trainer invocation and the evolutions it
// produced.
type TrainingRecord struct {
	VersionedRecord
	ID           string          `json:"id"`
	CreatedAtUTC time.Time       `json:"created_at_utc"`
	Runs         int             `json:"runs"`
	BaseSeed     *int64          `json:"base_seed,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	EvolutionIDs []string        `json:"evolution_ids"`
	BestFitness  Score           `json:"best_fitness"`
	Failures     []FailureRecord `json:"failures,omitempty"`
}

type FailureRecord struct {
	Run   int    `json:"run"`
	Error string `json:"error"`
}

// EvolutionRecord is the persisted outcome of a single run.
type EvolutionRecord struct {
	VersionedRecord
	ID          string             `json:"id"`
	TrainingID  string             `json:"training_id"`
	Run         int                `json:"run"`
	Seed        int64              `json:"seed"`
	BestFitness Score              `json:"best_fitness"`
	BestProgram ProgramRecord      `json:"best_program"`
	Generations int                `json:"generations"`
	Evaluations int                `json:"evaluations"`
	Stopped     bool               `json:"stopped"`
	DurationMS  int64              `json:"duration_ms"`
	Statistics  []StatisticsRecord `json:"statistics"`
}

// ProgramRecord keeps a readable rendering of a program rather than its
// instruction encoding.
type ProgramRecord struct {
	Fingerprint     string    `json:"fingerprint"`
	Length          int       `json:"length"`
	EffectiveLength int       `json:"effective_length"`
	Source          string    `json:"source"`
	Effective       string    `json:"effective"`
	Constants       []float64 `json:"constants"`
}

// StatisticsRecord is one generation snapshot.
type StatisticsRecord struct {
	Generation            int     `json:"generation"`
	BestFitness           Score   `json:"best_fitness"`
	MeanFitness           Score   `json:"mean_fitness"`
	WorstFitness          Score   `json:"worst_fitness"`
	StdDevFitness         Score   `json:"stddev_fitness"`
	BestEverFitness       Score   `json:"best_ever_fitness"`
	MeanEffectiveLength   float64 `json:"mean_effective_length"`
	MinEffectiveLength    float64 `json:"min_effective_length"`
	MedianEffectiveLength float64 `json:"median_effective_length"`
	MaxEffectiveLength    float64 `json:"max_effective_length"`
	MeanProgramLength     float64 `json:"mean_program_length"`
	Evaluations           int     `json:"evaluations"`
}
