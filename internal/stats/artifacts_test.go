package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lgp/internal/model"
)

func sampleEvolutions() []model.EvolutionRecord {
	return []model.EvolutionRecord{
		{
			ID:          "t1-0",
			Run:         0,
			Seed:        3,
			BestFitness: 0.5,
			Generations: 2,
			Statistics: []model.StatisticsRecord{
				{Generation: 1, BestFitness: 1, MeanFitness: model.Score(math.Inf(1)), WorstFitness: model.Score(math.Inf(1)), MeanEffectiveLength: 2.5, Evaluations: 14},
				{Generation: 2, BestFitness: 0.5, MeanFitness: 3, WorstFitness: 9, StdDevFitness: 1.25, Evaluations: 18},
			},
		},
		{
			ID:          "t1-1",
			Run:         1,
			BestFitness: 2,
			Generations: 1,
			Statistics:  []model.StatisticsRecord{{Generation: 1, BestFitness: 2, MeanFitness: 2, WorstFitness: 2, Evaluations: 14}},
		},
	}
}

func TestStatisticsCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatisticsCSV(&buf, sampleEvolutions()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(StatisticsColumns, ",") {
		t.Fatalf("unexpected header %q", lines[0])
	}

	rows, err := ReadStatisticsCSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Run != 0 || rows[2].Run != 1 {
		t.Fatalf("rows out of run order: %+v", rows)
	}
	if !math.IsInf(float64(rows[0].Statistics.MeanFitness), 1) {
		t.Fatalf("undefined mean fitness lost: %v", rows[0].Statistics.MeanFitness)
	}
	if rows[1].Statistics.StdDevFitness != 1.25 || rows[1].Statistics.Evaluations != 18 {
		t.Fatalf("unexpected second row: %+v", rows[1].Statistics)
	}
}

func TestReadStatisticsCSVRejectsBadHeader(t *testing.T) {
	if _, err := ReadStatisticsCSV(strings.NewReader("run,generation\n0,1\n")); err == nil {
		t.Fatal("expected header error")
	}
	rows, err := ReadStatisticsCSV(strings.NewReader(""))
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty result for empty input, rows=%v err=%v", rows, err)
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	training := model.TrainingRecord{ID: "t1", Runs: 2, BestFitness: 0.5}
	if err := WriteSummaryJSON(&buf, training, sampleEvolutions()); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	var summary Summary
	if err := json.Unmarshal(buf.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Training.ID != "t1" || len(summary.Evolutions) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Evolutions[1].BestFitness != 2 {
		t.Fatalf("unexpected run 1 fitness %v", summary.Evolutions[1].BestFitness)
	}
}

func TestWriteArtifacts(t *testing.T) {
	base := t.TempDir()
	dir, err := WriteArtifacts(base, model.TrainingRecord{ID: "t1"}, sampleEvolutions())
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if dir != filepath.Join(base, "t1") {
		t.Fatalf("unexpected artifact dir %s", dir)
	}
	for _, name := range []string{"summary.json", "statistics.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if _, err := WriteArtifacts(base, model.TrainingRecord{}, nil); err == nil {
		t.Fatal("expected missing id error")
	}
}
