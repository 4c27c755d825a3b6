package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"lgp/internal/model"
)

// StatisticsColumns is the CSV header, one column per generation statistic
// after the run index.
var StatisticsColumns = []string{
	"run",
	"generation",
	"best_fitness",
	"mean_fitness",
	"worst_fitness",
	"stddev_fitness",
	"best_ever_fitness",
	"mean_effective_length",
	"min_effective_length",
	"median_effective_length",
	"max_effective_length",
	"mean_program_length",
	"evaluations",
}

// Summary is the JSON document written for a training.
type Summary struct {
	Training   model.TrainingRecord `json:"training"`
	Evolutions []EvolutionSummary   `json:"evolutions"`
}

type EvolutionSummary struct {
	ID          string              `json:"id"`
	Run         int                 `json:"run"`
	Seed        int64               `json:"seed"`
	BestFitness model.Score         `json:"best_fitness"`
	Generations int                 `json:"generations"`
	Evaluations int                 `json:"evaluations"`
	Stopped     bool                `json:"stopped"`
	BestProgram model.ProgramRecord `json:"best_program"`
}

// StatisticsRow is one parsed CSV row.
type StatisticsRow struct {
	Run        int
	Statistics model.StatisticsRecord
}

// WriteStatisticsCSV writes one row per run and generation.
func WriteStatisticsCSV(w io.Writer, evolutions []model.EvolutionRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(StatisticsColumns); err != nil {
		return err
	}
	for _, ev := range evolutions {
		for _, s := range ev.Statistics {
			if err := writer.Write([]string{
				strconv.Itoa(ev.Run),
				strconv.Itoa(s.Generation),
				formatFloat(float64(s.BestFitness)),
				formatFloat(float64(s.MeanFitness)),
				formatFloat(float64(s.WorstFitness)),
				formatFloat(float64(s.StdDevFitness)),
				formatFloat(float64(s.BestEverFitness)),
				formatFloat(s.MeanEffectiveLength),
				formatFloat(s.MinEffectiveLength),
				formatFloat(s.MedianEffectiveLength),
				formatFloat(s.MaxEffectiveLength),
				formatFloat(s.MeanProgramLength),
				strconv.Itoa(s.Evaluations),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadStatisticsCSV parses a file written by WriteStatisticsCSV.
func ReadStatisticsCSV(r io.Reader) ([]StatisticsRow, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []StatisticsRow{}, nil
		}
		return nil, err
	}
	if len(header) != len(StatisticsColumns) {
		return nil, fmt.Errorf("statistics header must have %d columns, got %d", len(StatisticsColumns), len(header))
	}

	rows := make([]StatisticsRow, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRow(record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(record []string) (StatisticsRow, error) {
	ints := make([]int, 3)
	for i, col := range []int{0, 1, 12} {
		v, err := strconv.Atoi(record[col])
		if err != nil {
			return StatisticsRow{}, fmt.Errorf("column %s: %w", StatisticsColumns[col], err)
		}
		ints[i] = v
	}
	floats := make([]float64, 10)
	for i := range floats {
		v, err := strconv.ParseFloat(record[i+2], 64)
		if err != nil {
			return StatisticsRow{}, fmt.Errorf("column %s: %w", StatisticsColumns[i+2], err)
		}
		floats[i] = v
	}
	return StatisticsRow{
		Run: ints[0],
		Statistics: model.StatisticsRecord{
			Generation:            ints[1],
			BestFitness:           model.Score(floats[0]),
			MeanFitness:           model.Score(floats[1]),
			WorstFitness:          model.Score(floats[2]),
			StdDevFitness:         model.Score(floats[3]),
			BestEverFitness:       model.Score(floats[4]),
			MeanEffectiveLength:   floats[5],
			MinEffectiveLength:    floats[6],
			MedianEffectiveLength: floats[7],
			MaxEffectiveLength:    floats[8],
			MeanProgramLength:     floats[9],
			Evaluations:           ints[2],
		},
	}, nil
}

// WriteSummaryJSON writes the training and the outcome of every run.
func WriteSummaryJSON(w io.Writer, training model.TrainingRecord, evolutions []model.EvolutionRecord) error {
	summary := Summary{Training: training, Evolutions: make([]EvolutionSummary, 0, len(evolutions))}
	for _, ev := range evolutions {
		summary.Evolutions = append(summary.Evolutions, EvolutionSummary{
			ID:          ev.ID,
			Run:         ev.Run,
			Seed:        ev.Seed,
			BestFitness: ev.BestFitness,
			Generations: ev.Generations,
			Evaluations: ev.Evaluations,
			Stopped:     ev.Stopped,
			BestProgram: ev.BestProgram,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

// WriteArtifacts writes summary.json and statistics.csv under
// baseDir/<training id> and returns that directory.
func WriteArtifacts(baseDir string, training model.TrainingRecord, evolutions []model.EvolutionRecord) (string, error) {
	if training.ID == "" {
		return "", fmt.Errorf("training id is required")
	}
	runDir := filepath.Join(baseDir, training.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, "summary.json"), func(w io.Writer) error {
		return WriteSummaryJSON(w, training, evolutions)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, "statistics.csv"), func(w io.Writer) error {
		return WriteStatisticsCSV(w, evolutions)
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
