package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"lgp/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp for newly written records.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeTraining(t model.TrainingRecord) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeTraining(data []byte) (model.TrainingRecord, error) {
	var training model.TrainingRecord
	if err := json.Unmarshal(data, &training); err != nil {
		return model.TrainingRecord{}, err
	}
	if err := checkVersion(training.VersionedRecord); err != nil {
		return model.TrainingRecord{}, err
	}
	return training, nil
}

func EncodeEvolution(e model.EvolutionRecord) ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEvolution(data []byte) (model.EvolutionRecord, error) {
	var evolution model.EvolutionRecord
	if err := json.Unmarshal(data, &evolution); err != nil {
		return model.EvolutionRecord{}, err
	}
	if err := checkVersion(evolution.VersionedRecord); err != nil {
		return model.EvolutionRecord{}, err
	}
	return evolution, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func sortTrainings(trainings []model.TrainingRecord) {
	sort.Slice(trainings, func(i, j int) bool {
		if !trainings[i].CreatedAtUTC.Equal(trainings[j].CreatedAtUTC) {
			return trainings[i].CreatedAtUTC.Before(trainings[j].CreatedAtUTC)
		}
		return trainings[i].ID < trainings[j].ID
	})
}
