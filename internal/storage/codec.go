package storage

import (
	"encoding/json"
	"errors"

	"viralsim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSeries(s model.RunSeries) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSeries(data []byte) (model.RunSeries, error) {
	var series model.RunSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return model.RunSeries{}, err
	}
	if err := checkVersion(series.VersionedRecord); err != nil {
		return model.RunSeries{}, err
	}
	return series, nil
}

func EncodeGraphSnapshot(g model.GraphSnapshot) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGraphSnapshot(data []byte) (model.GraphSnapshot, error) {
	var snapshot model.GraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.GraphSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.GraphSnapshot{}, err
	}
	return snapshot, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
