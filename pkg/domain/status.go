package domain

import "fmt"

// CalibrationStatus is the per-entity, per-node flag kept in the store.
type CalibrationStatus string

const (
	StatusNotCalibrated CalibrationStatus = "not_calibrated"
	StatusCalibrated    CalibrationStatus = "calibrated"
)

// ParseCalibrationStatus rejects anything but the two known flags.
func ParseCalibrationStatus(s string) (CalibrationStatus, error) {
	switch CalibrationStatus(s) {
	case StatusNotCalibrated, StatusCalibrated:
		return CalibrationStatus(s), nil
	default:
		return "", fmt.Errorf("unknown calibration status: %q", s)
	}
}

// DataStatus summarises a node across all of its scoped entities.
type DataStatus string

const (
	DataUndefined DataStatus = "undefined"
	DataInSpec    DataStatus = "in_spec"
	DataOutOfSpec DataStatus = "out_of_spec"
)

// AggregateStatus is in_spec only when every entity is calibrated.
func AggregateStatus(statuses []CalibrationStatus) DataStatus {
	if len(statuses) == 0 {
		return DataUndefined
	}
	for _, s := range statuses {
		if s != StatusCalibrated {
			return DataOutOfSpec
		}
	}
	return DataInSpec
}
