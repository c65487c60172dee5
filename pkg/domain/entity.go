package domain

import (
	"fmt"
	"strings"
)

// EntityKind distinguishes qubits from couplers in the parameter store.
type EntityKind string

const (
	EntityTransmon EntityKind = "transmons"
	EntityCoupler  EntityKind = "couplers"
)

// Entity is a physical element with its own parameter hash.
type Entity struct {
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// Transmon returns the entity for a qubit.
func Transmon(name string) Entity {
	return Entity{Kind: EntityTransmon, Name: name}
}

// Coupler returns the entity for a coupler.
func Coupler(name string) Entity {
	return Entity{Kind: EntityCoupler, Name: name}
}

// Key returns the parameter hash key, e.g. "transmons:q06".
func (e Entity) Key() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Name)
}

// StatusKey returns the calibration status hash key, e.g. "cs:q06".
func (e Entity) StatusKey() string {
	return fmt.Sprintf("cs:%s", e.Name)
}

func (e Entity) String() string {
	return e.Key()
}

// CouplerQubits splits a coupler name "q06_q07" into its qubits.
func CouplerQubits(coupler string) ([]string, error) {
	parts := strings.Split(coupler, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid coupler name: %s", coupler)
	}
	return parts, nil
}

// BackupField returns the field holding the previous value of field.
func BackupField(field string) string {
	return field + "_backup"
}
