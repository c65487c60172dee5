package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

var _ ports.ParameterStore = (*ParameterStore)(nil)

func TestFields(t *testing.T) {
	ctx := context.Background()
	s := NewParameterStore()
	q := domain.Transmon("q06")

	_, err := s.GetField(ctx, q, "clock_freqs:f01")
	assert.True(t, errors.Is(err, ports.ErrFieldNotFound))

	require.NoError(t, s.SetField(ctx, q, "clock_freqs:f01", domain.Some(4.64e9)))
	v, err := s.GetField(ctx, q, "clock_freqs:f01")
	require.NoError(t, err)
	assert.Equal(t, domain.Some(4.64e9), v)

	ok, err := s.FieldExists(ctx, q, "clock_freqs:f01")
	require.NoError(t, err)
	assert.True(t, ok)

	// same name, other kind
	ok, err = s.FieldExists(ctx, domain.Coupler("q06"), "clock_freqs:f01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPopulateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewParameterStore()
	q := domain.Transmon("q06")

	require.NoError(t, s.SetField(ctx, q, "rxy:amp180", domain.Some(0.1)))
	require.NoError(t, s.PopulateIfAbsent(ctx, q, map[string]domain.Value{
		"rxy:amp180":    domain.None(),
		"rxy:duration":  domain.Some(28e-9),
		"fresh_unknown": domain.None(),
	}))

	fields, err := s.GetFields(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, domain.Some(0.1), fields["rxy:amp180"])
	assert.Equal(t, domain.Some(28e-9), fields["rxy:duration"])
	assert.False(t, fields["fresh_unknown"].IsSet())

	// the copy is detached from the store
	fields["rxy:amp180"] = domain.None()
	v, _ := s.GetField(ctx, q, "rxy:amp180")
	assert.True(t, v.IsSet())
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	s := NewParameterStore()
	q := domain.Transmon("q06")

	_, err := s.GetStatus(ctx, q, "rabi_oscillations")
	assert.True(t, errors.Is(err, ports.ErrStatusMissing))

	require.NoError(t, s.PopulateStatusIfAbsent(ctx, q, "rabi_oscillations"))
	st, err := s.GetStatus(ctx, q, "rabi_oscillations")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotCalibrated, st)

	require.NoError(t, s.SetStatus(ctx, q, "rabi_oscillations", domain.StatusCalibrated))
	require.NoError(t, s.PopulateStatusIfAbsent(ctx, q, "rabi_oscillations"))
	st, err = s.GetStatus(ctx, q, "rabi_oscillations")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCalibrated, st)
}
