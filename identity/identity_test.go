package identity_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/internal/memstore"
	"github.com/classroom-devices/loanledger/shared/core"
)

func student(registration string, active bool, template ...float64) catalog.Student {
	return catalog.Student{
		ID:                 uuid.New(),
		DisplayName:        "Student " + registration,
		RegistrationNumber: registration,
		Active:             active,
		Template:           template,
	}
}

func directory(students ...catalog.Student) *memstore.Store {
	store := memstore.New()
	for _, s := range students {
		store.AddStudent(s)
	}

	return store
}

func Test_Distance(t *testing.T) {
	assert.Equal(t, 0.0, identity.Distance([]float64{0.1, 0.2}, []float64{0.1, 0.2}))
	assert.InDelta(t, 5.0, identity.Distance([]float64{0, 0}, []float64{3, 4}), 1e-12)
	assert.Equal(t, math.MaxFloat64, identity.Distance([]float64{1}, []float64{1, 2}))
}

func Test_ResolveByBiometric_IdenticalSampleMatchesAtDistanceZero(t *testing.T) {
	// arrange
	alice := student("R-1", true, 0.1, 0.2, 0.3)
	bob := student("R-2", true, 0.9, 0.9, 0.9)
	resolver, err := identity.NewResolver(directory(alice, bob))
	require.NoError(t, err)

	// act
	resolved, err := resolver.ResolveByBiometric(context.Background(), []float64{0.1, 0.2, 0.3})

	// assert
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resolved.ID)
}

func Test_ResolveByBiometric_EmptyEnrollmentIsUnresolved(t *testing.T) {
	resolver, err := identity.NewResolver(directory())
	require.NoError(t, err)

	_, err = resolver.ResolveByBiometric(context.Background(), []float64{0.1, 0.2})

	assert.ErrorIs(t, err, core.ErrUnresolved)
}

func Test_ResolveByBiometric_ThresholdIsStrict(t *testing.T) {
	// arrange
	target := student("R-1", true, 0, 0)
	index, err := identity.NewLinearIndex(directory(target), 5)
	require.NoError(t, err)
	resolver, err := identity.NewResolver(directory(target), identity.WithIndex(index))
	require.NoError(t, err)

	// act
	_, errAtThreshold := resolver.ResolveByBiometric(context.Background(), []float64{3, 4})
	resolved, errBelow := resolver.ResolveByBiometric(context.Background(), []float64{3, 3.99})

	// assert
	assert.ErrorIs(t, errAtThreshold, core.ErrUnresolved, "a distance equal to the threshold does not match")
	require.NoError(t, errBelow)
	assert.Equal(t, target.ID, resolved.ID)
}

func Test_ResolveByBiometric_SkipsCorruptTemplatesAndInactiveStudents(t *testing.T) {
	// arrange
	corrupt := student("R-1", true, 0.1, 0.2)
	inactive := student("R-2", false, 0.1, 0.2, 0.3)
	nearby := student("R-3", true, 0.1, 0.2, 0.5)
	resolver, err := identity.NewResolver(directory(corrupt, inactive, nearby))
	require.NoError(t, err)

	// act
	resolved, err := resolver.ResolveByBiometric(context.Background(), []float64{0.1, 0.2, 0.3})

	// assert
	require.NoError(t, err)
	assert.Equal(t, nearby.ID, resolved.ID)
}

func Test_ResolveByBiometric_EmptySampleIsAValidationError(t *testing.T) {
	resolver, err := identity.NewResolver(directory())
	require.NoError(t, err)

	_, err = resolver.ResolveByBiometric(context.Background(), nil)

	assert.ErrorIs(t, err, core.ErrValidation)
}

func Test_ResolveByRegistration(t *testing.T) {
	active := student("R-100", true)
	inactive := student("R-200", false)
	resolver, err := identity.NewResolver(directory(active, inactive))
	require.NoError(t, err)

	resolved, err := resolver.ResolveByRegistration(context.Background(), " R-100 ")
	require.NoError(t, err)
	assert.Equal(t, active.ID, resolved.ID)

	_, err = resolver.ResolveByRegistration(context.Background(), "R-200")
	assert.ErrorIs(t, err, core.ErrStudentNotFound)

	_, err = resolver.ResolveByRegistration(context.Background(), "R-999")
	assert.ErrorIs(t, err, core.ErrStudentNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = resolver.ResolveByRegistration(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

type extractorStub struct {
	vector []float64
	err    error
}

func (e extractorStub) Extract(context.Context, []byte) ([]float64, error) {
	return e.vector, e.err
}

func Test_ResolveByImage(t *testing.T) {
	alice := student("R-1", true, 0.5, 0.5)

	testCases := []struct {
		description string
		extractor   identity.FeatureExtractor
		wantErr     error
	}{
		{"matching vector", extractorStub{vector: []float64{0.5, 0.5}}, nil},
		{"no face detected", extractorStub{err: core.ErrUnresolved}, core.ErrUnresolved},
		{"service down", extractorStub{err: errors.New("dial tcp: connection refused")}, core.ErrExternalServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			resolver, err := identity.NewResolver(directory(alice), identity.WithFeatureExtractor(tc.extractor))
			require.NoError(t, err)

			resolved, err := resolver.ResolveByImage(context.Background(), []byte{0xff, 0xd8})

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, alice.ID, resolved.ID)
		})
	}
}

func Test_ResolveByImage_WithoutExtractorIsUnavailable(t *testing.T) {
	resolver, err := identity.NewResolver(directory())
	require.NoError(t, err)

	_, err = resolver.ResolveByImage(context.Background(), []byte{1})

	assert.ErrorIs(t, err, core.ErrExternalServiceUnavailable)
}

func Test_Resolve_RequiresExactlyOneWay(t *testing.T) {
	alice := student("R-1", true, 0.5)
	resolver, err := identity.NewResolver(directory(alice))
	require.NoError(t, err)

	_, errNone := resolver.Resolve(context.Background(), identity.Actor{})
	_, errTwo := resolver.Resolve(context.Background(), identity.Actor{StudentID: alice.ID, RegistrationCode: "R-1"})
	byID, errByID := resolver.Resolve(context.Background(), identity.Actor{StudentID: alice.ID})

	assert.ErrorIs(t, errNone, core.ErrValidation)
	assert.ErrorIs(t, errTwo, core.ErrValidation)
	require.NoError(t, errByID)
	assert.Equal(t, alice.ID, byID.ID)
}

func Test_NewLinearIndex_RejectsInvalidThreshold(t *testing.T) {
	_, err := identity.NewLinearIndex(directory(), 0)

	assert.ErrorIs(t, err, identity.ErrInvalidThreshold)
}
