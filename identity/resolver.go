package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	logMsgUnresolved = "identity: biometric sample unresolved"
	logMsgResolved   = "identity: biometric sample resolved"
	logAttrDistance  = "distance"
	logAttrStudentID = "student_id"
)

var (
	ErrResolvingIdentityFailed = errors.New("resolving identity failed")
	ErrNilIndex                = errors.New("index must not be nil")
	ErrNilFeatureExtractor     = errors.New("feature extractor must not be nil")
)

// Directory is the part of the catalog identity resolution reads.
type Directory interface {
	TemplateSource
	StudentByID(ctx context.Context, id uuid.UUID) (catalog.Student, error)
	StudentByRegistration(ctx context.Context, registrationNumber string) (catalog.Student, error)
}

// FeatureExtractor turns a still image into a feature vector. Errors that are a *core.Failure
// are passed to the caller unchanged, any other error means the service is unavailable.
type FeatureExtractor interface {
	Extract(ctx context.Context, image []byte) ([]float64, error)
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Resolver resolves actors to active students.
type Resolver struct {
	directory Directory
	index     Index
	extractor FeatureExtractor
	logger    Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithIndex replaces the default LinearIndex.
func WithIndex(index Index) Option {
	return func(r *Resolver) error {
		if index == nil {
			return ErrNilIndex
		}

		r.index = index

		return nil
	}
}

// WithThreshold sets the match threshold of the default LinearIndex.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) error {
		index, err := NewLinearIndex(r.directory, threshold)
		if err != nil {
			return err
		}

		r.index = index

		return nil
	}
}

// WithFeatureExtractor enables ResolveByImage.
func WithFeatureExtractor(extractor FeatureExtractor) Option {
	return func(r *Resolver) error {
		if extractor == nil {
			return ErrNilFeatureExtractor
		}

		r.extractor = extractor

		return nil
	}
}

// WithLogger sets a logger for match outcomes.
func WithLogger(logger Logger) Option {
	return func(r *Resolver) error {
		r.logger = logger
		return nil
	}
}

// NewResolver creates a Resolver over directory with a LinearIndex at DefaultMatchThreshold.
func NewResolver(directory Directory, options ...Option) (*Resolver, error) {
	r := &Resolver{
		directory: directory,
		index:     LinearIndex{source: directory, threshold: DefaultMatchThreshold},
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ResolveByID returns the active student with id, or a StudentNotFound failure.
func (r *Resolver) ResolveByID(ctx context.Context, id uuid.UUID) (catalog.Student, error) {
	student, err := r.directory.StudentByID(ctx, id)

	return activeStudent(student, err)
}

// ResolveByRegistration returns the active student with the registration number, or a
// StudentNotFound failure.
func (r *Resolver) ResolveByRegistration(ctx context.Context, code string) (catalog.Student, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return catalog.Student{}, core.ValidationFailed("registration code is required")
	}

	student, err := r.directory.StudentByRegistration(ctx, code)

	return activeStudent(student, err)
}

// ResolveByBiometric returns the enrolled student whose template is closest to sample, or an
// Unresolved failure when nobody is strictly below the threshold.
func (r *Resolver) ResolveByBiometric(ctx context.Context, sample []float64) (catalog.Student, error) {
	if len(sample) == 0 {
		return catalog.Student{}, core.ValidationFailed("biometric sample is empty")
	}

	match, found, err := r.index.Nearest(ctx, sample)
	if err != nil {
		return catalog.Student{}, errors.Join(ErrResolvingIdentityFailed, err)
	}

	if !found {
		r.debug(logMsgUnresolved, logAttrDistance, match.Distance)
		return catalog.Student{}, core.ErrUnresolved
	}

	r.debug(logMsgResolved, logAttrDistance, match.Distance, logAttrStudentID, match.Student.ID.String())

	return match.Student, nil
}

// ResolveByImage extracts a feature vector from image and resolves it biometrically.
func (r *Resolver) ResolveByImage(ctx context.Context, image []byte) (catalog.Student, error) {
	if len(image) == 0 {
		return catalog.Student{}, core.ValidationFailed("image is empty")
	}

	if r.extractor == nil {
		return catalog.Student{}, core.ExternalServiceUnavailable("feature extraction is not configured")
	}

	sample, err := r.extractor.Extract(ctx, image)
	if err != nil {
		if _, ok := core.AsFailure(err); ok {
			return catalog.Student{}, err
		}

		return catalog.Student{}, core.ExternalServiceUnavailable(err.Error())
	}

	return r.ResolveByBiometric(ctx, sample)
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func activeStudent(student catalog.Student, err error) (catalog.Student, error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return catalog.Student{}, core.ErrStudentNotFound
	case err != nil:
		return catalog.Student{}, errors.Join(ErrResolvingIdentityFailed, err)
	case !student.Active:
		return catalog.Student{}, core.ErrStudentNotFound
	}

	return student, nil
}
