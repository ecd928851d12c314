package identity

import (
	"context"
	"errors"
	"math"

	"github.com/classroom-devices/loanledger/catalog"
)

// DefaultMatchThreshold is the distance a match must stay strictly below.
const DefaultMatchThreshold = 0.6

var (
	ErrLoadingTemplatesFailed = errors.New("loading enrolled templates failed")
	ErrInvalidThreshold       = errors.New("match threshold must be positive")
)

// Match is the closest enrolled student for a sample.
type Match struct {
	Student  catalog.Student
	Distance float64
}

// Index finds the enrolled student closest to a sample. found is false when no candidate is
// close enough.
type Index interface {
	Nearest(ctx context.Context, sample []float64) (match Match, found bool, err error)
}

// TemplateSource lists the students that can be matched.
type TemplateSource interface {
	EnrolledStudents(ctx context.Context) ([]catalog.Student, error)
}

// LinearIndex compares the sample with every enrolled template on each call.
type LinearIndex struct {
	source    TemplateSource
	threshold float64
}

// NewLinearIndex creates a LinearIndex accepting matches strictly closer than threshold.
func NewLinearIndex(source TemplateSource, threshold float64) (LinearIndex, error) {
	if threshold <= 0 || math.IsNaN(threshold) {
		return LinearIndex{}, ErrInvalidThreshold
	}

	return LinearIndex{source: source, threshold: threshold}, nil
}

// Nearest returns the closest candidate if its distance is below the threshold. Candidates whose
// template length differs from the sample never match.
func (idx LinearIndex) Nearest(ctx context.Context, sample []float64) (Match, bool, error) {
	candidates, err := idx.source.EnrolledStudents(ctx)
	if err != nil {
		return Match{}, false, errors.Join(ErrLoadingTemplatesFailed, err)
	}

	if len(candidates) == 0 {
		return Match{}, false, nil
	}

	best := Match{Distance: math.MaxFloat64}
	for _, candidate := range candidates {
		if !candidate.HasTemplate() {
			continue
		}

		if d := Distance(sample, candidate.Template); d < best.Distance {
			best = Match{Student: candidate, Distance: d}
		}
	}

	if best.Distance < idx.threshold {
		return best, true, nil
	}

	return best, false, nil
}
