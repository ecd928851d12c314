package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

// Actor names the student at the desk in exactly one of four ways.
type Actor struct {
	StudentID        uuid.UUID
	RegistrationCode string
	Sample           []float64
	Image            []byte
}

func (a Actor) ways() int {
	n := 0
	for _, set := range []bool{a.StudentID != uuid.Nil, a.RegistrationCode != "", len(a.Sample) > 0, len(a.Image) > 0} {
		if set {
			n++
		}
	}

	return n
}

// Resolve dispatches to the lookup matching the way the actor was named.
func (r *Resolver) Resolve(ctx context.Context, actor Actor) (catalog.Student, error) {
	if actor.ways() != 1 {
		return catalog.Student{}, core.ValidationFailed(
			"exactly one of student id, registration code, biometric sample or image is required")
	}

	switch {
	case actor.StudentID != uuid.Nil:
		return r.ResolveByID(ctx, actor.StudentID)
	case actor.RegistrationCode != "":
		return r.ResolveByRegistration(ctx, actor.RegistrationCode)
	case len(actor.Sample) > 0:
		return r.ResolveByBiometric(ctx, actor.Sample)
	default:
		return r.ResolveByImage(ctx, actor.Image)
	}
}
