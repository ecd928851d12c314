// Command seeddemo fills an empty database with a demo school: classes, subjects, enrolled
// students with biometric templates, a pool of tablets and one reservation per class for today.
// It uses the same configuration as
// the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/config"
	"github.com/classroom-devices/loanledger/internal/adapters"
	"github.com/classroom-devices/loanledger/internal/schema"
	"github.com/classroom-devices/loanledger/internal/seed"
)

const (
	NumClasses          = 6
	NumStudentsPerClass = 25
	NumUnits            = 40
	NumUnitsMaintenance = 2
	UnitsPerReservation = 5
	TemplateDimensions  = 128
	SchoolYear          = 2026
)

var subjectNames = map[string]string{"SCI": "Science", "MAT": "Mathematics", "GEO": "Geography"}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := config.OpenPGXPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := adapters.NewPGXAdapter(pool)
	if err := schema.Migrate(ctx, db); err != nil {
		return err
	}

	return adapters.WithinTx(ctx, db, func(tx adapters.Queryer) error {
		return seedSchool(ctx, seed.New(tx), calendar.WithOffsetMinutes(cfg.DayUTCOffsetMinutes).DayOf(time.Now()))
	})
}

func seedSchool(ctx context.Context, s seed.Seeder, today calendar.Window) error {
	for i := 1; i <= NumUnits; i++ {
		status := catalog.UnitAvailable
		if i > NumUnits-NumUnitsMaintenance {
			status = catalog.UnitMaintenance
		}

		unit := catalog.Unit{ID: uuid.New(), AssetTag: fmt.Sprintf("TAB-%03d", i), Model: "Tablet 10", Status: status}
		if err := s.Unit(ctx, unit); err != nil {
			return err
		}
	}

	registration := 0

	for c := 1; c <= NumClasses; c++ {
		class := catalog.Class{
			ID:   uuid.New(),
			Code: fmt.Sprintf("%dA", c+5),
			Name: fmt.Sprintf("Grade %d A", c+5),
			Term: "1",
			Year: SchoolYear,
		}
		if err := s.Class(ctx, class); err != nil {
			return err
		}

		subjects := make([]catalog.Subject, 0, len(subjectNames))
		subjectIDs := make([]uuid.UUID, 0, len(subjectNames))
		for code, name := range subjectNames {
			subject := catalog.Subject{
				ID:        uuid.New(),
				Code:      code + "-" + class.Code,
				Name:      name,
				TeacherID: uuid.New(),
				ClassIDs:  []uuid.UUID{class.ID},
			}
			if err := s.Subject(ctx, subject); err != nil {
				return err
			}

			subjects = append(subjects, subject)
			subjectIDs = append(subjectIDs, subject.ID)
			slog.Info("seeded subject",
				slog.String("subject_id", subject.ID.String()),
				slog.String("teacher_id", subject.TeacherID.String()),
				slog.String("code", subject.Code))
		}

		for range NumStudentsPerClass {
			registration++

			student := catalog.Student{
				ID:                 uuid.New(),
				DisplayName:        fmt.Sprintf("Student %04d", registration),
				RegistrationNumber: fmt.Sprintf("R-%04d", registration),
				NationalID:         fmt.Sprintf("N-%08d", registration),
				Active:             true,
				Template:           randomTemplate(),
			}
			if err := s.Student(ctx, student); err != nil {
				return err
			}

			if err := s.Enroll(ctx, student.ID, subjectIDs...); err != nil {
				return err
			}
		}

		reservation := catalog.Reservation{
			ID:        uuid.New(),
			TeacherID: subjects[0].TeacherID,
			SubjectID: subjects[0].ID,
			ClassID:   class.ID,
			ClassDate: today.Start,
			ClassTime: "08:00",
			Shift:     catalog.ShiftMorning,
			Quantity:  UnitsPerReservation,
			Status:    catalog.ReservationActive,
			CreatedAt: time.Now(),
		}
		if err := s.Reservation(ctx, reservation); err != nil {
			return err
		}
	}

	slog.Info("seeded demo school",
		slog.Int("classes", NumClasses),
		slog.Int("students", registration),
		slog.Int("units", NumUnits),
		slog.Int("reserved_today", NumClasses*UnitsPerReservation))

	return nil
}

func randomTemplate() []float64 {
	template := make([]float64, TemplateDimensions)
	for i := range template {
		template[i] = rand.Float64()*2 - 1
	}

	return template
}
