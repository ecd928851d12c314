// Package seed inserts catalog rows. The catalog itself is managed outside this service, so
// these inserts only serve demo data and integration tests.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/internal/adapters"
)

var ErrSeedingFailed = errors.New("seeding catalog failed")

// Seeder writes catalog rows through db.
type Seeder struct {
	db adapters.Queryer
}

func New(db adapters.Queryer) Seeder {
	return Seeder{db: db}
}

func (s Seeder) insert(ctx context.Context, table string, rows ...any) error {
	sqlQuery, _, err := goqu.Dialect("postgres").Insert(table).Rows(rows...).ToSQL()
	if err != nil {
		return errors.Join(ErrSeedingFailed, err)
	}

	if _, err := s.db.Exec(ctx, sqlQuery); err != nil {
		return errors.Join(ErrSeedingFailed, errors.New(table), err)
	}

	return nil
}

func timestamp(t time.Time) goqu.Expression {
	return goqu.L("?::timestamptz", t.UTC().Format(time.RFC3339Nano))
}

func (s Seeder) Student(ctx context.Context, student catalog.Student) error {
	template := student.Template
	if template == nil {
		template = []float64{}
	}

	templateJSON, err := jsoniter.Marshal(template)
	if err != nil {
		return errors.Join(ErrSeedingFailed, err)
	}

	return s.insert(ctx, "students", goqu.Record{
		"id":                  student.ID.String(),
		"display_name":        student.DisplayName,
		"registration_number": student.RegistrationNumber,
		"national_id":         student.NationalID,
		"active":              student.Active,
		"biometric_template":  goqu.L("?::jsonb", string(templateJSON)),
	})
}

func (s Seeder) Class(ctx context.Context, class catalog.Class) error {
	return s.insert(ctx, "classes", goqu.Record{
		"id":   class.ID.String(),
		"code": class.Code,
		"name": class.Name,
		"term": class.Term,
		"year": class.Year,
	})
}

// Subject also links the subject to its classes, which must exist.
func (s Seeder) Subject(ctx context.Context, subject catalog.Subject) error {
	err := s.insert(ctx, "subjects", goqu.Record{
		"id":         subject.ID.String(),
		"code":       subject.Code,
		"name":       subject.Name,
		"teacher_id": subject.TeacherID.String(),
	})
	if err != nil || len(subject.ClassIDs) == 0 {
		return err
	}

	links := make([]any, 0, len(subject.ClassIDs))
	for _, classID := range subject.ClassIDs {
		links = append(links, goqu.Record{"subject_id": subject.ID.String(), "class_id": classID.String()})
	}

	return s.insert(ctx, "subject_classes", links...)
}

func (s Seeder) Enroll(ctx context.Context, studentID uuid.UUID, subjectIDs ...uuid.UUID) error {
	if len(subjectIDs) == 0 {
		return nil
	}

	rows := make([]any, 0, len(subjectIDs))
	for _, subjectID := range subjectIDs {
		rows = append(rows, goqu.Record{"student_id": studentID.String(), "subject_id": subjectID.String()})
	}

	return s.insert(ctx, "enrollments", rows...)
}

func (s Seeder) Unit(ctx context.Context, unit catalog.Unit) error {
	return s.insert(ctx, "units", goqu.Record{
		"id":        unit.ID.String(),
		"asset_tag": unit.AssetTag,
		"model":     unit.Model,
		"status":    string(unit.Status),
	})
}

func (s Seeder) Reservation(ctx context.Context, r catalog.Reservation) error {
	return s.insert(ctx, "reservations", goqu.Record{
		"id":         r.ID.String(),
		"teacher_id": r.TeacherID.String(),
		"subject_id": r.SubjectID.String(),
		"class_id":   r.ClassID.String(),
		"class_date": timestamp(r.ClassDate),
		"class_time": r.ClassTime,
		"shift":      string(r.Shift),
		"quantity":   r.Quantity,
		"status":     string(r.Status),
		"created_at": timestamp(r.CreatedAt),
	})
}
