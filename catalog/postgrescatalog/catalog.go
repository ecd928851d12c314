package postgrescatalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/internal/adapters"
	"github.com/classroom-devices/loanledger/ledger"
)

const (
	dialectPostgres = "postgres"

	tableStudents       = "students"
	tableUnits          = "units"
	tableSubjects       = "subjects"
	tableSubjectClasses = "subject_classes"
	tableEnrollments    = "enrollments"
	tableReservations   = "reservations"

	colID                 = "id"
	colDisplayName        = "display_name"
	colRegistrationNumber = "registration_number"
	colNationalID         = "national_id"
	colActive             = "active"
	colBiometricTemplate  = "biometric_template"
	colAssetTag           = "asset_tag"
	colModel              = "model"
	colStatus             = "status"
	colCode               = "code"
	colName               = "name"
	colTeacherID          = "teacher_id"
	colSubjectID          = "subject_id"
	colClassID            = "class_id"
	colStudentID          = "student_id"
	colClassDate          = "class_date"
	colClassTime          = "class_time"
	colShift              = "shift"
	colQuantity           = "quantity"
	colCreatedAt          = "created_at"

	castTimestamp = "?::timestamptz"

	// advisoryLockNamespace is the first key of the two-key advisory lock taken per day.
	advisoryLockNamespace = 7301

	logMsgSQLExecuted        = "executed catalog sql"
	logMsgUnreadableTemplate = "ignoring unreadable biometric template"
	logAttrQuery             = "query"
	logAttrDurationMS        = "duration_ms"
	logAttrStudentID         = "student_id"
	logAttrError             = "error"

	// jsonb_array_length raises on non-arrays; CASE keeps it off them.
	hasTemplateCondition = "CASE WHEN jsonb_typeof(" + colBiometricTemplate + ") = 'array' THEN jsonb_array_length(" +
		colBiometricTemplate + ") > 0 ELSE false END"
)

// EntryReader reads ledger entries on a caller-owned transaction.
type EntryReader interface {
	QueryWithin(ctx context.Context, q adapters.Queryer, filter ledger.Filter) (
		ledger.StorableEntries,
		ledger.MaxSequenceNumberUint,
		error,
	)
}

// Catalog is the PostgreSQL catalog store.
type Catalog struct {
	queries
	db      adapters.DBAdapter
	entries EntryReader
}

// NewCatalogFromPGXPool creates a Catalog on a pgx pool.
func NewCatalogFromPGXPool(db *pgxpool.Pool, entries EntryReader, options ...Option) (*Catalog, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewPGXAdapter(db), entries, options...), nil
}

// NewCatalogFromSQLDB creates a Catalog on a sql.DB.
func NewCatalogFromSQLDB(db *sql.DB, entries EntryReader, options ...Option) (*Catalog, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewSQLAdapter(db), entries, options...), nil
}

// NewCatalogFromSQLX creates a Catalog on a sqlx.DB.
func NewCatalogFromSQLX(db *sqlx.DB, entries EntryReader, options ...Option) (*Catalog, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewSQLXAdapter(db), entries, options...), nil
}

func newCatalog(db adapters.DBAdapter, entries EntryReader, options ...Option) *Catalog {
	c := &Catalog{db: db, entries: entries}
	for _, option := range options {
		option(c)
	}

	c.queries = queries{q: db, logger: c.logger}

	return c
}

// WithDayLock runs fn in a transaction holding the advisory lock of day.
func (c *Catalog) WithDayLock(
	ctx context.Context,
	day calendar.Window,
	fn func(ctx context.Context, tx catalog.ReservationTx) error,
) error {

	return adapters.WithinTx(ctx, c.db, func(tx adapters.Queryer) error {
		lockQuery, _, err := goqu.Dialect(dialectPostgres).
			Select(goqu.Func("pg_advisory_xact_lock", advisoryLockNamespace, int32(day.Key()))).
			ToSQL()
		if err != nil {
			return errors.Join(catalog.ErrWritingCatalogFailed, err)
		}

		txQueries := queries{q: tx, logger: c.logger}
		if _, err := txQueries.exec(ctx, lockQuery); err != nil {
			return errors.Join(catalog.ErrWritingCatalogFailed, err)
		}

		return fn(ctx, &reservationTx{queries: txQueries, entries: c.entries})
	})
}

type reservationTx struct {
	queries
	entries EntryReader
}

func (t *reservationTx) LockReservation(ctx context.Context, id uuid.UUID) (catalog.Reservation, error) {
	return t.reservationWhere(ctx, goqu.C(colID).Eq(id.String()), true)
}

func (t *reservationTx) LoanEntries(ctx context.Context, filter ledger.Filter) (ledger.StorableEntries, error) {
	if t.entries == nil {
		return ledger.StorableEntries{}, nil
	}

	entries, _, err := t.entries.QueryWithin(ctx, t.q, filter)

	return entries, err
}

func (t *reservationTx) InsertReservation(ctx context.Context, r catalog.Reservation) error {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(tableReservations).
		Rows(goqu.Record{
			colID:        r.ID.String(),
			colTeacherID: r.TeacherID.String(),
			colSubjectID: r.SubjectID.String(),
			colClassID:   r.ClassID.String(),
			colClassDate: timestampLiteral(r.ClassDate),
			colClassTime: r.ClassTime,
			colShift:     string(r.Shift),
			colQuantity:  r.Quantity,
			colStatus:    string(r.Status),
			colCreatedAt: timestampLiteral(r.CreatedAt),
		}).
		ToSQL()
	if err != nil {
		return errors.Join(catalog.ErrWritingCatalogFailed, err)
	}

	if _, err := t.exec(ctx, sqlQuery); err != nil {
		return errors.Join(catalog.ErrWritingCatalogFailed, err)
	}

	return nil
}

func (t *reservationTx) UpdateReservation(ctx context.Context, r catalog.Reservation) error {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Update(tableReservations).
		Set(goqu.Record{
			colSubjectID: r.SubjectID.String(),
			colClassID:   r.ClassID.String(),
			colClassDate: timestampLiteral(r.ClassDate),
			colClassTime: r.ClassTime,
			colShift:     string(r.Shift),
			colQuantity:  r.Quantity,
			colStatus:    string(r.Status),
		}).
		Where(goqu.C(colID).Eq(r.ID.String())).
		ToSQL()
	if err != nil {
		return errors.Join(catalog.ErrWritingCatalogFailed, err)
	}

	rowsAffected, err := t.exec(ctx, sqlQuery)
	if err != nil {
		return errors.Join(catalog.ErrWritingCatalogFailed, err)
	}

	if rowsAffected == 0 {
		return catalog.ErrNotFound
	}

	return nil
}

// queries holds the reads shared by the pool and the transaction view.
type queries struct {
	q      adapters.Queryer
	logger ledger.Logger
}

func (qs queries) UnitByAssetTag(ctx context.Context, assetTag string) (catalog.Unit, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(tableUnits).
		Select(idText(colID), colAssetTag, colModel, colStatus).
		Where(goqu.C(colAssetTag).Eq(assetTag)).
		ToSQL()
	if err != nil {
		return catalog.Unit{}, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	var (
		unit   catalog.Unit
		id     string
		status string
	)

	found, err := qs.queryOne(ctx, sqlQuery, &id, &unit.AssetTag, &unit.Model, &status)
	if err != nil || !found {
		return catalog.Unit{}, notFoundOr(err)
	}

	if unit.ID, err = parseID(id); err != nil {
		return catalog.Unit{}, err
	}
	unit.Status = catalog.UnitStatus(status)

	return unit, nil
}

func (qs queries) StudentByID(ctx context.Context, id uuid.UUID) (catalog.Student, error) {
	return qs.studentWhere(ctx, goqu.C(colID).Eq(id.String()))
}

func (qs queries) StudentByRegistration(ctx context.Context, registrationNumber string) (catalog.Student, error) {
	return qs.studentWhere(ctx, goqu.C(colRegistrationNumber).Eq(registrationNumber))
}

func (qs queries) studentWhere(ctx context.Context, condition exp.Expression) (catalog.Student, error) {
	sqlQuery, _, err := studentSelect().Where(condition).ToSQL()
	if err != nil {
		return catalog.Student{}, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	var student catalog.Student
	found := false

	err = qs.queryEach(ctx, sqlQuery, func(rows adapters.DBRows) error {
		var scanErr error
		found = true
		student, scanErr = qs.scanStudent(rows)

		return scanErr
	})
	if err != nil || !found {
		return catalog.Student{}, notFoundOr(err)
	}

	return student, nil
}

func (qs queries) EnrolledStudents(ctx context.Context) ([]catalog.Student, error) {
	sqlQuery, _, err := studentSelect().
		Where(
			goqu.C(colActive).IsTrue(),
			goqu.L(hasTemplateCondition),
		).
		Order(goqu.C(colRegistrationNumber).Asc()).
		ToSQL()
	if err != nil {
		return nil, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	students := make([]catalog.Student, 0)
	err = qs.queryEach(ctx, sqlQuery, func(rows adapters.DBRows) error {
		student, scanErr := qs.scanStudent(rows)
		if scanErr != nil {
			return scanErr
		}

		if student.HasTemplate() {
			students = append(students, student)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return students, nil
}

func (qs queries) EnrolledSubjectIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(tableEnrollments).
		Select(idText(colSubjectID)).
		Where(goqu.C(colStudentID).Eq(studentID.String())).
		Order(goqu.C(colSubjectID).Asc()).
		ToSQL()
	if err != nil {
		return nil, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return qs.queryIDs(ctx, sqlQuery)
}

func (qs queries) SubjectByID(ctx context.Context, id uuid.UUID) (catalog.Subject, error) {
	builder := goqu.Dialect(dialectPostgres)

	sqlQuery, _, err := builder.
		From(tableSubjects).
		Select(idText(colID), colCode, colName, idText(colTeacherID)).
		Where(goqu.C(colID).Eq(id.String())).
		ToSQL()
	if err != nil {
		return catalog.Subject{}, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	var (
		subject   catalog.Subject
		subjectID string
		teacher   string
	)

	found, err := qs.queryOne(ctx, sqlQuery, &subjectID, &subject.Code, &subject.Name, &teacher)
	if err != nil || !found {
		return catalog.Subject{}, notFoundOr(err)
	}

	if subject.ID, err = parseID(subjectID); err != nil {
		return catalog.Subject{}, err
	}

	if subject.TeacherID, err = parseID(teacher); err != nil {
		return catalog.Subject{}, err
	}

	classesQuery, _, err := builder.
		From(tableSubjectClasses).
		Select(idText(colClassID)).
		Where(goqu.C(colSubjectID).Eq(id.String())).
		Order(goqu.C(colClassID).Asc()).
		ToSQL()
	if err != nil {
		return catalog.Subject{}, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	if subject.ClassIDs, err = qs.queryIDs(ctx, classesQuery); err != nil {
		return catalog.Subject{}, err
	}

	return subject, nil
}

func (qs queries) ReservationByID(ctx context.Context, id uuid.UUID) (catalog.Reservation, error) {
	return qs.reservationWhere(ctx, goqu.C(colID).Eq(id.String()), false)
}

func (qs queries) ReservationsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]catalog.Reservation, error) {
	sqlQuery, _, err := reservationSelect().
		Where(goqu.C(colTeacherID).Eq(teacherID.String())).
		Order(goqu.C(colClassDate).Desc(), goqu.C(colCreatedAt).Desc(), goqu.C(colID).Desc()).
		ToSQL()
	if err != nil {
		return nil, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	reservations := make([]catalog.Reservation, 0)
	err = qs.queryEach(ctx, sqlQuery, func(rows adapters.DBRows) error {
		reservation, scanErr := scanReservation(rows)
		if scanErr != nil {
			return scanErr
		}

		reservations = append(reservations, reservation)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (qs queries) QualifyingReservation(
	ctx context.Context,
	subjectIDs []uuid.UUID,
	day calendar.Window,
) (catalog.Reservation, error) {

	if len(subjectIDs) == 0 {
		return catalog.Reservation{}, catalog.ErrNotFound
	}

	subjects := make([]string, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		subjects = append(subjects, id.String())
	}

	sqlQuery, _, err := reservationSelect().
		Where(
			goqu.C(colStatus).Eq(string(catalog.ReservationActive)),
			goqu.C(colSubjectID).In(subjects),
			inDay(day),
		).
		Order(goqu.C(colCreatedAt).Desc(), goqu.C(colID).Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return catalog.Reservation{}, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return qs.scanSingleReservation(ctx, sqlQuery)
}

func (qs queries) AllocatableUnitCount(ctx context.Context) (int, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(tableUnits).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C(colStatus).Neq(string(catalog.UnitMaintenance))).
		ToSQL()
	if err != nil {
		return 0, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return qs.queryCount(ctx, sqlQuery)
}

func (qs queries) ReservedQuantity(ctx context.Context, day calendar.Window, excluding uuid.UUID) (int, error) {
	conditions := exp.NewExpressionList(exp.AndType,
		goqu.C(colStatus).Eq(string(catalog.ReservationActive)),
		inDay(day),
	)
	if excluding != uuid.Nil {
		conditions = conditions.Append(goqu.C(colID).Neq(excluding.String()))
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(tableReservations).
		Select(goqu.COALESCE(goqu.SUM(colQuantity), 0)).
		Where(conditions).
		ToSQL()
	if err != nil {
		return 0, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return qs.queryCount(ctx, sqlQuery)
}

func (qs queries) reservationWhere(ctx context.Context, condition exp.Expression, forUpdate bool) (catalog.Reservation, error) {
	selectStmt := reservationSelect().Where(condition)
	if forUpdate {
		selectStmt = selectStmt.ForUpdate(exp.Wait)
	}

	sqlQuery, _, err := selectStmt.ToSQL()
	if err != nil {
		return catalog.Reservation{}, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return qs.scanSingleReservation(ctx, sqlQuery)
}

func (qs queries) scanSingleReservation(ctx context.Context, sqlQuery string) (catalog.Reservation, error) {
	var reservation catalog.Reservation
	found := false

	err := qs.queryEach(ctx, sqlQuery, func(rows adapters.DBRows) error {
		var scanErr error
		found = true
		reservation, scanErr = scanReservation(rows)

		return scanErr
	})
	if err != nil || !found {
		return catalog.Reservation{}, notFoundOr(err)
	}

	return reservation, nil
}

func (qs queries) queryIDs(ctx context.Context, sqlQuery string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)

	err := qs.queryEach(ctx, sqlQuery, func(rows adapters.DBRows) error {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}

		id, err := parseID(raw)
		if err != nil {
			return err
		}

		ids = append(ids, id)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (qs queries) queryCount(ctx context.Context, sqlQuery string) (int, error) {
	var count int64

	found, err := qs.queryOne(ctx, sqlQuery, &count)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, nil
	}

	return int(count), nil
}

func (qs queries) queryOne(ctx context.Context, sqlQuery string, dest ...any) (bool, error) {
	found := false

	err := qs.queryEach(ctx, sqlQuery, func(rows adapters.DBRows) error {
		found = true

		return rows.Scan(dest...)
	})

	return found, err
}

func (qs queries) queryEach(ctx context.Context, sqlQuery string, scan func(rows adapters.DBRows) error) error {
	start := time.Now()
	rows, err := qs.q.Query(ctx, sqlQuery)
	qs.logSQL(sqlQuery, time.Since(start))

	if err != nil {
		return errors.Join(catalog.ErrReadingCatalogFailed, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return errors.Join(catalog.ErrReadingCatalogFailed, err)
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return nil
}

func (qs queries) exec(ctx context.Context, sqlQuery string) (int64, error) {
	start := time.Now()
	result, err := qs.q.Exec(ctx, sqlQuery)
	qs.logSQL(sqlQuery, time.Since(start))

	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (qs queries) logSQL(sqlQuery string, duration time.Duration) {
	if qs.logger != nil {
		qs.logger.Debug(logMsgSQLExecuted, logAttrQuery, sqlQuery, logAttrDurationMS, duration.Milliseconds())
	}
}

func studentSelect() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(tableStudents).
		Select(
			idText(colID),
			colDisplayName,
			colRegistrationNumber,
			colNationalID,
			colActive,
			goqu.L(colBiometricTemplate+"::text"),
		)
}

// scanStudent reads one student row. A template that is not an array of numbers is logged and
// dropped, which disqualifies the student from biometric matching only.
func (qs queries) scanStudent(rows adapters.DBRows) (catalog.Student, error) {
	var (
		student  catalog.Student
		id       string
		template string
	)

	err := rows.Scan(&id, &student.DisplayName, &student.RegistrationNumber, &student.NationalID, &student.Active, &template)
	if err != nil {
		return catalog.Student{}, err
	}

	if student.ID, err = parseID(id); err != nil {
		return catalog.Student{}, err
	}

	if err := jsoniter.ConfigFastest.UnmarshalFromString(template, &student.Template); err != nil {
		student.Template = nil

		if qs.logger != nil {
			qs.logger.Warn(logMsgUnreadableTemplate,
				logAttrStudentID, student.ID.String(),
				logAttrError, errors.Join(catalog.ErrDecodingTemplateFailed, err).Error())
		}
	}

	return student, nil
}

func reservationSelect() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(tableReservations).
		Select(
			idText(colID),
			idText(colTeacherID),
			idText(colSubjectID),
			idText(colClassID),
			colClassDate,
			colClassTime,
			colShift,
			colQuantity,
			colStatus,
			colCreatedAt,
		)
}

func scanReservation(rows adapters.DBRows) (catalog.Reservation, error) {
	var (
		r                           catalog.Reservation
		id, teacher, subject, class string
		shift, status               string
		quantity                    int64
	)

	err := rows.Scan(&id, &teacher, &subject, &class, &r.ClassDate, &r.ClassTime, &shift, &quantity, &status, &r.CreatedAt)
	if err != nil {
		return catalog.Reservation{}, err
	}

	for _, field := range []struct {
		raw string
		dst *uuid.UUID
	}{{id, &r.ID}, {teacher, &r.TeacherID}, {subject, &r.SubjectID}, {class, &r.ClassID}} {
		if *field.dst, err = parseID(field.raw); err != nil {
			return catalog.Reservation{}, err
		}
	}

	r.Shift = catalog.Shift(shift)
	r.Status = catalog.ReservationStatus(status)
	r.Quantity = int(quantity)

	return r, nil
}

func inDay(day calendar.Window) exp.Expression {
	return goqu.And(
		goqu.C(colClassDate).Gte(timestampLiteral(day.Start)),
		goqu.C(colClassDate).Lt(timestampLiteral(day.End)),
	)
}

func timestampLiteral(t time.Time) exp.LiteralExpression {
	return goqu.L(castTimestamp, t.UTC().Format(time.RFC3339Nano))
}

func idText(column string) exp.LiteralExpression {
	return goqu.L(column + "::text")
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(catalog.ErrReadingCatalogFailed, err)
	}

	return id, nil
}

func notFoundOr(err error) error {
	if err != nil {
		return err
	}

	return catalog.ErrNotFound
}
