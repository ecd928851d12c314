// Package memstore keeps the catalog and the loan ledger in memory behind the same contracts as
// the PostgreSQL stores. Every operation runs under one mutex, which gives the guarded append
// the same all-or-nothing outcome as the database transaction.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
)

// Store is an in-memory catalog and ledger.
type Store struct {
	mu           sync.Mutex
	unlocked     *sync.Cond
	writeMu      sync.Mutex
	locked       map[uuid.UUID]bool
	students     map[uuid.UUID]catalog.Student
	units        map[string]catalog.Unit
	subjects     map[uuid.UUID]catalog.Subject
	classes      map[uuid.UUID]catalog.Class
	enrollments  map[uuid.UUID][]uuid.UUID
	reservations map[uuid.UUID]catalog.Reservation
	entries      ledger.StorableEntries
}

// New returns an empty Store.
func New() *Store {
	s := &Store{
		locked:       make(map[uuid.UUID]bool),
		students:     make(map[uuid.UUID]catalog.Student),
		units:        make(map[string]catalog.Unit),
		subjects:     make(map[uuid.UUID]catalog.Subject),
		classes:      make(map[uuid.UUID]catalog.Class),
		enrollments:  make(map[uuid.UUID][]uuid.UUID),
		reservations: make(map[uuid.UUID]catalog.Reservation),
	}
	s.unlocked = sync.NewCond(&s.mu)

	return s
}

/***** seeding *****/

func (s *Store) AddStudent(student catalog.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.students[student.ID] = student
}

func (s *Store) AddUnit(unit catalog.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units[unit.AssetTag] = unit
}

// SetUnitStatus is the maintenance toggle.
func (s *Store) SetUnitStatus(assetTag string, status catalog.UnitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unit, ok := s.units[assetTag]; ok {
		unit.Status = status
		s.units[assetTag] = unit
	}
}

func (s *Store) AddClass(class catalog.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.classes[class.ID] = class
}

func (s *Store) AddSubject(subject catalog.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subjects[subject.ID] = subject
}

func (s *Store) Enroll(studentID uuid.UUID, subjectIDs ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enrollments[studentID] = append(s.enrollments[studentID], subjectIDs...)
}

func (s *Store) AddReservation(reservation catalog.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reservations[reservation.ID] = reservation
}

/***** catalog.Reader *****/

func (s *Store) UnitByAssetTag(_ context.Context, assetTag string) (catalog.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[assetTag]
	if !ok {
		return catalog.Unit{}, catalog.ErrNotFound
	}

	return unit, nil
}

func (s *Store) StudentByID(_ context.Context, id uuid.UUID) (catalog.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.students[id]
	if !ok {
		return catalog.Student{}, catalog.ErrNotFound
	}

	return student, nil
}

func (s *Store) StudentByRegistration(_ context.Context, registrationNumber string) (catalog.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, student := range s.students {
		if student.RegistrationNumber == registrationNumber {
			return student, nil
		}
	}

	return catalog.Student{}, catalog.ErrNotFound
}

func (s *Store) EnrolledStudents(_ context.Context) ([]catalog.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students := make([]catalog.Student, 0)
	for _, student := range s.students {
		if student.Active && student.HasTemplate() {
			students = append(students, student)
		}
	}

	sort.Slice(students, func(i, j int) bool {
		return students[i].RegistrationNumber < students[j].RegistrationNumber
	})

	return students, nil
}

func (s *Store) EnrolledSubjectIDs(_ context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]uuid.UUID(nil), s.enrollments[studentID]...), nil
}

func (s *Store) SubjectByID(_ context.Context, id uuid.UUID) (catalog.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, ok := s.subjects[id]
	if !ok {
		return catalog.Subject{}, catalog.ErrNotFound
	}

	return subject, nil
}

func (s *Store) ReservationByID(_ context.Context, id uuid.UUID) (catalog.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return catalog.Reservation{}, catalog.ErrNotFound
	}

	return reservation, nil
}

func (s *Store) ReservationsByTeacher(_ context.Context, teacherID uuid.UUID) ([]catalog.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := make([]catalog.Reservation, 0)
	for _, r := range s.reservations {
		if r.TeacherID == teacherID {
			reservations = append(reservations, r)
		}
	}

	sort.Slice(reservations, func(i, j int) bool {
		if !reservations[i].ClassDate.Equal(reservations[j].ClassDate) {
			return reservations[i].ClassDate.After(reservations[j].ClassDate)
		}

		return reservations[i].CreatedAt.After(reservations[j].CreatedAt)
	})

	return reservations, nil
}

func (s *Store) QualifyingReservation(
	_ context.Context,
	subjectIDs []uuid.UUID,
	day calendar.Window,
) (catalog.Reservation, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		wanted[id] = true
	}

	var (
		best  catalog.Reservation
		found bool
	)

	for _, r := range s.reservations {
		if !r.IsActive() || !wanted[r.SubjectID] || !day.Contains(r.ClassDate) {
			continue
		}

		if !found || r.CreatedAt.After(best.CreatedAt) {
			best, found = r, true
		}
	}

	if !found {
		return catalog.Reservation{}, catalog.ErrNotFound
	}

	return best, nil
}

func (s *Store) AllocatableUnitCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allocatableUnitCount(), nil
}

func (s *Store) allocatableUnitCount() int {
	count := 0
	for _, unit := range s.units {
		if unit.Status != catalog.UnitMaintenance {
			count++
		}
	}

	return count
}

func (s *Store) ReservedQuantity(_ context.Context, day calendar.Window, excluding uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0
	for id, r := range s.reservations {
		if id == excluding || !r.IsActive() || !day.Contains(r.ClassDate) {
			continue
		}

		sum += r.Quantity
	}

	return sum, nil
}

/***** ledger *****/

// Query returns the entries matching filter and the highest sequence number among them.
func (s *Store) Query(_ context.Context, filter ledger.Filter) (
	ledger.StorableEntries,
	ledger.MaxSequenceNumberUint,
	error,
) {

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, maxSequenceNumber := s.matching(filter)

	return entries, maxSequenceNumber, nil
}

func (s *Store) matching(filter ledger.Filter) (ledger.StorableEntries, ledger.MaxSequenceNumberUint) {
	entries := make(ledger.StorableEntries, 0)
	maxSequenceNumber := ledger.MaxSequenceNumberUint(0)

	for _, entry := range s.entries {
		if filter.Matches(entry) {
			entries = append(entries, entry)
			maxSequenceNumber = entry.SequenceNumber
		}
	}

	return entries, maxSequenceNumber
}

// Append stores entry when the guard rows exist, the unit has the expected status and nothing
// matching filter was appended after expectedMaxSequenceNumber.
func (s *Store) Append(
	_ context.Context,
	filter ledger.Filter,
	expectedMaxSequenceNumber ledger.MaxSequenceNumberUint,
	guard ledger.AppendGuard,
	entry ledger.StorableEntry,
) error {

	if err := guard.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.waitForReservation(guard)

	if !s.guardHolds(guard) {
		return ledger.ErrConcurrencyConflict
	}

	if _, maxSequenceNumber := s.matching(filter); maxSequenceNumber != expectedMaxSequenceNumber {
		return ledger.ErrConcurrencyConflict
	}

	s.appendGuarded(guard, entry)

	return nil
}

// DecideAndAppend appends what decide returns for the entries matching filter, read while the
// guard rows hold.
func (s *Store) DecideAndAppend(
	_ context.Context,
	filter ledger.Filter,
	guard ledger.AppendGuard,
	decide ledger.DecideFunc,
) (ledger.StorableEntry, error) {

	if err := guard.Validate(); err != nil {
		return ledger.StorableEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.waitForReservation(guard)

	if !s.guardHolds(guard) {
		return ledger.StorableEntry{}, ledger.ErrConcurrencyConflict
	}

	history, _ := s.matching(filter)

	entry, err := decide(history)
	if err != nil {
		return ledger.StorableEntry{}, err
	}

	s.appendGuarded(guard, entry)

	return entry, nil
}

func (s *Store) waitForReservation(guard ledger.AppendGuard) {
	if id, err := uuid.Parse(guard.ReservationID); err == nil {
		for s.locked[id] {
			s.unlocked.Wait()
		}
	}
}

func (s *Store) appendGuarded(guard ledger.AppendGuard, entry ledger.StorableEntry) {
	if guard.HasUnitTransition() {
		unit := s.units[guard.Unit.AssetTag]
		unit.Status = catalog.UnitStatus(guard.Unit.To)
		s.units[guard.Unit.AssetTag] = unit
	}

	s.entries = append(s.entries, entry.WithSequenceNumber(uint(len(s.entries)+1)))
}

func (s *Store) guardHolds(guard ledger.AppendGuard) bool {
	if guard.ReservationID != "" {
		id, err := uuid.Parse(guard.ReservationID)
		if err != nil {
			return false
		}

		r, ok := s.reservations[id]
		if !ok || !r.IsActive() {
			return false
		}

		if guard.ReservationQuantity > 0 && r.Quantity != guard.ReservationQuantity {
			return false
		}
	}

	if guard.StudentID != "" {
		id, err := uuid.Parse(guard.StudentID)
		if err != nil {
			return false
		}

		if _, ok := s.students[id]; !ok {
			return false
		}
	}

	if guard.HasUnitTransition() {
		unit, ok := s.units[guard.Unit.AssetTag]
		if !ok || string(unit.Status) != guard.Unit.From {
			return false
		}
	}

	return true
}

/***** catalog.ReservationWriter *****/

// WithDayLock serializes all reservation writes. Reservation changes made by fn are undone
// when fn fails. Appends guarded by a reservation that fn locked wait until fn returns.
func (s *Store) WithDayLock(
	ctx context.Context,
	_ calendar.Window,
	fn func(ctx context.Context, tx catalog.ReservationTx) error,
) error {

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[uuid.UUID]catalog.Reservation, len(s.reservations))
	for id, r := range s.reservations {
		snapshot[id] = r
	}
	s.mu.Unlock()

	err := fn(ctx, reservationTx{s})

	s.mu.Lock()
	if err != nil {
		s.reservations = snapshot
	}
	clear(s.locked)
	s.unlocked.Broadcast()
	s.mu.Unlock()

	return err
}

type reservationTx struct {
	*Store
}

func (t reservationTx) LockReservation(_ context.Context, id uuid.UUID) (catalog.Reservation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	reservation, ok := t.reservations[id]
	if !ok {
		return catalog.Reservation{}, catalog.ErrNotFound
	}

	t.locked[id] = true

	return reservation, nil
}

func (t reservationTx) LoanEntries(_ context.Context, filter ledger.Filter) (ledger.StorableEntries, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, _ := t.matching(filter)

	return entries, nil
}

func (t reservationTx) InsertReservation(_ context.Context, reservation catalog.Reservation) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reservations[reservation.ID] = reservation

	return nil
}

func (t reservationTx) UpdateReservation(_ context.Context, reservation catalog.Reservation) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.reservations[reservation.ID]; !ok {
		return catalog.ErrNotFound
	}

	t.reservations[reservation.ID] = reservation

	return nil
}
