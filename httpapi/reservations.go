package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/bookreservation"
	"github.com/classroom-devices/loanledger/features/command/cancelreservation"
	"github.com/classroom-devices/loanledger/features/command/editreservation"
	"github.com/classroom-devices/loanledger/features/query/availableunits"
	"github.com/classroom-devices/loanledger/features/query/teacherreservations"
	"github.com/classroom-devices/loanledger/features/query/validatereservation"
)

func (s *server) bookReservation(c *fiber.Ctx) error {
	var req BookReservationRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	ids, err := parseUUIDs(map[string]string{
		"teacher_id": req.TeacherID,
		"subject_id": req.SubjectID,
		"class_id":   req.ClassID,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	day, err := s.parseDay(req.ClassDate, "class_date")
	if err != nil {
		return s.respondError(c, err)
	}

	command := bookreservation.BuildCommand(
		ids["teacher_id"],
		ids["subject_id"],
		ids["class_id"],
		day.Start,
		req.ClassTime,
		catalog.Shift(req.Shift),
		req.Quantity,
		s.now(),
	)

	reservation, _, err := s.handlers.BookReservation.Handle(c.UserContext(), command)
	if err != nil {
		return s.respondError(c, err)
	}

	return SuccessWithCode(c, fiber.StatusCreated, "reservation booked", s.toReservationResponse(reservation))
}

func (s *server) editReservation(c *fiber.Ctx) error {
	var req EditReservationRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	ids, err := parseUUIDs(map[string]string{
		"id":         c.Params("id"),
		"teacher_id": req.TeacherID,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	day, err := s.parseDay(req.ClassDate, "class_date")
	if err != nil {
		return s.respondError(c, err)
	}

	command := editreservation.BuildCommand(
		ids["teacher_id"],
		ids["id"],
		day.Start,
		req.ClassTime,
		catalog.Shift(req.Shift),
		req.Quantity,
		s.now(),
	)

	reservation, _, err := s.handlers.EditReservation.Handle(c.UserContext(), command)
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "reservation updated", s.toReservationResponse(reservation))
}

func (s *server) cancelReservation(c *fiber.Ctx) error {
	var req CancelReservationRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	ids, err := parseUUIDs(map[string]string{
		"id":         c.Params("id"),
		"teacher_id": req.TeacherID,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	command := cancelreservation.BuildCommand(ids["teacher_id"], ids["id"], s.now())

	reservation, _, err := s.handlers.CancelReservation.Handle(c.UserContext(), command)
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "reservation cancelled", s.toReservationResponse(reservation))
}

func (s *server) validateReservation(c *fiber.Ctx) error {
	var req ValidateReservationRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	reservationID, err := parseUUID(req.ReservationID, "reservation_id")
	if err != nil {
		return s.respondError(c, err)
	}

	day, err := s.parseDay(req.ClassDate, "class_date")
	if err != nil {
		return s.respondError(c, err)
	}

	verdict, err := s.handlers.ValidateReservation.Handle(c.UserContext(),
		validatereservation.BuildQuery(reservationID, day.Start, req.Quantity))
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "reservation fits", toVerdictResponse(verdict))
}

func (s *server) capacity(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		date = s.calendar.Format(s.now())
	}

	day, err := s.parseDay(date, "date")
	if err != nil {
		return s.respondError(c, err)
	}

	excluding, err := parseUUID(c.Query("excluding"), "excluding")
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.handlers.AvailableUnits.Handle(c.UserContext(), availableunits.BuildQuery(day.Start, excluding))
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "capacity", toCapacityResponse(result))
}

func (s *server) teacherReservations(c *fiber.Ctx) error {
	teacherID, err := parseUUID(c.Params("id"), "id")
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.handlers.TeacherReservations.Handle(c.UserContext(), teacherreservations.BuildQuery(teacherID))
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "teacher reservations", s.toTeacherReservationsResponse(result))
}

func parseUUIDs(fields map[string]string) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(fields))
	for field, raw := range fields {
		id, err := parseUUID(raw, field)
		if err != nil {
			return nil, err
		}

		ids[field] = id
	}

	return ids, nil
}

