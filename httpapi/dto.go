package httpapi

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/query/availableunits"
	"github.com/classroom-devices/loanledger/features/query/checkoutcontext"
	"github.com/classroom-devices/loanledger/features/query/loanslentout"
	"github.com/classroom-devices/loanledger/features/query/teacherreservations"
	"github.com/classroom-devices/loanledger/features/query/validatereservation"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/shared/core"
)

/***** requests *****/

// ActorRequest names the student in exactly one way. Image is base64, optionally as a data URL.
type ActorRequest struct {
	StudentID        string    `json:"student_id" validate:"omitempty,uuid"`
	RegistrationCode string    `json:"registration_code" validate:"omitempty,max=64"`
	BiometricSample  []float64 `json:"biometric_sample" validate:"omitempty,max=4096"`
	Image            string    `json:"image"`
}

type CheckoutRequest struct {
	ActorRequest
	AssetTag string `json:"asset_tag" validate:"required,max=64"`
}

type ReturnRequest struct {
	ActorRequest
}

type CheckoutContextRequest struct {
	ActorRequest
}

type BookReservationRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	SubjectID string `json:"subject_id" validate:"required,uuid"`
	ClassID   string `json:"class_id" validate:"omitempty,uuid"`
	ClassDate string `json:"class_date" validate:"required"`
	ClassTime string `json:"class_time" validate:"required"`
	Shift     string `json:"shift" validate:"required,oneof=MORNING AFTERNOON EVENING"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type EditReservationRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	ClassDate string `json:"class_date" validate:"required"`
	ClassTime string `json:"class_time" validate:"required"`
	Shift     string `json:"shift" validate:"required,oneof=MORNING AFTERNOON EVENING"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CancelReservationRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
}

type ValidateReservationRequest struct {
	ReservationID string `json:"reservation_id" validate:"omitempty,uuid"`
	ClassDate     string `json:"class_date" validate:"required"`
	Quantity      int    `json:"quantity"`
}

func (r ActorRequest) toActor() (identity.Actor, error) {
	actor := identity.Actor{
		RegistrationCode: strings.TrimSpace(r.RegistrationCode),
		Sample:           r.BiometricSample,
	}

	if r.StudentID != "" {
		id, err := uuid.Parse(r.StudentID)
		if err != nil {
			return identity.Actor{}, core.ValidationFailed("student_id must be a uuid")
		}

		actor.StudentID = id
	}

	if r.Image != "" {
		image, err := decodeImage(r.Image)
		if err != nil {
			return identity.Actor{}, core.ValidationFailed("image must be base64 encoded")
		}

		actor.Image = image
	}

	return actor, nil
}

func decodeImage(encoded string) ([]byte, error) {
	if i := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && i > 0 {
		encoded = encoded[i+len(";base64,"):]
	}

	return base64.StdEncoding.DecodeString(encoded)
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, core.ValidationFailed(field + " must be a uuid")
	}

	return id, nil
}

/***** responses *****/

type LoanResponse struct {
	LoanID        string     `json:"loan_id"`
	StudentID     string     `json:"student_id"`
	UnitID        string     `json:"unit_id"`
	AssetTag      string     `json:"asset_tag"`
	ReservationID string     `json:"reservation_id"`
	CheckedOutAt  time.Time  `json:"checked_out_at"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	Status        string     `json:"status"`
}

func toLoanResponse(loan core.Loan) LoanResponse {
	return LoanResponse{
		LoanID:        loan.ID,
		StudentID:     loan.StudentID,
		UnitID:        loan.UnitID,
		AssetTag:      loan.AssetTag,
		ReservationID: loan.ReservationID,
		CheckedOutAt:  loan.CheckedOutAt,
		ReturnedAt:    loan.ReturnedAt,
		Status:        string(loan.Status),
	}
}

type ReservationResponse struct {
	ReservationID string    `json:"reservation_id"`
	TeacherID     string    `json:"teacher_id"`
	SubjectID     string    `json:"subject_id"`
	ClassID       string    `json:"class_id"`
	ClassDate     string    `json:"class_date"`
	ClassTime     string    `json:"class_time"`
	Shift         string    `json:"shift"`
	Quantity      int       `json:"quantity"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *server) toReservationResponse(r catalog.Reservation) ReservationResponse {
	return ReservationResponse{
		ReservationID: r.ID.String(),
		TeacherID:     r.TeacherID.String(),
		SubjectID:     r.SubjectID.String(),
		ClassID:       r.ClassID.String(),
		ClassDate:     s.calendar.Format(r.ClassDate),
		ClassTime:     r.ClassTime,
		Shift:         string(r.Shift),
		Quantity:      r.Quantity,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

type CapacityResponse struct {
	Date      string `json:"date"`
	Available int    `json:"available"`
}

func toCapacityResponse(result availableunits.AvailableUnits) CapacityResponse {
	return CapacityResponse{Date: result.Date, Available: result.Available}
}

type ValidationVerdictResponse struct {
	Date      string `json:"date"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
}

func toVerdictResponse(verdict validatereservation.Verdict) ValidationVerdictResponse {
	return ValidationVerdictResponse{Date: verdict.Date, Quantity: verdict.Quantity, Available: verdict.Available}
}

type StudentResponse struct {
	StudentID          string `json:"student_id"`
	DisplayName        string `json:"display_name"`
	RegistrationNumber string `json:"registration_number"`
}

type ReservationQuotaResponse struct {
	Reservation    ReservationResponse `json:"reservation"`
	ActiveLoans    int                 `json:"active_loans"`
	RemainingQuota int                 `json:"remaining_quota"`
}

type CheckoutContextResponse struct {
	Student     StudentResponse           `json:"student"`
	SubjectIDs  []string                  `json:"subject_ids"`
	Reservation *ReservationQuotaResponse `json:"reservation"`
	ActiveLoan  *LoanResponse             `json:"active_loan"`
}

func (s *server) toCheckoutContextResponse(result checkoutcontext.CheckoutContext) CheckoutContextResponse {
	response := CheckoutContextResponse{
		Student: StudentResponse{
			StudentID:          result.Student.ID.String(),
			DisplayName:        result.Student.DisplayName,
			RegistrationNumber: result.Student.RegistrationNumber,
		},
		SubjectIDs: make([]string, 0, len(result.SubjectIDs)),
	}

	for _, id := range result.SubjectIDs {
		response.SubjectIDs = append(response.SubjectIDs, id.String())
	}

	if result.Reservation != nil {
		response.Reservation = &ReservationQuotaResponse{
			Reservation:    s.toReservationResponse(result.Reservation.Reservation),
			ActiveLoans:    result.Reservation.ActiveLoans,
			RemainingQuota: result.Reservation.RemainingQuota,
		}
	}

	if result.ActiveLoan != nil {
		loan := toLoanResponse(*result.ActiveLoan)
		response.ActiveLoan = &loan
	}

	return response
}

type LoanDetailsResponse struct {
	Loan        LoanResponse         `json:"loan"`
	Student     *StudentResponse     `json:"student"`
	Model       string               `json:"model,omitempty"`
	UnitStatus  string               `json:"unit_status,omitempty"`
	Reservation *ReservationResponse `json:"reservation"`
}

type LoansLentOutResponse struct {
	Loans []LoanDetailsResponse `json:"loans"`
	Count int                   `json:"count"`
}

func (s *server) toLoansLentOutResponse(result loanslentout.LoansLentOut) LoansLentOutResponse {
	response := LoansLentOutResponse{
		Loans: make([]LoanDetailsResponse, 0, len(result.Loans)),
		Count: result.Count,
	}

	for _, details := range result.Loans {
		item := LoanDetailsResponse{Loan: toLoanResponse(details.Loan)}

		if details.Student != nil {
			item.Student = &StudentResponse{
				StudentID:          details.Student.ID.String(),
				DisplayName:        details.Student.DisplayName,
				RegistrationNumber: details.Student.RegistrationNumber,
			}
		}

		if details.Unit != nil {
			item.Model = details.Unit.Model
			item.UnitStatus = string(details.Unit.Status)
		}

		if details.Reservation != nil {
			reservation := s.toReservationResponse(*details.Reservation)
			item.Reservation = &reservation
		}

		response.Loans = append(response.Loans, item)
	}

	return response
}

type ReservationUsageResponse struct {
	Reservation    ReservationResponse `json:"reservation"`
	ActiveLoans    int                 `json:"active_loans"`
	TotalLoans     int                 `json:"total_loans"`
	RemainingQuota int                 `json:"remaining_quota"`
}

type TeacherReservationsResponse struct {
	Reservations []ReservationUsageResponse `json:"reservations"`
	Count        int                        `json:"count"`
}

func (s *server) toTeacherReservationsResponse(result teacherreservations.TeacherReservations) TeacherReservationsResponse {
	response := TeacherReservationsResponse{
		Reservations: make([]ReservationUsageResponse, 0, len(result.Reservations)),
		Count:        result.Count,
	}

	for _, usage := range result.Reservations {
		response.Reservations = append(response.Reservations, ReservationUsageResponse{
			Reservation:    s.toReservationResponse(usage.Reservation),
			ActiveLoans:    usage.ActiveLoans,
			TotalLoans:     usage.TotalLoans,
			RemainingQuota: usage.RemainingQuota,
		})
	}

	return response
}
