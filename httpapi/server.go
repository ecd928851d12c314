package httpapi

import (
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	jsoniter "github.com/json-iterator/go"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/bookreservation"
	"github.com/classroom-devices/loanledger/features/command/cancelreservation"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/features/command/editreservation"
	"github.com/classroom-devices/loanledger/features/command/returnunit"
	"github.com/classroom-devices/loanledger/features/query/availableunits"
	"github.com/classroom-devices/loanledger/features/query/checkoutcontext"
	"github.com/classroom-devices/loanledger/features/query/loanslentout"
	"github.com/classroom-devices/loanledger/features/query/teacherreservations"
	"github.com/classroom-devices/loanledger/features/query/validatereservation"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
)

const (
	defaultAllowedOrigins = "*"
	accessLogFormat       = "${time} ${locals:requestid} ${method} ${path} ${status} ${latency}\n"
)

// Handlers are the command and query handlers the API dispatches to. Any of them may be an
// observable wrapper.
type Handlers struct {
	Checkout            shell.CommandHandler[checkoutunit.Command, core.Loan]
	Return              shell.CommandHandler[returnunit.Command, core.Loan]
	BookReservation     shell.CommandHandler[bookreservation.Command, catalog.Reservation]
	EditReservation     shell.CommandHandler[editreservation.Command, catalog.Reservation]
	CancelReservation   shell.CommandHandler[cancelreservation.Command, catalog.Reservation]
	AvailableUnits      shell.QueryHandler[availableunits.Query, availableunits.AvailableUnits]
	ValidateReservation shell.QueryHandler[validatereservation.Query, validatereservation.Verdict]
	CheckoutContext     shell.QueryHandler[checkoutcontext.Query, checkoutcontext.CheckoutContext]
	LoansLentOut        shell.QueryHandler[loanslentout.Query, loanslentout.LoansLentOut]
	TeacherReservations shell.QueryHandler[teacherreservations.Query, teacherreservations.TeacherReservations]
}

// Option configures the API.
type Option func(*server)

// WithLogger sets the logger for unexpected errors. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *server) {
		s.logger = logger
	}
}

// WithCalendar sets the calendar used to parse and render dates. The default is UTC.
func WithCalendar(cal calendar.Calendar) Option {
	return func(s *server) {
		s.calendar = cal
	}
}

// WithClock sets the source of OccurredAt for commands.
func WithClock(now func() time.Time) Option {
	return func(s *server) {
		s.now = now
	}
}

// WithAccessLog writes one line per request to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *server) {
		s.accessLog = w
	}
}

// WithAllowedOrigins sets the CORS origins, comma separated.
func WithAllowedOrigins(origins string) Option {
	return func(s *server) {
		s.allowedOrigins = origins
	}
}

type server struct {
	handlers       Handlers
	validate       *validator.Validate
	logger         *slog.Logger
	calendar       calendar.Calendar
	now            func() time.Time
	accessLog      io.Writer
	allowedOrigins string
}

// New builds the fiber app with middleware and routes.
func New(handlers Handlers, opts ...Option) *fiber.App {
	s := &server{
		handlers:       handlers,
		validate:       validator.New(),
		logger:         slog.New(slog.DiscardHandler),
		calendar:       calendar.UTC(),
		now:            time.Now,
		allowedOrigins: defaultAllowedOrigins,
	}

	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "loanledger",
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		ErrorHandler:          s.handleFiberError,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.propagateRequestID)

	if s.accessLog != nil {
		app.Use(logger.New(logger.Config{Format: accessLogFormat, Output: s.accessLog}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: s.allowedOrigins,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))

	s.routes(app)

	return app
}

func (s *server) routes(app *fiber.App) {
	app.Get("/health", s.health)

	api := app.Group("/api/v1")

	api.Get("/loans", s.loansLentOut)

	loans := api.Group("/loans")
	loans.Post("/checkout", s.checkout)
	loans.Post("/return", s.returnUnit)

	api.Get("/capacity", s.capacity)
	api.Post("/checkout-context", s.checkoutContext)

	api.Post("/reservations", s.bookReservation)

	reservations := api.Group("/reservations")
	reservations.Post("/validate", s.validateReservation)
	reservations.Put("/:id", s.editReservation)
	reservations.Post("/:id/cancel", s.cancelReservation)

	api.Get("/teachers/:id/reservations", s.teacherReservations)
}

// propagateRequestID hands the request id to the handlers, which store it in entry metadata.
func (s *server) propagateRequestID(c *fiber.Ctx) error {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		c.SetUserContext(shell.WithRequestID(c.UserContext(), id))
	}

	return c.Next()
}

func (s *server) handleFiberError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return Error(c, fiberErr.Code, fiberErr.Message)
	}

	return s.respondError(c, err)
}

func (s *server) health(c *fiber.Ctx) error {
	return Success(c, "ok", fiber.Map{"status": "up"})
}

// bind parses the JSON body into req and validates it. On failure the response is already
// written and ok is false.
func (s *server) bind(c *fiber.Ctx, req any) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, failureResponse(c, core.ValidationFailed("request body must be JSON"))
	}

	if err := s.validate.Struct(req); err != nil {
		return false, ValidationError(c, err)
	}

	return true, nil
}

func (s *server) parseDay(raw, field string) (calendar.Window, error) {
	day, err := s.calendar.ParseDay(raw)
	if err != nil {
		return calendar.Window{}, core.ValidationFailed(field + " must have the form YYYY-MM-DD")
	}

	return day, nil
}
