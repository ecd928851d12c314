package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/features/command/returnunit"
	"github.com/classroom-devices/loanledger/features/query/checkoutcontext"
	"github.com/classroom-devices/loanledger/features/query/loanslentout"
)

func (s *server) checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	actor, err := req.toActor()
	if err != nil {
		return s.respondError(c, err)
	}

	loan, _, err := s.handlers.Checkout.Handle(c.UserContext(), checkoutunit.BuildCommand(actor, req.AssetTag, s.now()))
	if err != nil {
		return s.respondError(c, err)
	}

	return SuccessWithCode(c, fiber.StatusCreated, "unit checked out", toLoanResponse(loan))
}

func (s *server) returnUnit(c *fiber.Ctx) error {
	var req ReturnRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	actor, err := req.toActor()
	if err != nil {
		return s.respondError(c, err)
	}

	loan, _, err := s.handlers.Return.Handle(c.UserContext(), returnunit.BuildCommand(actor, s.now()))
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "unit returned", toLoanResponse(loan))
}

func (s *server) checkoutContext(c *fiber.Ctx) error {
	var req CheckoutContextRequest
	if ok, err := s.bind(c, &req); !ok {
		return err
	}

	actor, err := req.toActor()
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.handlers.CheckoutContext.Handle(c.UserContext(), checkoutcontext.BuildQuery(actor, s.now()))
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "checkout context", s.toCheckoutContextResponse(result))
}

func (s *server) loansLentOut(c *fiber.Ctx) error {
	result, err := s.handlers.LoansLentOut.Handle(c.UserContext(),
		loanslentout.BuildQuery(c.QueryBool("include_returned")))
	if err != nil {
		return s.respondError(c, err)
	}

	return Success(c, "loans", s.toLoansLentOutResponse(result))
}
