package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fundRequest struct {
	OwnerID string          `json:"owner_id"`
	Amount  decimal.Decimal `json:"amount"`
}

type withdrawRequest struct {
	OwnerID string          `json:"owner_id"`
	Amount  decimal.Decimal `json:"amount"`
	PIN     string          `json:"pin"`
}

type transferRequest struct {
	OwnerID     string          `json:"owner_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	PIN         string          `json:"pin"`
}

// Fund credits a wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.service.Fund(c.UserContext(), req.OwnerID, req.Amount)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":        "funding processed successfully",
		"reference":      receipt.Reference,
		"ledger_balance": receipt.LedgerBalance,
	})
}

// Withdraw debits a wallet after PIN verification.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.service.Withdraw(c.UserContext(), req.OwnerID, req.Amount, req.PIN)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":        "withdrawal processed successfully",
		"reference":      receipt.Reference,
		"ledger_balance": receipt.LedgerBalance,
	})
}

// Transfer moves funds between two wallets.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.service.Transfer(c.UserContext(), req.OwnerID, req.RecipientID, req.Amount, req.PIN)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":        "transfer processed successfully",
		"reference":      receipt.DebitReference,
		"ledger_balance": receipt.LedgerBalance,
	})
}

// Get returns the wallet snapshot for an owner.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Wallet(c.UserContext(), c.Params("ownerId"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"id":               w.ID,
		"owner_id":         w.OwnerID,
		"balance":          w.Balance,
		"previous_balance": w.PreviousBalance,
		"ledger_balance":   w.LedgerBalance,
		"status":           w.Status,
		"is_active":        w.IsActive,
		"created_at":       w.CreatedAt,
	})
}

// Transactions lists wallet history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	offset := c.QueryInt("offset", 0)

	records, err := h.service.Transactions(c.UserContext(), c.Params("ownerId"), limit, offset)
	if err != nil {
		return respondErr(c, err)
	}

	items := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		items = append(items, fiber.Map{
			"id":              rec.ID,
			"counterparty_id": rec.CounterpartyID,
			"type":            rec.Type,
			"amount":          rec.Amount,
			"amount_before":   rec.AmountBefore,
			"amount_after":    rec.AmountAfter,
			"reference":       rec.Reference,
			"status":          rec.Status,
			"created_at":      rec.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"count": len(items), "data": items})
}

// respondErr maps business rejections to 4xx responses carrying the stable
// reason code. Anything else is an infrastructure failure and stays generic.
func respondErr(c *fiber.Ctx, err error) error {
	var bizErr *Error
	if errors.As(err, &bizErr) {
		status := http.StatusBadRequest
		switch bizErr {
		case ErrNotFound:
			status = http.StatusNotFound
		case ErrRateLimited, ErrTooManyAttempts:
			status = http.StatusTooManyRequests
		}
		return c.Status(status).JSON(fiber.Map{"code": bizErr.Code, "message": bizErr.Message})
	}
	return fiber.NewError(http.StatusInternalServerError, "internal server error")
}
