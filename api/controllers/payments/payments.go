package payments

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/api/middleware"
	"github.com/sikars/sikars-backend/api/responses"
	"github.com/sikars/sikars-backend/api/validators"
	internalpayments "github.com/sikars/sikars-backend/internal/payments"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/types"
)

// Process charges the caller's pending order through the gateway.
func Process(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload processRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		payment, err := svc.Process(r.Context(), internalpayments.ProcessInput{
			OrderID:        orderID,
			UserID:         actorID,
			ActorRole:      role,
			CardNumber:     strings.ReplaceAll(strings.TrimSpace(payload.CardNumber), " ", ""),
			ExpirationDate: strings.TrimSpace(payload.ExpirationDate),
			CardCode:       strings.TrimSpace(payload.CardCode),
			BillingAddress: payload.BillingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := processResponse{Success: payment.Outcome == enums.PaymentOutcomeApproved}
		if payment.GatewayTransactionID != nil {
			resp.TransactionID = *payment.GatewayTransactionID
		}
		responses.WriteSuccess(w, resp)
	}
}

// Refund reverses an approved payment on admin request.
func Refund(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "paymentId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required"))
			return
		}
		paymentID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		refund, err := svc.Refund(r.Context(), internalpayments.RefundInput{
			PaymentID:   paymentID,
			ActorUserID: actorID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := refundResponse{
			RefundID:    refund.ID,
			OrderID:     refund.OrderID,
			AmountCents: refund.AmountCents,
		}
		if refund.GatewayTransactionID != nil {
			resp.TransactionID = *refund.GatewayTransactionID
		}
		responses.WriteSuccess(w, resp)
	}
}

type processRequest struct {
	OrderID        string         `json:"order_id" validate:"required,uuid4"`
	CardNumber     string         `json:"card_number" validate:"required,min=12,max=19"`
	ExpirationDate string         `json:"expiration_date" validate:"required"`
	CardCode       string         `json:"card_code" validate:"required,min=3,max=4"`
	BillingAddress *types.Address `json:"billing_address,omitempty"`
}

type processResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
}

type refundResponse struct {
	RefundID      uuid.UUID `json:"refund_id"`
	OrderID       uuid.UUID `json:"order_id"`
	AmountCents   int       `json:"amount_cents"`
	TransactionID string    `json:"transaction_id,omitempty"`
}

func actor(r *http.Request) (uuid.UUID, string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, middleware.RoleFromContext(r.Context()), nil
}
