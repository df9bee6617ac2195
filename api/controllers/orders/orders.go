package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/api/middleware"
	"github.com/sikars/sikars-backend/api/responses"
	"github.com/sikars/sikars-backend/api/validators"
	internalorders "github.com/sikars/sikars-backend/internal/orders"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/pagination"
	"github.com/sikars/sikars-backend/pkg/types"
)

// Create converts the caller's active cart into an order.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParseShippingMethod(payload.ShippingMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method"))
			return
		}

		var notes *string
		if payload.CustomerNotes != nil {
			trimmed := validators.SanitizeString(*payload.CustomerNotes, 500)
			if trimmed != "" {
				notes = &trimmed
			}
		}

		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			UserID:          actorID,
			ActorRole:       role,
			ShippingMethod:  method,
			ShippingAddress: sanitizeAddress(payload.ShippingAddress),
			BillingAddress:  sanitizeAddress(payload.BillingAddress),
			CustomerNotes:   notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			TotalCents:  order.TotalCents,
			Total:       types.FormatCents(order.TotalCents),
			Currency:    order.Currency,
			CreatedAt:   order.CreatedAt,
		})
	}
}

// List returns the caller's orders newest first, cursor paginated.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, _, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), actorID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns the full owner-scoped order snapshot.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actorID, orderID, role == enums.MemberRoleAdmin.String())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

// Cancel voids a pending or confirmed order and restores reserved stock.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelOrderInput{
			OrderID:   orderID,
			UserID:    actorID,
			ActorRole: role,
			IsAdmin:   role == enums.MemberRoleAdmin.String(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

// AdminList returns all orders with optional status filters.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := parsePaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateStatus applies an admin fulfillment transition.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toStatus, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.StatusUpdateInput{
			OrderID:     orderID,
			ToStatus:    toStatus,
			ActorUserID: actorID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

// AttachDocuments records generated artifact links on an order.
func AttachDocuments(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, role, err := actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload attachDocumentsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AttachDocuments(r.Context(), internalorders.AttachDocumentsInput{
			OrderID:       orderID,
			PDFURL:        payload.PDFURL,
			QRTrackingURL: payload.QRTrackingURL,
			ActorUserID:   actorID,
			ActorRole:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

// Documents renders the invoice and packing data for an order.
func Documents(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		docs, err := svc.Documents(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, docs)
	}
}

type createOrderRequest struct {
	ShippingMethod  string        `json:"shipping_method" validate:"required"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	BillingAddress  types.Address `json:"billing_address" validate:"required"`
	CustomerNotes   *string       `json:"customer_notes,omitempty"`
}

type createOrderResponse struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	Status      enums.OrderStatus `json:"status"`
	TotalCents  int               `json:"totalCents"`
	Total       string            `json:"total"`
	Currency    enums.Currency    `json:"currency"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

type attachDocumentsRequest struct {
	PDFURL        *string `json:"pdf_url,omitempty" validate:"omitempty,url"`
	QRTrackingURL *string `json:"qr_tracking_url,omitempty" validate:"omitempty,url"`
}

type orderItemView struct {
	ID             uuid.UUID              `json:"id"`
	Kind           enums.LineItemKind     `json:"kind"`
	ProductID      *uuid.UUID             `json:"product_id,omitempty"`
	Name           string                 `json:"name"`
	Quantity       int                    `json:"quantity"`
	UnitPriceCents int                    `json:"unit_price_cents"`
	UnitPrice      string                 `json:"unit_price"`
	LineTotalCents int                    `json:"line_total_cents"`
	LineTotal      string                 `json:"line_total"`
	Customization  *types.CustomCigarSpec `json:"customization,omitempty"`
}

type orderView struct {
	ID              uuid.UUID            `json:"id"`
	OrderNumber     string               `json:"order_number"`
	Status          enums.OrderStatus    `json:"status"`
	PaymentStatus   enums.PaymentStatus  `json:"payment_status"`
	Currency        enums.Currency       `json:"currency"`
	SubtotalCents   int                  `json:"subtotal_cents"`
	Subtotal        string               `json:"subtotal"`
	TaxCents        int                  `json:"tax_cents"`
	Tax             string               `json:"tax"`
	ShippingCents   int                  `json:"shipping_cents"`
	Shipping        string               `json:"shipping"`
	TotalCents      int                  `json:"total_cents"`
	Total           string               `json:"total"`
	ShippingMethod  enums.ShippingMethod `json:"shipping_method"`
	ShippingAddress types.Address        `json:"shipping_address"`
	BillingAddress  types.Address        `json:"billing_address"`
	CustomerNotes   *string              `json:"customer_notes,omitempty"`
	TrackingNumber  *string              `json:"tracking_number,omitempty"`
	PDFURL          *string              `json:"pdf_url,omitempty"`
	QRTrackingURL   *string              `json:"qr_tracking_url,omitempty"`
	Items           []orderItemView      `json:"items"`
	ConfirmedAt     *time.Time           `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

func renderOrder(order *models.Order) orderView {
	view := orderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		Currency:        order.Currency,
		SubtotalCents:   order.SubtotalCents,
		Subtotal:        types.FormatCents(order.SubtotalCents),
		TaxCents:        order.TaxCents,
		Tax:             types.FormatCents(order.TaxCents),
		ShippingCents:   order.ShippingCents,
		Shipping:        types.FormatCents(order.ShippingCents),
		TotalCents:      order.TotalCents,
		Total:           types.FormatCents(order.TotalCents),
		ShippingMethod:  order.ShippingMethod,
		ShippingAddress: order.ShippingAddr,
		BillingAddress:  order.BillingAddr,
		CustomerNotes:   order.CustomerNotes,
		TrackingNumber:  order.TrackingNumber,
		PDFURL:          order.PDFURL,
		QRTrackingURL:   order.QRTrackingURL,
		Items:           make([]orderItemView, 0, len(order.Items)),
		ConfirmedAt:     order.ConfirmedAt,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ID:             item.ID,
			Kind:           item.Kind,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      types.FormatCents(item.UnitPriceCents),
			LineTotalCents: item.LineTotalCents,
			LineTotal:      types.FormatCents(item.LineTotalCents),
			Customization:  item.Customization,
		})
	}
	return view
}

func sanitizeAddress(addr types.Address) types.Address {
	addr.Name = validators.SanitizeString(addr.Name, 120)
	addr.Line1 = validators.SanitizeString(addr.Line1, 200)
	if addr.Line2 != nil {
		trimmed := validators.SanitizeString(*addr.Line2, 200)
		addr.Line2 = &trimmed
	}
	addr.City = validators.SanitizeString(addr.City, 100)
	addr.State = validators.SanitizeString(addr.State, 100)
	addr.PostalCode = validators.SanitizeString(addr.PostalCode, 20)
	addr.Country = validators.SanitizeString(addr.Country, 2)
	if addr.Phone != nil {
		trimmed := validators.SanitizeString(*addr.Phone, 30)
		addr.Phone = &trimmed
	}
	return addr
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

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return parsed, nil
}

func parsePaginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseOrderFilters(r *http.Request) (internalorders.OrderFilters, error) {
	var filters internalorders.OrderFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}

	dateFrom, err := parseDateParam(r.URL.Query().Get("date_from"), "date_from")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = dateFrom

	dateTo, err := parseDateParam(r.URL.Query().Get("date_to"), "date_to")
	if err != nil {
		return filters, err
	}
	filters.DateTo = dateTo

	return filters, nil
}

func parseDateParam(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &t, nil
}
