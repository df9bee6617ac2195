package cart

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sikars/sikars-backend/api/middleware"
	"github.com/sikars/sikars-backend/api/responses"
	"github.com/sikars/sikars-backend/api/validators"
	internalcart "github.com/sikars/sikars-backend/internal/cart"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/types"
)

// Active returns the caller's active cart, creating one if none exists.
func Active(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.ActiveCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(cart))
	}
}

// AddItem appends a catalog or custom line to the active cart.
func AddItem(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var cart *models.Cart
		switch enums.LineItemKind(strings.ToLower(strings.TrimSpace(payload.Kind))) {
		case enums.LineItemKindCatalog:
			if payload.ProductID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required for catalog items"))
				return
			}
			productID, err := uuid.Parse(*payload.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			cart, err = svc.AddCatalogItem(r.Context(), userID, productID, payload.Quantity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		case enums.LineItemKindCustom:
			if payload.Customization == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customization is required for custom items"))
				return
			}
			spec := sanitizeSpec(*payload.Customization)
			cart, err = svc.AddCustomItem(r.Context(), userID, spec, payload.Quantity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "kind must be catalog or custom"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, renderCart(cart))
	}
}

// UpdateItem changes the quantity on an owned cart line.
func UpdateItem(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.UpdateItemQuantity(r.Context(), userID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(cart))
	}
}

// RemoveItem deletes an owned cart line.
func RemoveItem(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.RemoveItem(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(cart))
	}
}

// Merge folds a guest cart into the caller's active cart.
func Merge(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload mergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sourceCartID, err := uuid.Parse(payload.SourceCartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source cart id"))
			return
		}

		cart, err := svc.MergeCart(r.Context(), userID, sourceCartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(cart))
	}
}

type addItemRequest struct {
	Kind          string                 `json:"kind" validate:"required"`
	ProductID     *string                `json:"product_id,omitempty"`
	Quantity      int                    `json:"quantity" validate:"required,min=1"`
	Customization *types.CustomCigarSpec `json:"customization,omitempty"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type mergeRequest struct {
	SourceCartID string `json:"source_cart_id" validate:"required,uuid4"`
}

type itemView struct {
	ID             uuid.UUID              `json:"id"`
	Kind           enums.LineItemKind     `json:"kind"`
	ProductID      *uuid.UUID             `json:"product_id,omitempty"`
	Quantity       int                    `json:"quantity"`
	UnitPriceCents int                    `json:"unit_price_cents"`
	UnitPrice      string                 `json:"unit_price"`
	LineTotalCents int                    `json:"line_total_cents"`
	LineTotal      string                 `json:"line_total"`
	Customization  *types.CustomCigarSpec `json:"customization,omitempty"`
}

type cartView struct {
	ID            uuid.UUID        `json:"id"`
	Status        enums.CartStatus `json:"status"`
	Currency      enums.Currency   `json:"currency"`
	Items         []itemView       `json:"items"`
	SubtotalCents int              `json:"subtotal_cents"`
	Subtotal      string           `json:"subtotal"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func renderCart(cart *models.Cart) cartView {
	view := cartView{
		ID:        cart.ID,
		Status:    cart.Status,
		Currency:  cart.Currency,
		Items:     make([]itemView, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		lineTotal := item.UnitPriceCents * item.Quantity
		view.Items = append(view.Items, itemView{
			ID:             item.ID,
			Kind:           item.Kind,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      types.FormatCents(item.UnitPriceCents),
			LineTotalCents: lineTotal,
			LineTotal:      types.FormatCents(lineTotal),
			Customization:  item.Customization,
		})
		view.SubtotalCents += lineTotal
	}
	view.Subtotal = types.FormatCents(view.SubtotalCents)
	return view
}

func sanitizeSpec(spec types.CustomCigarSpec) types.CustomCigarSpec {
	spec.Size = validators.SanitizeString(spec.Size, 40)
	spec.Binder = validators.SanitizeString(spec.Binder, 40)
	spec.Flavor = validators.SanitizeString(spec.Flavor, 40)
	spec.BandStyle = validators.SanitizeString(spec.BandStyle, 40)
	spec.BoxType = validators.SanitizeString(spec.BoxType, 40)
	if spec.BandText != nil {
		trimmed := validators.SanitizeString(*spec.BandText, 18)
		spec.BandText = &trimmed
	}
	if spec.Engraving != nil {
		trimmed := validators.SanitizeString(*spec.Engraving, 20)
		spec.Engraving = &trimmed
	}
	return spec
}

func actorID(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, nil
}

func parseItemID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return parsed, nil
}
