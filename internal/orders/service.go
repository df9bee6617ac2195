package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/internal/cart"
	"github.com/sikars/sikars-backend/internal/catalog"
	"github.com/sikars/sikars-backend/internal/pricing"
	"github.com/sikars/sikars-backend/pkg/config"
	"github.com/sikars/sikars-backend/pkg/db"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/outbox"
	"github.com/sikars/sikars-backend/pkg/outbox/payloads"
	"github.com/sikars/sikars-backend/pkg/pagination"
)

const orderNumberConstraint = "ux_orders_order_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Cancel(ctx context.Context, input CancelOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Order, error)
	AttachDocuments(ctx context.Context, input AttachDocumentsInput) (*models.Order, error)
	Documents(ctx context.Context, orderID uuid.UUID) (*OrderDocuments, error)
}

type service struct {
	repo     Repository
	cartRepo cart.Repository
	catalog  catalog.Service
	calc     *pricing.Calculator
	tx       txRunner
	outbox   outboxPublisher
	cfg      config.PricingConfig
	logg     *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(
	repo Repository,
	cartRepo cart.Repository,
	catalogSvc catalog.Service,
	calc *pricing.Calculator,
	tx txRunner,
	outboxSvc outboxPublisher,
	cfg config.PricingConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		cartRepo: cartRepo,
		catalog:  catalogSvc,
		calc:     calc,
		tx:       tx,
		outbox:   outboxSvc,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

// Create converts the user's active cart into an immutable order. The cart
// flip, stock reservation, order insert and outbox write all commit together.
// Order number collisions retry the whole transaction.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ShippingMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}

	userCart, err := s.cartRepo.FindActiveCartByUser(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no active cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// Every line is re-priced from current catalog data here. Stored cart
	// prices are treated as display hints, never as the amount to charge.
	lines := make([]pricing.Line, 0, len(userCart.Items))
	orderItems := make([]models.OrderItem, 0, len(userCart.Items))
	for _, item := range userCart.Items {
		name, unitPrice, err := s.consolidateLine(ctx, item)
		if err != nil {
			return nil, err
		}
		lines = append(lines, pricing.Line{UnitPriceCents: unitPrice, Quantity: item.Quantity})
		orderItems = append(orderItems, models.OrderItem{
			Kind:           item.Kind,
			ProductID:      item.ProductID,
			Name:           name,
			Quantity:       item.Quantity,
			UnitPriceCents: unitPrice,
			LineTotalCents: unitPrice * item.Quantity,
			Customization:  item.Customization,
		})
	}

	totals, err := s.calc.Totals(lines, input.ShippingMethod)
	if err != nil {
		return nil, err
	}

	maxAttempts := s.cfg.OrderNumberMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	var created *models.Order
	for attempt := 0; attempt < maxAttempts; attempt++ {
		orderNumber, err := GenerateOrderNumber(time.Now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}

		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			cartRepo := s.cartRepo.WithTx(tx)

			converted, err := cartRepo.ConvertActiveCart(ctx, userCart.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
			}
			if !converted {
				return pkgerrors.New(pkgerrors.CodeCartConverted, "cart already checked out")
			}

			for _, item := range userCart.Items {
				if item.Kind != enums.LineItemKindCatalog || item.ProductID == nil {
					continue
				}
				ok, err := repo.DecrementStock(ctx, *item.ProductID, item.Quantity)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
				}
				if !ok {
					return pkgerrors.New(pkgerrors.CodeItemUnavailable, "insufficient stock").
						WithDetails(map[string]any{"product_id": item.ProductID.String()})
				}
			}

			order := &models.Order{
				OrderNumber:    orderNumber,
				UserID:         input.UserID,
				CartID:         userCart.ID,
				Status:         enums.OrderStatusPending,
				PaymentStatus:  enums.PaymentStatusPending,
				Currency:       enums.CurrencyUSD,
				SubtotalCents:  totals.SubtotalCents,
				TaxCents:       totals.TaxCents,
				ShippingCents:  totals.ShippingCents,
				TotalCents:     totals.TotalCents,
				ShippingMethod: input.ShippingMethod,
				ShippingAddr:   input.ShippingAddress,
				BillingAddr:    input.BillingAddress,
				CustomerNotes:  input.CustomerNotes,
			}
			if _, err := repo.CreateOrder(ctx, order); err != nil {
				return err
			}

			items := make([]models.OrderItem, len(orderItems))
			copy(items, orderItems)
			for i := range items {
				items[i].OrderID = order.ID
			}
			if err := repo.CreateOrderItems(ctx, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
			}

			itemCount := 0
			for _, item := range items {
				itemCount += item.Quantity
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: input.UserID, Role: input.ActorRole},
				Data: payloads.OrderCreatedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      input.UserID,
					CartID:      userCart.ID,
					TotalCents:  order.TotalCents,
					ItemCount:   itemCount,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}

			created = order
			return nil
		})
		if txErr == nil {
			return s.repo.FindOrder(ctx, created.ID)
		}
		if db.IsUniqueViolation(txErr, orderNumberConstraint) {
			continue
		}
		if pkgerrors.As(txErr) != nil {
			return nil, txErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create order")
	}

	return nil, pkgerrors.New(pkgerrors.CodeNumberExhausted, "order number space exhausted for today")
}

// consolidateLine re-validates a cart line against the current catalog and
// returns its display name plus the unit price to charge. Catalog lines take
// the product's current price; custom lines re-resolve every selection so a
// retired option fails the order instead of selling at a stale price.
func (s *service) consolidateLine(ctx context.Context, item models.CartItem) (string, int, error) {
	switch item.Kind {
	case enums.LineItemKindCatalog:
		if item.ProductID == nil {
			return "", 0, pkgerrors.New(pkgerrors.CodeValidation, "catalog line missing product")
		}
		product, err := s.catalog.SellableProduct(ctx, *item.ProductID, item.Quantity)
		if err != nil {
			return "", 0, err
		}
		return product.Name, product.PriceCents, nil
	case enums.LineItemKindCustom:
		if item.Customization == nil {
			return "", 0, pkgerrors.New(pkgerrors.CodeValidation, "custom line missing customization")
		}
		spec := item.Customization
		options, err := s.catalog.ResolveCustomSpec(ctx, *spec)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
				return "", 0, pkgerrors.New(pkgerrors.CodeItemUnavailable, "custom option is no longer offered").
					WithDetails(typed.Details())
			}
			return "", 0, err
		}
		modifiers := make([]int, 0, len(options))
		for _, option := range options {
			modifiers = append(modifiers, option.PriceModifierCents)
		}
		name := fmt.Sprintf("Custom Cigar (%s, %s, %s)", spec.Size, spec.Binder, spec.Flavor)
		return name, s.calc.CustomUnitPrice(modifiers...), nil
	default:
		return "", 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown line item kind")
	}
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isAdmin && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListUserOrders(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.ListAllOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Cancel stops an order before fulfillment starts. Reserved catalog stock
// goes back. Cancelling an already cancelled order is a no-op.
func (s *service) Cancel(ctx context.Context, input CancelOrderInput) (*models.Order, error) {
	order, err := s.Get(ctx, input.UserID, input.OrderID, input.IsAdmin)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}
	if !Cancellable(order.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeNotCancellable, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cancelled, err := repo.CancelOrder(ctx, order.ID, order.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !cancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed state, retry")
		}

		for _, item := range order.Items {
			if item.Kind != enums.LineItemKindCatalog || item.ProductID == nil {
				continue
			}
			if err := repo.RestoreStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: input.ActorRole},
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  order.Status,
				CancelledAt: time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindOrder(ctx, order.ID)
}

// UpdateStatus drives admin fulfillment transitions. Confirmation is owned
// by the payment flow and cancellation by Cancel, so only forward
// fulfillment moves are accepted here.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Order, error) {
	if !input.ToStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.ToStatus == enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "orders are confirmed through payment")
	}
	if input.ToStatus == enums.OrderStatusCancelled {
		return s.Cancel(ctx, CancelOrderInput{
			OrderID:   input.OrderID,
			UserID:    input.ActorUserID,
			ActorRole: input.ActorRole,
			IsAdmin:   true,
		})
	}

	order, err := s.Get(ctx, input.ActorUserID, input.OrderID, true)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, input.ToStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").
			WithDetails(map[string]any{
				"from": order.Status.String(),
				"to":   input.ToStatus.String(),
			})
	}

	updates := map[string]any{"status": input.ToStatus}
	if column, ok := StampColumn(input.ToStatus); ok {
		updates[column] = gorm.Expr("CURRENT_TIMESTAMP")
	}
	var tracking *string
	if input.ToStatus == enums.OrderStatusProcessing {
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid")
		}
		generated, err := GenerateTrackingNumber()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking number")
		}
		tracking = &generated
		updates["tracking_number"] = generated
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				FromStatus:     order.Status,
				ToStatus:       input.ToStatus,
				TrackingNumber: tracking,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindOrder(ctx, order.ID)
}

// AttachDocuments records links to externally generated artifacts, such as
// the invoice PDF and the QR tracking page.
func (s *service) AttachDocuments(ctx context.Context, input AttachDocumentsInput) (*models.Order, error) {
	if input.PDFURL == nil && input.QRTrackingURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no document links provided")
	}

	order, err := s.Get(ctx, input.ActorUserID, input.OrderID, true)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.PDFURL != nil {
		updates["pdf_url"] = *input.PDFURL
	}
	if input.QRTrackingURL != nil {
		updates["qr_tracking_url"] = *input.QRTrackingURL
	}
	if err := s.repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach documents")
	}
	return s.repo.FindOrder(ctx, order.ID)
}

// Documents renders the invoice and packing data from the order snapshot.
func (s *service) Documents(ctx context.Context, orderID uuid.UUID) (*OrderDocuments, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	lines := make([]DocumentLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, DocumentLine{
			Name:           item.Name,
			Kind:           item.Kind,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
			Customization:  item.Customization,
		})
	}

	return &OrderDocuments{
		OrderNumber:     order.OrderNumber,
		IssuedAt:        time.Now().UTC(),
		ShippingAddress: order.ShippingAddr,
		TrackingNumber:  order.TrackingNumber,
		Lines:           lines,
		SubtotalCents:   order.SubtotalCents,
		TaxCents:        order.TaxCents,
		ShippingCents:   order.ShippingCents,
		TotalCents:      order.TotalCents,
	}, nil
}
