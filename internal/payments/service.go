package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/internal/orders"
	"github.com/sikars/sikars-backend/pkg/authorizenet"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/outbox"
	"github.com/sikars/sikars-backend/pkg/outbox/payloads"
	"github.com/sikars/sikars-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gateway interface {
	Charge(ctx context.Context, req authorizenet.ChargeRequest) (*authorizenet.ChargeResult, error)
	Refund(ctx context.Context, req authorizenet.RefundRequest) (*authorizenet.RefundResult, error)
}

// ProcessInput carries a payment attempt against a pending order. Card
// details pass straight through to the gateway and are never stored. The
// billing address is optional; when absent the order's billing snapshot is
// sent instead.
type ProcessInput struct {
	OrderID        uuid.UUID
	UserID         uuid.UUID
	ActorRole      string
	CardNumber     string
	ExpirationDate string
	CardCode       string
	BillingAddress *types.Address
}

// RefundInput identifies the approved payment an admin wants refunded.
type RefundInput struct {
	PaymentID   uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   string
}

// Service defines payment processing operations.
type Service interface {
	Process(ctx context.Context, input ProcessInput) (*models.Payment, error)
	Refund(ctx context.Context, input RefundInput) (*models.Payment, error)
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	gateway    gateway
	tx         txRunner
	outbox     outboxPublisher
	logg       *logger.Logger
}

// NewService builds a payments service with the required dependencies.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	gw gateway,
	tx txRunner,
	outboxSvc outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		gateway:    gw,
		tx:         tx,
		outbox:     outboxSvc,
		logg:       logg,
	}, nil
}

// Process charges the order total through the gateway and applies the paid
// transition. Replays against an already paid order return the recorded
// approval without charging again. Declines persist a declined row and leave
// the order untouched. An unreachable gateway leaves no row at all.
func (s *service) Process(ctx context.Context, input ProcessInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.ordersRepo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		existing, err := s.repo.FindApprovedPaymentByOrder(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recorded payment")
		}
		return existing, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	billing := order.BillingAddr
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	result, err := s.gateway.Charge(ctx, authorizenet.ChargeRequest{
		OrderNumber:    order.OrderNumber,
		AmountCents:    order.TotalCents,
		CardNumber:     input.CardNumber,
		ExpirationDate: input.ExpirationDate,
		CardCode:       input.CardCode,
		BillTo:         billTo(billing),
	})
	if err != nil {
		return nil, err
	}

	if !result.Approved {
		reason := result.DeclineReason
		declined := &models.Payment{
			OrderID:       order.ID,
			AmountCents:   order.TotalCents,
			Currency:      order.Currency,
			Outcome:       enums.PaymentOutcomeDeclined,
			CardLastFour:  result.CardLastFour,
			FailureReason: &reason,
		}
		if _, err := s.repo.CreatePayment(ctx, declined); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record declined payment")
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment declined").
			WithDetails(map[string]any{"reason": reason})
	}

	var approved *models.Payment
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		paid, err := ordersRepo.MarkPaid(ctx, order.ID)
		if err != nil {
			return err
		}
		if !paid {
			return fmt.Errorf("order %s already left pending", order.OrderNumber)
		}

		payment := &models.Payment{
			OrderID:              order.ID,
			AmountCents:          order.TotalCents,
			Currency:             order.Currency,
			Outcome:              enums.PaymentOutcomeApproved,
			GatewayTransactionID: &result.TransactionID,
			AuthCode:             &result.AuthCode,
			CardLastFour:         result.CardLastFour,
		}
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: input.ActorRole},
			Data: payloads.OrderPaidEvent{
				OrderID:              order.ID,
				OrderNumber:          order.OrderNumber,
				PaymentID:            payment.ID,
				GatewayTransactionID: result.TransactionID,
				AmountCents:          order.TotalCents,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		approved = payment
		return nil
	})
	if txErr != nil {
		// Money moved at the gateway but the record did not land. This
		// needs an operator, not a retry.
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":               order.ID.String(),
			"order_number":           order.OrderNumber,
			"gateway_transaction_id": result.TransactionID,
		})
		s.logg.Error(logCtx, "gateway approved but local payment write failed", txErr)
		return nil, pkgerrors.New(pkgerrors.CodeReconciliation, "payment requires manual reconciliation")
	}

	return approved, nil
}

// billTo maps a stored address onto the gateway's cardholder fields. The
// single name field splits on the first space; a one-word name goes in as
// the last name, which is what the gateway keys AVS on.
func billTo(addr types.Address) *authorizenet.BillingAddress {
	name := strings.TrimSpace(addr.Name)
	if name == "" && addr.Line1 == "" && addr.PostalCode == "" {
		return nil
	}
	first, last := "", name
	if idx := strings.Index(name, " "); idx > 0 {
		first = name[:idx]
		last = strings.TrimSpace(name[idx+1:])
	}
	return &authorizenet.BillingAddress{
		FirstName: first,
		LastName:  last,
		Address:   addr.Line1,
		City:      addr.City,
		State:     addr.State,
		Zip:       addr.PostalCode,
		Country:   addr.Country,
	}
}

// Refund reverses an approved payment through the gateway and records the
// reversal as a new payment row.
func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	original, err := s.repo.FindPayment(ctx, input.PaymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if original.Outcome != enums.PaymentOutcomeApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only approved payments can be refunded")
	}
	if original.RefundedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already refunded")
	}
	if original.GatewayTransactionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no gateway transaction")
	}

	order, err := s.ordersRepo.FindOrder(ctx, original.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus.String()})
	}

	result, err := s.gateway.Refund(ctx, authorizenet.RefundRequest{
		OrderNumber:          order.OrderNumber,
		AmountCents:          original.AmountCents,
		CardLastFour:         original.CardLastFour,
		GatewayTransactionID: *original.GatewayTransactionID,
	})
	if err != nil {
		return nil, err
	}

	var refund *models.Payment
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		row := &models.Payment{
			OrderID:              order.ID,
			AmountCents:          original.AmountCents,
			Currency:             original.Currency,
			Outcome:              enums.PaymentOutcomeRefunded,
			GatewayTransactionID: &result.TransactionID,
			CardLastFour:         original.CardLastFour,
		}
		if _, err := repo.CreatePayment(ctx, row); err != nil {
			return err
		}
		if err := repo.MarkRefunded(ctx, original.ID); err != nil {
			return err
		}
		if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   original.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: payloads.PaymentRefundedEvent{
				OrderID:           order.ID,
				OrderNumber:       order.OrderNumber,
				PaymentID:         original.ID,
				RefundID:          row.ID,
				AmountCents:       original.AmountCents,
				GatewayRefundTxID: result.TransactionID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		refund = row
		return nil
	})
	if txErr != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":                      order.ID.String(),
			"order_number":                  order.OrderNumber,
			"payment_id":                    original.ID.String(),
			"gateway_refund_transaction_id": result.TransactionID,
		})
		s.logg.Error(logCtx, "gateway refunded but local write failed", txErr)
		return nil, pkgerrors.New(pkgerrors.CodeReconciliation, "refund requires manual reconciliation")
	}

	return refund, nil
}
