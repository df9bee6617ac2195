package payments

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/internal/orders"
	"github.com/sikars/sikars-backend/pkg/authorizenet"
	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/outbox"
	"github.com/sikars/sikars-backend/pkg/pagination"
	"github.com/sikars/sikars-backend/pkg/types"
)

type stubPaymentRepo struct {
	payments    map[uuid.UUID]*models.Payment
	createFails bool
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: make(map[uuid.UUID]*models.Payment)}
}

func (s *stubPaymentRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if s.createFails {
		return nil, errors.New("connection reset by peer")
	}
	payment.ID = uuid.New()
	s.payments[payment.ID] = payment
	return payment, nil
}

func (s *stubPaymentRepo) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := s.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (s *stubPaymentRepo) FindApprovedPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	for _, payment := range s.payments {
		if payment.OrderID == orderID && payment.Outcome == enums.PaymentOutcomeApproved {
			return payment, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentRepo) MarkRefunded(ctx context.Context, paymentID uuid.UUID) error {
	payment, ok := s.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now().UTC()
	payment.RefundedAt = &now
	return nil
}

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

var _ orders.Repository = (*stubOrdersRepo)(nil)

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersRepo) ListAllOrders(ctx context.Context, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		order.PaymentStatus = status
	}
	return nil
}

func (s *stubOrdersRepo) MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, ok := s.orders[orderID]
	if !ok || order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		return false, nil
	}
	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusPaid
	return true, nil
}

func (s *stubOrdersRepo) CancelOrder(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus) (bool, error) {
	return false, nil
}

func (s *stubOrdersRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	return true, nil
}

func (s *stubOrdersRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return nil
}

type stubGateway struct {
	chargeResult *authorizenet.ChargeResult
	chargeErr    error
	refundResult *authorizenet.RefundResult
	refundErr    error
	charges      []authorizenet.ChargeRequest
	refunds      []authorizenet.RefundRequest
}

func (s *stubGateway) Charge(ctx context.Context, req authorizenet.ChargeRequest) (*authorizenet.ChargeResult, error) {
	s.charges = append(s.charges, req)
	return s.chargeResult, s.chargeErr
}

func (s *stubGateway) Refund(ctx context.Context, req authorizenet.RefundRequest) (*authorizenet.RefundResult, error) {
	s.refunds = append(s.refunds, req)
	return s.refundResult, s.refundErr
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	svc        Service
	repo       *stubPaymentRepo
	ordersRepo *stubOrdersRepo
	gateway    *stubGateway
	outbox     *stubOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubPaymentRepo()
	ordersRepo := newStubOrdersRepo()
	gw := &stubGateway{}
	ob := &stubOutbox{}
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})

	svc, err := NewService(repo, ordersRepo, gw, stubTx{}, ob, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, repo: repo, ordersRepo: ordersRepo, gateway: gw, outbox: ob}
}

func (f *fixture) seedOrder(userID uuid.UUID) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "SKR-20260831-A1B2C",
		UserID:        userID,
		CartID:        uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      enums.CurrencyUSD,
		TotalCents:    15039,
		BillingAddr: types.Address{
			Name:       "Ana Diaz",
			Line1:      "12 Calle Ocho",
			City:       "Miami",
			State:      "FL",
			PostalCode: "33135",
			Country:    "US",
		},
	}
	f.ordersRepo.orders[order.ID] = order
	return order
}

func processInput(order *models.Order) ProcessInput {
	return ProcessInput{
		OrderID:        order.ID,
		UserID:         order.UserID,
		ActorRole:      "customer",
		CardNumber:     "4111111111111111",
		ExpirationDate: "2030-12",
		CardCode:       "123",
	}
}

func TestProcessApproved(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      true,
		TransactionID: "60123456789",
		AuthCode:      "AUTH01",
		CardLastFour:  "1111",
	}

	payment, err := f.svc.Process(context.Background(), processInput(order))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if payment.Outcome != enums.PaymentOutcomeApproved {
		t.Fatalf("expected approved outcome, got %s", payment.Outcome)
	}
	if payment.GatewayTransactionID == nil || *payment.GatewayTransactionID != "60123456789" {
		t.Fatalf("expected gateway transaction id, got %v", payment.GatewayTransactionID)
	}
	if payment.CardLastFour != "1111" {
		t.Fatalf("expected last four only, got %q", payment.CardLastFour)
	}
	if order.Status != enums.OrderStatusConfirmed || order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected confirmed/paid, got %s/%s", order.Status, order.PaymentStatus)
	}
	if len(f.gateway.charges) != 1 {
		t.Fatalf("expected one charge, got %d", len(f.gateway.charges))
	}
	if f.gateway.charges[0].AmountCents != 15039 || f.gateway.charges[0].OrderNumber != order.OrderNumber {
		t.Fatalf("unexpected charge request %+v", f.gateway.charges[0])
	}
	billed := f.gateway.charges[0].BillTo
	if billed == nil || billed.FirstName != "Ana" || billed.LastName != "Diaz" || billed.Zip != "33135" {
		t.Fatalf("expected order billing snapshot on the charge, got %+v", billed)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("expected order paid event, got %+v", f.outbox.events)
	}
}

func TestProcessUsesRequestBillingAddress(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      true,
		TransactionID: "60123456789",
		AuthCode:      "AUTH01",
		CardLastFour:  "1111",
	}

	input := processInput(order)
	input.BillingAddress = &types.Address{
		Name:       "Carlos M Vega",
		Line1:      "7 Harbor Way",
		City:       "Tampa",
		State:      "FL",
		PostalCode: "33602",
		Country:    "US",
	}

	if _, err := f.svc.Process(context.Background(), input); err != nil {
		t.Fatalf("process: %v", err)
	}

	billed := f.gateway.charges[0].BillTo
	if billed == nil || billed.FirstName != "Carlos" || billed.LastName != "M Vega" {
		t.Fatalf("request billing address must win, got %+v", billed)
	}
	if billed.City != "Tampa" || billed.Zip != "33602" {
		t.Fatalf("unexpected billing fields %+v", billed)
	}
}

func TestProcessReplayReturnsRecordedPayment(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      true,
		TransactionID: "60123456789",
		AuthCode:      "AUTH01",
		CardLastFour:  "1111",
	}

	first, err := f.svc.Process(context.Background(), processInput(order))
	if err != nil {
		t.Fatalf("first process: %v", err)
	}

	second, err := f.svc.Process(context.Background(), processInput(order))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("replay must return the recorded payment")
	}
	if len(f.gateway.charges) != 1 {
		t.Fatalf("replay must not charge again, got %d charges", len(f.gateway.charges))
	}
}

func TestProcessDeclined(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      false,
		CardLastFour:  "1111",
		DeclineReason: "insufficient funds",
	}

	_, err := f.svc.Process(context.Background(), processInput(order))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected payment declined, got %v", err)
	}

	// The order stays payable and the decline leaves a row.
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("declined order must stay pending/pending, got %s/%s", order.Status, order.PaymentStatus)
	}
	if len(f.repo.payments) != 1 {
		t.Fatalf("expected one declined row, got %d", len(f.repo.payments))
	}
	for _, payment := range f.repo.payments {
		if payment.Outcome != enums.PaymentOutcomeDeclined {
			t.Fatalf("expected declined outcome, got %s", payment.Outcome)
		}
		if payment.FailureReason == nil || *payment.FailureReason != "insufficient funds" {
			t.Fatalf("expected failure reason, got %v", payment.FailureReason)
		}
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("declines must not emit events, got %+v", f.outbox.events)
	}
}

func TestProcessGatewayUnreachable(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeErr = pkgerrors.New(pkgerrors.CodeGatewayDown, "gateway unreachable")

	_, err := f.svc.Process(context.Background(), processInput(order))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGatewayDown {
		t.Fatalf("expected gateway down, got %v", err)
	}
	// An unreachable gateway leaves no trace.
	if len(f.repo.payments) != 0 {
		t.Fatalf("expected no payment rows, got %d", len(f.repo.payments))
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("order must stay pending, got %s", order.Status)
	}
}

func TestProcessReconciliationOnLocalFailure(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      true,
		TransactionID: "60123456789",
		AuthCode:      "AUTH01",
		CardLastFour:  "1111",
	}
	f.repo.createFails = true

	_, err := f.svc.Process(context.Background(), processInput(order))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeReconciliation {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}

func TestProcessForeignOrderHidden(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(uuid.New())

	input := processInput(order)
	input.UserID = uuid.New()

	_, err := f.svc.Process(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
	if len(f.gateway.charges) != 0 {
		t.Fatal("foreign order must never reach the gateway")
	}
}

func TestProcessNonPendingOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	order.Status = enums.OrderStatusCancelled

	_, err := f.svc.Process(context.Background(), processInput(order))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRefundApprovedPayment(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	adminID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      true,
		TransactionID: "60123456789",
		AuthCode:      "AUTH01",
		CardLastFour:  "1111",
	}

	payment, err := f.svc.Process(context.Background(), processInput(order))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	f.gateway.refundResult = &authorizenet.RefundResult{TransactionID: "70987654321"}
	refund, err := f.svc.Refund(context.Background(), RefundInput{
		PaymentID:   payment.ID,
		ActorUserID: adminID,
		ActorRole:   "admin",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}

	if refund.Outcome != enums.PaymentOutcomeRefunded {
		t.Fatalf("expected refunded outcome, got %s", refund.Outcome)
	}
	if refund.GatewayTransactionID == nil || *refund.GatewayTransactionID != "70987654321" {
		t.Fatalf("expected refund transaction id, got %v", refund.GatewayTransactionID)
	}
	if payment.RefundedAt == nil {
		t.Fatal("original payment must be stamped refunded")
	}
	if order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %s", order.PaymentStatus)
	}
	if len(f.gateway.refunds) != 1 {
		t.Fatalf("expected one refund call, got %d", len(f.gateway.refunds))
	}
	req := f.gateway.refunds[0]
	if req.GatewayTransactionID != "60123456789" || req.CardLastFour != "1111" || req.AmountCents != 15039 {
		t.Fatalf("unexpected refund request %+v", req)
	}
	if len(f.outbox.events) != 2 || f.outbox.events[1].EventType != enums.EventPaymentRefunded {
		t.Fatalf("expected payment refunded event, got %+v", f.outbox.events)
	}
}

func TestRefundRejectsDeclinedPayment(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      false,
		CardLastFour:  "1111",
		DeclineReason: "do not honor",
	}

	_, _ = f.svc.Process(context.Background(), processInput(order))

	var declinedID uuid.UUID
	for id := range f.repo.payments {
		declinedID = id
	}

	_, err := f.svc.Refund(context.Background(), RefundInput{
		PaymentID:   declinedID,
		ActorUserID: uuid.New(),
		ActorRole:   "admin",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for declined payment, got %v", err)
	}
}

func TestRefundIsNotRepeatable(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(userID)
	f.gateway.chargeResult = &authorizenet.ChargeResult{
		Approved:      true,
		TransactionID: "60123456789",
		AuthCode:      "AUTH01",
		CardLastFour:  "1111",
	}

	payment, err := f.svc.Process(context.Background(), processInput(order))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	f.gateway.refundResult = &authorizenet.RefundResult{TransactionID: "70987654321"}
	input := RefundInput{PaymentID: payment.ID, ActorUserID: uuid.New(), ActorRole: "admin"}
	if _, err := f.svc.Refund(context.Background(), input); err != nil {
		t.Fatalf("first refund: %v", err)
	}

	_, err = f.svc.Refund(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on repeat refund, got %v", err)
	}
}
