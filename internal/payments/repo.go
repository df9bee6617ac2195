package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/pkg/db/models"
	"github.com/sikars/sikars-backend/pkg/enums"
)

// Repository defines persistence operations for payment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindApprovedPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	MarkRefunded(ctx context.Context, paymentID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindApprovedPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND outcome = ?", orderID, enums.PaymentOutcomeApproved).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) MarkRefunded(ctx context.Context, paymentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("refunded_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
