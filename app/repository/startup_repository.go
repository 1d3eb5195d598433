package repository

import (
	"time"

	"github.com/gomesmer/mesmer/app/models"
	"gorm.io/gorm"
)

// startupRepository implements the StartupRepository interface
type startupRepository struct {
	db *gorm.DB
}

// NewStartupRepository creates a new startup repository instance
func NewStartupRepository(db *gorm.DB) StartupRepository {
	return &startupRepository{db: db}
}

// Create creates a new startup in the database
func (r *startupRepository) Create(startup *models.Startup) error {
	return r.db.Create(startup).Error
}

// GetByID retrieves a startup by its ID
func (r *startupRepository) GetByID(id string) (*models.Startup, error) {
	var startup models.Startup
	err := r.db.Where("id = ?", id).First(&startup).Error
	if err != nil {
		return nil, err
	}
	return &startup, nil
}

// GetByEmail retrieves a startup by its email address
func (r *startupRepository) GetByEmail(email string) (*models.Startup, error) {
	var startup models.Startup
	err := r.db.Where("email = ?", email).First(&startup).Error
	if err != nil {
		return nil, err
	}
	return &startup, nil
}

// ListConnected returns all startups with a live Stripe connection
func (r *startupRepository) ListConnected() ([]models.Startup, error) {
	var startups []models.Startup
	err := r.db.Where("stripe_connected = ?", true).Find(&startups).Error
	return startups, err
}

// ListChargeable returns startups with both payment references present
func (r *startupRepository) ListChargeable(targetID string) ([]models.Startup, error) {
	query := r.db.
		Where("stripe_customer_id IS NOT NULL AND stripe_customer_id <> ''").
		Where("stripe_payment_method_id IS NOT NULL AND stripe_payment_method_id <> ''")
	if targetID != "" {
		query = query.Where("id = ?", targetID)
	}

	var startups []models.Startup
	err := query.Find(&startups).Error
	return startups, err
}

// MarkDisconnected flips stripe_connected off, leaving current_mrr intact
func (r *startupRepository) MarkDisconnected(id string) error {
	return r.db.Model(&models.Startup{}).
		Where("id = ?", id).
		Update("stripe_connected", false).Error
}

// UpdateMRR persists a computed MRR and the time it was derived
func (r *startupRepository) UpdateMRR(id string, mrr int64, at time.Time) error {
	return r.db.Model(&models.Startup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_mrr":         mrr,
			"mrr_last_updated_at": at,
		}).Error
}

// SetAdmissionChargedAtIf performs a compare-and-swap on admission_charged_at
// so two overlapping scheduler runs cannot both claim the same charge.
func (r *startupRepository) SetAdmissionChargedAtIf(id string, expected *time.Time, chargedAt time.Time) (bool, error) {
	query := r.db.Model(&models.Startup{}).Where("id = ?", id)
	if expected == nil {
		query = query.Where("admission_charged_at IS NULL")
	} else {
		query = query.Where("admission_charged_at = ?", *expected)
	}

	tx := query.Update("admission_charged_at", chargedAt)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
