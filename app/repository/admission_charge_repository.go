package repository

import (
	"github.com/gomesmer/mesmer/app/models"
	"gorm.io/gorm"
)

// admissionChargeRepository implements the AdmissionChargeRepository interface
type admissionChargeRepository struct {
	db *gorm.DB
}

// NewAdmissionChargeRepository creates a new admission charge repository instance
func NewAdmissionChargeRepository(db *gorm.DB) AdmissionChargeRepository {
	return &admissionChargeRepository{db: db}
}

// Create records one charge attempt in the ledger
func (r *admissionChargeRepository) Create(charge *models.AdmissionCharge) error {
	return r.db.Create(charge).Error
}

// ListByStartup returns the most recent charge attempts for a startup
func (r *admissionChargeRepository) ListByStartup(startupID string, limit int) ([]models.AdmissionCharge, error) {
	var charges []models.AdmissionCharge
	err := r.db.Where("startup_id = ?", startupID).
		Order("created_at DESC").
		Limit(limit).
		Find(&charges).Error
	return charges, err
}
