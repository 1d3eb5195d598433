package repository

import (
	"time"

	"github.com/gomesmer/mesmer/app/models"
)

// StartupRepository defines the interface for startup-related database operations
type StartupRepository interface {
	Create(startup *models.Startup) error
	GetByID(id string) (*models.Startup, error)
	GetByEmail(email string) (*models.Startup, error)

	// ListConnected returns startups eligible for the MRR sync sweep.
	ListConnected() ([]models.Startup, error)
	// ListChargeable returns startups with both payment references present,
	// optionally filtered to a single id.
	ListChargeable(targetID string) ([]models.Startup, error)

	// MarkDisconnected flips stripe_connected off without touching the
	// stored MRR.
	MarkDisconnected(id string) error
	// UpdateMRR persists a freshly computed MRR figure and its timestamp.
	UpdateMRR(id string, mrr int64, at time.Time) error
	// SetAdmissionChargedAtIf writes the new charge timestamp only if the
	// stored value still matches expected. Returns false when another run
	// got there first.
	SetAdmissionChargedAtIf(id string, expected *time.Time, chargedAt time.Time) (bool, error)
}

// AdmissionChargeRepository defines the interface for the charge-attempt ledger
type AdmissionChargeRepository interface {
	Create(charge *models.AdmissionCharge) error
	ListByStartup(startupID string, limit int) ([]models.AdmissionCharge, error)
}
