package models

import "time"

// Admission charge attempt outcomes.
const (
	ChargeStatusSucceeded = "succeeded"
	ChargeStatusFailed    = "failed"
)

// AdmissionCharge is one row per charge attempt, successful or not, so an
// operator can audit what a scheduler run actually did.
type AdmissionCharge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StartupID      string    `gorm:"type:varchar(36);not null;index" json:"startup_id"`
	Plan           string    `gorm:"type:varchar(16);not null" json:"plan"`
	AmountCents    int64     `gorm:"not null" json:"amount_cents"`
	Status         string    `gorm:"type:varchar(16);not null;index" json:"status"`
	FailureReason  string    `gorm:"type:text" json:"failure_reason,omitempty"`
	IdempotencyKey string    `gorm:"type:varchar(191);not null;index" json:"idempotency_key"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
