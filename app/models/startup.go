package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admission plans. Immutable after signup.
const (
	AdmissionPlanMonthly = "monthly"
	AdmissionPlanAnnual  = "annual"
)

// Startup is a league participant. The billing jobs only touch the Stripe
// and admission fields; everything else is onboarding data.
type Startup struct {
	ID    string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name  string `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Email string `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`

	LogoURL                 string `gorm:"type:varchar(255);default:null" json:"logo_url" validate:"omitempty,url,max=255"`
	IsAnonymous             bool   `gorm:"default:false" json:"is_anonymous"`
	InterestedInAccelerator bool   `gorm:"default:false" json:"interested_in_accelerator"`

	// StripeAPIKeyEncrypted is the vault blob holding the participant's
	// read-only restricted key. Never exposed over the API.
	StripeAPIKeyEncrypted string `gorm:"type:text" json:"-"`
	// StripeConnected is flipped to false by the sync job on any decrypt or
	// gateway failure; only onboarding sets it back to true.
	StripeConnected  bool       `gorm:"default:false;index" json:"stripe_connected"`
	CurrentMRR       int64      `gorm:"default:0" json:"current_mrr"`
	MRRLastUpdatedAt *time.Time `gorm:"type:timestamp;default:null" json:"mrr_last_updated_at,omitempty"`

	StripeCustomerID      *string `gorm:"type:varchar(191);default:null" json:"-"`
	StripePaymentMethodID *string `gorm:"type:varchar(191);default:null" json:"-"`

	AdmissionPlan      string     `gorm:"type:varchar(16);not null;default:'monthly'" json:"admission_plan" validate:"oneof=monthly annual"`
	AdmissionChargedAt *time.Time `gorm:"type:timestamp;default:null" json:"admission_charged_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Startup) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *Startup) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// HasPaymentMethod reports whether both payment references are present,
// the precondition for admission billing.
func (s *Startup) HasPaymentMethod() bool {
	return s.StripeCustomerID != nil && *s.StripeCustomerID != "" &&
		s.StripePaymentMethodID != nil && *s.StripePaymentMethodID != ""
}

// NormalizeAdmissionPlan collapses any unexpected value to monthly, the way
// the signup form does.
func NormalizeAdmissionPlan(plan string) string {
	if plan == AdmissionPlanAnnual {
		return AdmissionPlanAnnual
	}
	return AdmissionPlanMonthly
}
