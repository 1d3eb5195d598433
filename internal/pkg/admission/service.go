// Package admission implements the recurring admission-fee scheduler.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/gomesmer/mesmer/app/models"
	"github.com/gomesmer/mesmer/app/repository"
	"github.com/gomesmer/mesmer/internal/pkg/config"
	"github.com/gomesmer/mesmer/internal/pkg/stripegw"
)

// Admission fee amounts. Monthly is charged every period, annual once, as
// twelve months prepaid.
const (
	MonthlyAmountCents int64 = 2400  // $24 per month
	AnnualAmountCents  int64 = 22800 // $19 x 12, one charge
)

// MonthlyBillingIntervalDays is the floor between two monthly charges. The
// scheduler is expected to run on the 1st of each month; 28 days tolerates
// short months without ever allowing two charges in one period.
const MonthlyBillingIntervalDays = 28

const runLockKey = "admission:run"
const runLockTTL = 10 * time.Minute

// ErrRunInProgress means another admission run currently holds the lock.
var ErrRunInProgress = errors.New("admission: another run is in progress")

// Locker serializes whole scheduler runs across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Service orchestrates admission charges. Stateless across invocations; all
// state lives in the startup store.
type Service struct {
	cfg     config.Config
	repo    repository.StartupRepository
	ledger  repository.AdmissionChargeRepository
	gateway stripegw.Gateway
	locks   Locker
	now     func() time.Time
}

// NewService wires the scheduler from its collaborators.
func NewService(cfg config.Config, repo repository.StartupRepository, ledger repository.AdmissionChargeRepository, gateway stripegw.Gateway, locks Locker) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		ledger:  ledger,
		gateway: gateway,
		locks:   locks,
		now:     time.Now,
	}
}

// Run charges every due startup, or just targetID when given. One startup's
// failure never aborts the batch; only configuration errors do.
func (s *Service) Run(ctx context.Context, targetID string) (*Summary, error) {
	if err := s.cfg.ValidateStripeSecretKey(); err != nil {
		return nil, err
	}

	ok, err := s.locks.Acquire(ctx, runLockKey, runLockTTL)
	if err != nil {
		return nil, fmt.Errorf("admission: lock acquire failed: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := s.locks.Release(ctx, runLockKey); err != nil {
			log.Warnf("[Admission] releasing run lock failed: %v", err)
		}
	}()

	startups, err := s.repo.ListChargeable(targetID)
	if err != nil {
		return nil, fmt.Errorf("admission: loading startups failed: %w", err)
	}
	if len(startups) == 0 {
		msg := "No startups with saved payment methods"
		if targetID != "" {
			msg = "Startup not found or has no payment method"
		}
		return &Summary{Message: msg, Results: []Result{}}, nil
	}

	now := s.now()
	due := make([]models.Startup, 0, len(startups))
	for _, startup := range startups {
		if IsDue(&startup, now) {
			due = append(due, startup)
		}
	}
	if len(due) == 0 {
		return &Summary{
			Message: "No startups due for a charge (monthly: already charged this period; annual: already charged once).",
			Results: []Result{},
		}, nil
	}

	summary := &Summary{Results: make([]Result, 0, len(due))}
	for _, startup := range due {
		result := s.chargeOne(ctx, &startup, now)
		if result.Status == models.ChargeStatusSucceeded {
			summary.Charged++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}
	summary.Total = len(summary.Results)

	log.Infof("[Admission] run complete: charged=%d failed=%d total=%d", summary.Charged, summary.Failed, summary.Total)
	return summary, nil
}

func (s *Service) chargeOne(ctx context.Context, startup *models.Startup, now time.Time) Result {
	plan := models.NormalizeAdmissionPlan(startup.AdmissionPlan)
	amount := AmountForPlan(plan)
	idemKey := IdempotencyKey(startup.ID, now)

	err := s.gateway.ChargeOffSession(ctx, stripegw.ChargeInput{
		CustomerID:      *startup.StripeCustomerID,
		PaymentMethodID: *startup.StripePaymentMethodID,
		AmountCents:     amount,
		Currency:        "usd",
		Description:     fmt.Sprintf("Mesmer admission (%s) - %s", plan, startup.Name),
		IdempotencyKey:  idemKey,
	})

	entry := &models.AdmissionCharge{
		StartupID:      startup.ID,
		Plan:           plan,
		AmountCents:    amount,
		IdempotencyKey: idemKey,
	}

	if err != nil {
		log.Errorf("[Admission] charge failed for startup %s: %v", startup.ID, err)
		entry.Status = models.ChargeStatusFailed
		entry.FailureReason = err.Error()
		s.recordAttempt(entry)
		return Result{StartupID: startup.ID, Status: models.ChargeStatusFailed, Error: err.Error()}
	}

	updated, err := s.repo.SetAdmissionChargedAtIf(startup.ID, startup.AdmissionChargedAt, now)
	if err != nil {
		// The charge went through; the operator can reconcile from the
		// ledger row, so this still counts as succeeded.
		log.Errorf("[Admission] persisting charge timestamp failed for startup %s: %v", startup.ID, err)
	} else if !updated {
		log.Warnf("[Admission] charge timestamp for startup %s was already advanced by a concurrent run", startup.ID)
	}

	entry.Status = models.ChargeStatusSucceeded
	s.recordAttempt(entry)
	return Result{StartupID: startup.ID, Status: models.ChargeStatusSucceeded}
}

func (s *Service) recordAttempt(entry *models.AdmissionCharge) {
	if err := s.ledger.Create(entry); err != nil {
		log.Errorf("[Admission] ledger write failed for startup %s: %v", entry.StartupID, err)
	}
}

// IsDue applies the plan-aware eligibility rule. Annual startups are charged
// at most once ever; monthly ones at most every 28 days.
func IsDue(startup *models.Startup, now time.Time) bool {
	chargedAt := startup.AdmissionChargedAt
	if models.NormalizeAdmissionPlan(startup.AdmissionPlan) == models.AdmissionPlanAnnual {
		return chargedAt == nil
	}

	if chargedAt == nil {
		return true
	}
	cutoff := now.Add(-MonthlyBillingIntervalDays * 24 * time.Hour)
	return !chargedAt.After(cutoff)
}

// AmountForPlan returns the fixed admission fee for a plan.
func AmountForPlan(plan string) int64 {
	if models.NormalizeAdmissionPlan(plan) == models.AdmissionPlanAnnual {
		return AnnualAmountCents
	}
	return MonthlyAmountCents
}

// IdempotencyKey scopes a charge to one startup and one billing period, so
// duplicate invocations inside a period collapse on the gateway side.
func IdempotencyKey(startupID string, now time.Time) string {
	periodStart := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("admission:%s:%s", startupID, periodStart.Format("2006-01-02"))
}
