package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gomesmer/mesmer/app/models"
	"github.com/gomesmer/mesmer/internal/pkg/config"
	"github.com/gomesmer/mesmer/internal/pkg/mrr"
	"github.com/gomesmer/mesmer/internal/pkg/stripegw"
)

type fakeStartupRepo struct {
	startups []models.Startup
	charged  map[string]time.Time
	casFail  bool
}

func (f *fakeStartupRepo) Create(*models.Startup) error { return errors.New("unused") }
func (f *fakeStartupRepo) GetByID(string) (*models.Startup, error) { return nil, errors.New("unused") }
func (f *fakeStartupRepo) GetByEmail(string) (*models.Startup, error) { return nil, errors.New("unused") }
func (f *fakeStartupRepo) ListConnected() ([]models.Startup, error) { return nil, errors.New("unused") }
func (f *fakeStartupRepo) MarkDisconnected(string) error { return errors.New("unused") }
func (f *fakeStartupRepo) UpdateMRR(string, int64, time.Time) error { return errors.New("unused") }

func (f *fakeStartupRepo) ListChargeable(targetID string) ([]models.Startup, error) {
	if targetID == "" {
		return f.startups, nil
	}
	for _, s := range f.startups {
		if s.ID == targetID {
			return []models.Startup{s}, nil
		}
	}
	return nil, nil
}

func (f *fakeStartupRepo) SetAdmissionChargedAtIf(id string, expected *time.Time, chargedAt time.Time) (bool, error) {
	if f.casFail {
		return false, nil
	}
	if f.charged == nil {
		f.charged = map[string]time.Time{}
	}
	f.charged[id] = chargedAt
	return true, nil
}

type fakeLedger struct {
	entries []models.AdmissionCharge
}

func (f *fakeLedger) Create(c *models.AdmissionCharge) error {
	f.entries = append(f.entries, *c)
	return nil
}

func (f *fakeLedger) ListByStartup(string, int) ([]models.AdmissionCharge, error) {
	return f.entries, nil
}

type fakeGateway struct {
	charges []stripegw.ChargeInput
	failFor map[string]error
}

func (f *fakeGateway) ChargeOffSession(_ context.Context, in stripegw.ChargeInput) error {
	if err, ok := f.failFor[in.CustomerID]; ok {
		return err
	}
	f.charges = append(f.charges, in)
	return nil
}

func (f *fakeGateway) ListActiveSubscriptions(context.Context, string) ([]mrr.Subscription, error) {
	return nil, errors.New("unused")
}
func (f *fakeGateway) CreateCustomer(context.Context, string, string) (string, error) {
	return "", errors.New("unused")
}
func (f *fakeGateway) AttachPaymentMethod(context.Context, string, string) error {
	return errors.New("unused")
}
func (f *fakeGateway) SetDefaultPaymentMethod(context.Context, string, string) error {
	return errors.New("unused")
}
func (f *fakeGateway) CreateSetupIntent(context.Context) (string, error) {
	return "", errors.New("unused")
}

type fakeLocker struct {
	held bool
	busy bool
}

func (f *fakeLocker) Acquire(context.Context, string, time.Duration) (bool, error) {
	if f.busy {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLocker) Release(context.Context, string) error {
	f.held = false
	return nil
}

func strptr(s string) *string { return &s }

func chargeableStartup(id, plan string, chargedAt *time.Time) models.Startup {
	return models.Startup{
		ID:                    id,
		Name:                  "Acme " + id,
		AdmissionPlan:         plan,
		AdmissionChargedAt:    chargedAt,
		StripeCustomerID:      strptr("cus_" + id),
		StripePaymentMethodID: strptr("pm_" + id),
	}
}

func validConfig() config.Config {
	return config.Config{
		EncryptionSecret: "0123456789abcdef0123456789abcdef",
		StripeSecretKey:  "sk_test_123",
		TriggerSecret:    "trigger",
	}
}

func newTestService(repo *fakeStartupRepo, gw *fakeGateway, now time.Time) (*Service, *fakeLedger) {
	ledger := &fakeLedger{}
	svc := NewService(validConfig(), repo, ledger, gw, &fakeLocker{})
	svc.now = func() time.Time { return now }
	return svc, ledger
}

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	days27 := now.Add(-27 * 24 * time.Hour)
	days28 := now.Add(-28 * 24 * time.Hour)
	days29 := now.Add(-29 * 24 * time.Hour)

	tests := []struct {
		name      string
		plan      string
		chargedAt *time.Time
		want      bool
	}{
		{name: "annual never charged", plan: "annual", chargedAt: nil, want: true},
		{name: "annual already charged", plan: "annual", chargedAt: &days29, want: false},
		{name: "annual charged long ago stays ineligible", plan: "annual", chargedAt: &days28, want: false},
		{name: "monthly never charged", plan: "monthly", chargedAt: nil, want: true},
		{name: "monthly 27 days ago", plan: "monthly", chargedAt: &days27, want: false},
		{name: "monthly exactly 28 days ago", plan: "monthly", chargedAt: &days28, want: true},
		{name: "monthly 29 days ago", plan: "monthly", chargedAt: &days29, want: true},
		{name: "unknown plan treated as monthly", plan: "weird", chargedAt: nil, want: true},
	}

	for _, tt := range tests {
		s := chargeableStartup("s1", tt.plan, tt.chargedAt)
		if got := IsDue(&s, now); got != tt.want {
			t.Fatalf("%s: IsDue() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsDueAnnualStaysIneligibleAcrossRuns(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	charged := now.Add(-400 * 24 * time.Hour)
	s := chargeableStartup("s1", models.AdmissionPlanAnnual, &charged)

	for i := 0; i < 5; i++ {
		if IsDue(&s, now.Add(time.Duration(i)*30*24*time.Hour)) {
			t.Fatalf("annual startup became due again on iteration %d", i)
		}
	}
}

func TestAmountForPlan(t *testing.T) {
	if got := AmountForPlan(models.AdmissionPlanMonthly); got != 2400 {
		t.Fatalf("monthly amount = %d, want 2400", got)
	}
	if got := AmountForPlan(models.AdmissionPlanAnnual); got != 22800 {
		t.Fatalf("annual amount = %d, want 22800", got)
	}
	if got := AmountForPlan("garbage"); got != 2400 {
		t.Fatalf("unknown plan amount = %d, want 2400", got)
	}
}

func TestIdempotencyKeyStableWithinPeriod(t *testing.T) {
	early := time.Date(2026, 8, 1, 0, 5, 0, 0, time.UTC)
	late := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	next := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if IdempotencyKey("s1", early) != IdempotencyKey("s1", late) {
		t.Fatalf("expected identical keys inside one billing period")
	}
	if IdempotencyKey("s1", early) == IdempotencyKey("s1", next) {
		t.Fatalf("expected a fresh key in the next billing period")
	}
	if IdempotencyKey("s1", early) == IdempotencyKey("s2", early) {
		t.Fatalf("expected distinct keys per startup")
	}
}

func TestRunChargesDueStartups(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeStartupRepo{startups: []models.Startup{
		chargeableStartup("a", models.AdmissionPlanMonthly, nil),
		chargeableStartup("b", models.AdmissionPlanAnnual, nil),
	}}
	gw := &fakeGateway{}
	svc, ledger := newTestService(repo, gw, now)

	summary, err := svc.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Charged != 2 || summary.Failed != 0 || summary.Total != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(gw.charges) != 2 {
		t.Fatalf("expected 2 gateway charges, got %d", len(gw.charges))
	}
	if gw.charges[0].AmountCents != 2400 || gw.charges[1].AmountCents != 22800 {
		t.Fatalf("unexpected amounts: %+v", gw.charges)
	}
	if gw.charges[0].Currency != "usd" {
		t.Fatalf("expected usd currency")
	}
	if gw.charges[0].IdempotencyKey == "" {
		t.Fatalf("expected idempotency key on the gateway call")
	}
	if _, ok := repo.charged["a"]; !ok {
		t.Fatalf("expected charge timestamp persisted for a")
	}
	if len(ledger.entries) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(ledger.entries))
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeStartupRepo{startups: []models.Startup{
		chargeableStartup("a", models.AdmissionPlanMonthly, nil),
		chargeableStartup("b", models.AdmissionPlanMonthly, nil),
		chargeableStartup("c", models.AdmissionPlanMonthly, nil),
	}}
	gw := &fakeGateway{failFor: map[string]error{
		"cus_b": errors.New("card_declined: insufficient funds"),
	}}
	svc, ledger := newTestService(repo, gw, now)

	summary, err := svc.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Charged != 2 || summary.Failed != 1 || summary.Total != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if _, ok := repo.charged["a"]; !ok {
		t.Fatalf("expected a's timestamp updated")
	}
	if _, ok := repo.charged["c"]; !ok {
		t.Fatalf("expected c's timestamp updated")
	}
	if _, ok := repo.charged["b"]; ok {
		t.Fatalf("expected b's timestamp untouched after decline")
	}

	var failedRow *models.AdmissionCharge
	for i := range ledger.entries {
		if ledger.entries[i].Status == models.ChargeStatusFailed {
			failedRow = &ledger.entries[i]
		}
	}
	if failedRow == nil || failedRow.StartupID != "b" || failedRow.FailureReason == "" {
		t.Fatalf("expected a failed ledger row for b with a reason, got %+v", failedRow)
	}
}

func TestRunSkipsNotDue(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * 24 * time.Hour)
	repo := &fakeStartupRepo{startups: []models.Startup{
		chargeableStartup("a", models.AdmissionPlanMonthly, &recent),
	}}
	gw := &fakeGateway{}
	svc, _ := newTestService(repo, gw, now)

	summary, err := svc.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Total != 0 || len(gw.charges) != 0 {
		t.Fatalf("expected no charges, got %+v", summary)
	}
	if summary.Message == "" {
		t.Fatalf("expected explanatory message when nothing is due")
	}
}

func TestRunSingleTarget(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeStartupRepo{startups: []models.Startup{
		chargeableStartup("a", models.AdmissionPlanMonthly, nil),
		chargeableStartup("b", models.AdmissionPlanMonthly, nil),
	}}
	gw := &fakeGateway{}
	svc, _ := newTestService(repo, gw, now)

	summary, err := svc.Run(context.Background(), "b")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Total != 1 || summary.Charged != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(gw.charges) != 1 || gw.charges[0].CustomerID != "cus_b" {
		t.Fatalf("expected only b charged, got %+v", gw.charges)
	}
}

func TestRunUnknownTarget(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeStartupRepo{startups: []models.Startup{
		chargeableStartup("a", models.AdmissionPlanMonthly, nil),
	}}
	svc, _ := newTestService(repo, &fakeGateway{}, now)

	summary, err := svc.Run(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Total != 0 || summary.Message == "" {
		t.Fatalf("expected empty summary with message, got %+v", summary)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	repo := &fakeStartupRepo{}
	svc := NewService(config.Config{}, repo, &fakeLedger{}, &fakeGateway{}, &fakeLocker{})

	if _, err := svc.Run(context.Background(), ""); !errors.Is(err, config.ErrStripeSecretKeyInvalid) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunLockBusy(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeStartupRepo{startups: []models.Startup{
		chargeableStartup("a", models.AdmissionPlanMonthly, nil),
	}}
	svc := NewService(validConfig(), repo, &fakeLedger{}, &fakeGateway{}, &fakeLocker{busy: true})
	svc.now = func() time.Time { return now }

	if _, err := svc.Run(context.Background(), ""); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}
