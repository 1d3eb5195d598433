package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/gomesmer/mesmer/app/models"
	"github.com/gomesmer/mesmer/app/repository"
	"github.com/gomesmer/mesmer/internal/pkg/config"
	"github.com/gomesmer/mesmer/internal/pkg/mail"
	"github.com/gomesmer/mesmer/internal/pkg/mrr"
	"github.com/gomesmer/mesmer/internal/pkg/stripegw"
	"github.com/gomesmer/mesmer/internal/pkg/vault"
)

// HandleOnboard accepts a new league signup: verifies the submitted Stripe
// restricted key by fetching MRR once, encrypts it, optionally saves a
// payment method, and creates the startup record.
func HandleOnboard(c *fiber.Ctx) error {
	cfg := config.Load()
	if err := cfg.ValidateEncryptionSecret(); err != nil {
		log.Errorf("[Onboard] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server configuration error",
		})
	}

	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))
	stripeKey := strings.TrimSpace(c.FormValue("stripe_key"))
	paymentMethodID := strings.TrimSpace(c.FormValue("payment_method_id"))
	logoURL := strings.TrimSpace(c.FormValue("logo_url"))
	isAnonymous := parseCheckbox(c.FormValue("anonymous"))
	interestedInAccelerator := parseCheckbox(c.FormValue("interested_accelerator"))
	admissionPlan := models.NormalizeAdmissionPlan(strings.TrimSpace(c.FormValue("admission_plan")))

	if name == "" || email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Company name and email are required",
		})
	}
	if !strings.HasPrefix(stripeKey, "rk_live_") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Use a Stripe restricted live key (rk_live_...) with Subscriptions: Read. Create under Developers → API keys → Restricted keys.",
		})
	}

	gateway := stripegw.New(cfg.StripeSecretKey)

	// Verify the key really works before storing anything.
	subs, err := gateway.ListActiveSubscriptions(c.UserContext(), stripeKey)
	if err != nil {
		if stripegw.IsAuthentication(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid Stripe API key",
			})
		}
		log.Errorf("[Onboard] subscription fetch failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to fetch subscriptions",
		})
	}
	currentMRR := mrr.Compute(subs)

	encryptedKey, err := vault.Encrypt(stripeKey, cfg.EncryptionSecret)
	if err != nil {
		log.Errorf("[Onboard] encrypt failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server configuration error",
		})
	}

	var customerID, savedPaymentMethodID *string
	if paymentMethodID != "" && cfg.ValidateStripeSecretKey() == nil {
		cid, err := gateway.CreateCustomer(c.UserContext(), email, name)
		if err == nil {
			err = gateway.AttachPaymentMethod(c.UserContext(), cid, paymentMethodID)
		}
		if err == nil {
			err = gateway.SetDefaultPaymentMethod(c.UserContext(), cid, paymentMethodID)
		}
		if err != nil {
			log.Errorf("[Onboard] customer/payment attach failed: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Payment method could not be saved. Please try again.",
			})
		}
		customerID = &cid
		savedPaymentMethodID = &paymentMethodID
	}

	now := time.Now()
	startup := &models.Startup{
		Name:                    name,
		Email:                   email,
		LogoURL:                 logoURL,
		IsAnonymous:             isAnonymous,
		InterestedInAccelerator: interestedInAccelerator,
		StripeAPIKeyEncrypted:   encryptedKey,
		StripeConnected:         true,
		CurrentMRR:              currentMRR,
		MRRLastUpdatedAt:        &now,
		StripeCustomerID:        customerID,
		StripePaymentMethodID:   savedPaymentMethodID,
		AdmissionPlan:           admissionPlan,
	}
	if err := startup.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid signup data",
		})
	}

	if err := repository.GetGlobalFactory().GetStartupRepository().Create(startup); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "This email is already registered",
			})
		}
		log.Errorf("[Onboard] insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database insert failed",
		})
	}

	// Emails are best-effort; a mail failure never fails the signup.
	if err := mail.SendSignupNotification(name, email, currentMRR, isAnonymous, interestedInAccelerator); err != nil {
		log.Errorf("[Onboard] signup notify email failed: %v", err)
	}
	if err := mail.SendSignupConfirmation(name, email); err != nil {
		log.Errorf("[Onboard] signup confirmation email failed: %v", err)
	}

	return c.JSON(fiber.Map{"success": true, "id": startup.ID})
}

// HandleSetupIntent returns a SetupIntent client secret so the front-end can
// collect a card before onboarding.
func HandleSetupIntent(c *fiber.Ctx) error {
	cfg := config.Load()
	if err := cfg.ValidateStripeSecretKey(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "STRIPE_SECRET_KEY not configured",
		})
	}

	clientSecret, err := stripegw.New(cfg.StripeSecretKey).CreateSetupIntent(c.UserContext())
	if err != nil {
		log.Errorf("[SetupIntent] create failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not create setup intent",
		})
	}

	return c.JSON(fiber.Map{"client_secret": clientSecret})
}

func parseCheckbox(v string) bool {
	return v == "1" || v == "true"
}
