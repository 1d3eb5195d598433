package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/gomesmer/mesmer/app/repository"
	"github.com/gomesmer/mesmer/internal/pkg/admission"
	"github.com/gomesmer/mesmer/internal/pkg/cache"
	"github.com/gomesmer/mesmer/internal/pkg/config"
	"github.com/gomesmer/mesmer/internal/pkg/mrrsync"
	"github.com/gomesmer/mesmer/internal/pkg/stripegw"
)

type chargeAdmissionRequest struct {
	StartupID string `json:"startup_id"`
}

// HandleChargeAdmission runs the admission-fee scheduler for all due
// startups, or a single one when the body names it. Caller authorization
// happens in the router.
func HandleChargeAdmission(c *fiber.Ctx) error {
	cfg := config.Load()

	var req chargeAdmissionRequest
	if len(c.Body()) > 0 {
		// An empty or invalid body means a full run.
		_ = c.BodyParser(&req)
	}

	repos := repository.GetGlobalRepositories()
	svc := admission.NewService(cfg, repos.Startup, repos.AdmissionCharge, stripegw.New(cfg.StripeSecretKey), cache.NewJobLock())

	summary, err := svc.Run(c.UserContext(), req.StartupID)
	if err != nil {
		if errors.Is(err, admission.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "An admission run is already in progress",
			})
		}
		log.Errorf("[ChargeAdmission] run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Charge admission run failed",
		})
	}

	cacheLastRun("admission:last_run", summary)
	return c.JSON(summary)
}

// HandleSyncMRR refreshes every connected startup's MRR figure.
func HandleSyncMRR(c *fiber.Ctx) error {
	cfg := config.Load()

	repos := repository.GetGlobalRepositories()
	svc := mrrsync.NewService(cfg, repos.Startup, stripegw.New(cfg.StripeSecretKey))

	summary, err := svc.Run(c.UserContext())
	if err != nil {
		log.Errorf("[SyncMRR] run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "MRR sync run failed",
		})
	}

	cacheLastRun("mrrsync:last_run", summary)
	return c.JSON(summary)
}

// cacheLastRun keeps the most recent run summary available for operators.
// Best-effort; a cache miss or failure never affects the response.
func cacheLastRun(key string, summary interface{}) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := cache.Set(key, payload, 24*time.Hour); err != nil {
		log.Warnf("[Jobs] caching %s failed: %v", key, err)
	}
}
