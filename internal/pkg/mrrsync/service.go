// Package mrrsync implements the periodic MRR refresh sweep.
package mrrsync

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/gomesmer/mesmer/app/repository"
	"github.com/gomesmer/mesmer/internal/pkg/config"
	"github.com/gomesmer/mesmer/internal/pkg/mrr"
	"github.com/gomesmer/mesmer/internal/pkg/stripegw"
	"github.com/gomesmer/mesmer/internal/pkg/vault"
)

// Summary aggregates one sync invocation.
type Summary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Service re-derives every connected startup's MRR from its own Stripe
// account. Any per-startup failure disconnects that startup and leaves its
// previous MRR untouched; the participant has to resupply a credential.
type Service struct {
	cfg     config.Config
	repo    repository.StartupRepository
	gateway stripegw.Gateway
	now     func() time.Time
}

// NewService wires the sync job from its collaborators.
func NewService(cfg config.Config, repo repository.StartupRepository, gateway stripegw.Gateway) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		gateway: gateway,
		now:     time.Now,
	}
}

// Run sweeps all connected startups. Only configuration errors abort the
// whole run; everything else is absorbed per startup.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	if err := s.cfg.ValidateEncryptionSecret(); err != nil {
		return nil, err
	}

	startups, err := s.repo.ListConnected()
	if err != nil {
		return nil, fmt.Errorf("mrrsync: loading startups failed: %w", err)
	}

	summary := &Summary{}
	for _, startup := range startups {
		summary.Processed++

		if startup.StripeAPIKeyEncrypted == "" {
			log.Errorf("[MRRSync] startup %s: no encrypted key stored", startup.ID)
			s.disconnect(startup.ID)
			summary.Failed++
			continue
		}

		apiKey, err := vault.Decrypt(startup.StripeAPIKeyEncrypted, s.cfg.EncryptionSecret)
		if err != nil {
			log.Errorf("[MRRSync] startup %s: decrypt failed: %v", startup.ID, err)
			s.disconnect(startup.ID)
			summary.Failed++
			continue
		}

		subs, err := s.gateway.ListActiveSubscriptions(ctx, apiKey)
		if err != nil {
			// Auth failures and transient errors both disconnect; the
			// participant resupplies a key either way.
			log.Errorf("[MRRSync] startup %s: stripe failed: %v", startup.ID, err)
			s.disconnect(startup.ID)
			summary.Failed++
			continue
		}

		monthly := mrr.Compute(subs)
		if err := s.repo.UpdateMRR(startup.ID, monthly, s.now()); err != nil {
			log.Errorf("[MRRSync] startup %s: update failed: %v", startup.ID, err)
			summary.Failed++
			continue
		}
		summary.Updated++
	}

	log.Infof("[MRRSync] run complete: processed=%d updated=%d failed=%d", summary.Processed, summary.Updated, summary.Failed)
	return summary, nil
}

func (s *Service) disconnect(id string) {
	if err := s.repo.MarkDisconnected(id); err != nil {
		log.Errorf("[MRRSync] startup %s: marking disconnected failed: %v", id, err)
	}
}
