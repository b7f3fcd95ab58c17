package service

import (
	"context"
	"fmt"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

const usageAlertThreshold = 0.8

// SubscriptionService owns the provider subscription lifecycle and the
// monthly usage tracking that backs the booking ceiling gate.
type SubscriptionService struct {
	providers       domain.ProviderRepository
	notifier        *NotificationService
	limits          domain.TierLimits
	gracePeriodDays int
	logger          *zerolog.Logger
}

func NewSubscriptionService(
	providers domain.ProviderRepository,
	notifier *NotificationService,
	limits domain.TierLimits,
	gracePeriodDays int,
	logger *zerolog.Logger,
) *SubscriptionService {
	if gracePeriodDays <= 0 {
		gracePeriodDays = 7
	}
	return &SubscriptionService{
		providers:       providers,
		notifier:        notifier,
		limits:          limits,
		gracePeriodDays: gracePeriodDays,
		logger:          logger,
	}
}

// CreateProvider registers a provider on the BASIC tier unless another tier
// is given.
func (s *SubscriptionService) CreateProvider(ctx context.Context, provider *models.Provider) error {
	if provider.Name == "" || provider.Email == "" {
		return domain.Invalid("provider name and email are required")
	}
	switch provider.SubscriptionTier {
	case "", models.TierBasic, models.TierProfessional, models.TierEnterprise:
	default:
		return domain.Invalid("unknown subscription tier %q", provider.SubscriptionTier)
	}
	return s.providers.CreateProvider(ctx, provider)
}

// CheckGate runs the standalone usage gate for a provider: subscription
// status, monthly ceiling, payout linkage. The booking transaction re-runs
// the same checks; this variant serves pre-flight queries.
func (s *SubscriptionService) CheckGate(ctx context.Context, providerID int64) error {
	provider, err := s.providers.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}
	return domain.CheckProviderSubscription(provider, s.limits)
}

// Usage describes a provider's position against its tier ceiling.
type Usage struct {
	ProviderID int64   `json:"provider_id"`
	Tier       string  `json:"tier"`
	Used       int     `json:"used"`
	Ceiling    int     `json:"ceiling"`
	Unbounded  bool    `json:"unbounded"`
	Percent    float64 `json:"percent"`
}

func (s *SubscriptionService) UsageSummary(ctx context.Context, providerID int64) (*Usage, error) {
	provider, err := s.providers.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	usage := &Usage{
		ProviderID: provider.ID,
		Tier:       provider.SubscriptionTier,
		Used:       provider.MonthlyBookings,
	}
	ceiling, bounded := s.limits.CeilingFor(provider.SubscriptionTier)
	if !bounded {
		usage.Unbounded = true
		return usage, nil
	}
	usage.Ceiling = ceiling
	usage.Percent = float64(usage.Used) / float64(ceiling)
	return usage, nil
}

// TrackUsage checks a provider's position against its ceiling and sends a
// usage alert when past the threshold, at most once per cooldown window.
func (s *SubscriptionService) TrackUsage(ctx context.Context, providerID int64) {
	usage, err := s.UsageSummary(ctx, providerID)
	if err != nil {
		s.logger.Error().Err(err).Int64("provider_id", providerID).Msg("usage summary error")
		return
	}
	if usage.Unbounded || usage.Percent < usageAlertThreshold {
		return
	}

	provider, err := s.providers.GetProvider(ctx, providerID)
	if err != nil {
		return
	}
	message := fmt.Sprintf("You have used %d of %d bookings on your %s plan this month",
		usage.Used, usage.Ceiling, usage.Tier)
	sent := s.notifier.NotifyWithCooldown(ctx, provider.ID, provider.Email,
		models.NotifyUsageAlert, "Booking Limit Approaching", message,
		models.UsageAlertCooldownHours*time.Hour)
	if sent {
		s.logger.Info().
			Int64("provider_id", providerID).
			Int("used", usage.Used).
			Int("ceiling", usage.Ceiling).
			Msg("usage alert sent")
	}
}

// Activate starts or renews a provider's subscription for one month.
func (s *SubscriptionService) Activate(ctx context.Context, providerID int64) error {
	ends := time.Now().AddDate(0, 1, 0)
	if err := s.providers.ActivateSubscription(ctx, providerID, ends); err != nil {
		return err
	}
	s.logger.Info().Int64("provider_id", providerID).Time("ends", ends).Msg("subscription activated")
	return nil
}

// LinkProcessor attaches a payout processor account. Linking one processor
// detaches the other, so Processor() resolution stays unambiguous.
func (s *SubscriptionService) LinkProcessor(ctx context.Context, providerID int64, kind models.ProcessorKind, accountID string) error {
	if accountID == "" {
		return domain.Invalid("processor account id is required")
	}
	return s.providers.SetProcessorAccount(ctx, providerID, models.Processor{Kind: kind, AccountID: accountID})
}

// SweepLapsed demotes providers whose paid period has ended: into
// GRACE_PERIOD while within the grace window, then PAST_DUE. Returns how
// many providers changed status.
func (s *SubscriptionService) SweepLapsed(ctx context.Context, asOf time.Time) (int, error) {
	lapsed, err := s.providers.LapsedProviders(ctx, asOf)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, p := range lapsed {
		target := models.SubscriptionGracePeriod
		if asOf.After(p.SubscriptionEnds.AddDate(0, 0, s.gracePeriodDays)) {
			target = models.SubscriptionPastDue
		}
		if p.SubscriptionStatus == target {
			continue
		}
		if err := s.providers.SetSubscriptionStatus(ctx, p.ID, target); err != nil {
			s.logger.Error().Err(err).Int64("provider_id", p.ID).Msg("subscription sweep error")
			continue
		}
		s.logger.Info().
			Int64("provider_id", p.ID).
			Str("from", p.SubscriptionStatus).
			Str("to", target).
			Msg("subscription lapsed")
		changed++
	}
	return changed, nil
}
