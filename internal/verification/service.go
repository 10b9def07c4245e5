package verification

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/thaipay/slipverify/internal/emvqr"
	"github.com/thaipay/slipverify/internal/metrics"
	"github.com/thaipay/slipverify/internal/notification"
)

const verdictCachePrefix = "slipverify:verdict:v1:"

// Settings carries the policy configuration the checkout flow supplies.
type Settings struct {
	// ReceiverID is the configured payment-receiver identifier (PromptPay
	// proxy). Empty disables the account check.
	ReceiverID string

	// CacheTTL bounds how long a verdict is reused for an identical
	// payload/amount pair.
	CacheTTL time.Duration
}

// Service runs slip verifications, keeps the audit trail and caches
// verdicts so a re-uploaded slip does not re-run the policy.
type Service struct {
	repo     Repository
	cache    *redis.Client
	notifier notification.Notifier
	metrics  *metrics.Metrics
	settings Settings
	logger   *slog.Logger
}

// NewService constructs a verification service.
func NewService(repo Repository, cache *redis.Client, notifier notification.Notifier, m *metrics.Metrics, settings Settings, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, notifier: notifier, metrics: m, settings: settings, logger: logger}
}

// VerifyInput captures one slip verification request.
type VerifyInput struct {
	OrderRef       string
	Payload        string
	ExpectedAmount float64
}

// VerifyResult is the outcome of a verification call.
type VerifyResult struct {
	Record   Record
	CacheHit bool
}

// cachedVerdict is the Redis representation of a prior verdict.
type cachedVerdict struct {
	Status emvqr.VerdictStatus `json:"status"`
	Reason string              `json:"reason,omitempty"`
}

// Verify checks the payload against the expected payment, persists an
// audit record and returns it. Every call writes its own record, cache
// hit or not, so the trail reflects each upload attempt.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (VerifyResult, error) {
	cacheKey := verdictCachePrefix + fingerprint(input.Payload, s.settings.ReceiverID, fmt.Sprintf("%.2f", input.ExpectedAmount))

	var verdict emvqr.Verdict
	cacheHit := false
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var stored cachedVerdict
			if err := json.Unmarshal([]byte(cached), &stored); err == nil {
				verdict = emvqr.Verdict{Status: stored.Status, Reason: stored.Reason}
				cacheHit = true
			}
		} else if err != redis.Nil {
			s.logger.Warn("verdict cache lookup failed", "error", err)
		}
	}

	if !cacheHit {
		verdict = emvqr.VerifySlip(input.Payload, s.settings.ReceiverID, input.ExpectedAmount)
	}

	record := Record{
		ID:             uuid.NewString(),
		OrderRef:       input.OrderRef,
		PayloadHash:    fingerprint(input.Payload),
		Status:         verdict.Status,
		Reason:         verdict.Reason,
		ExpectedAmount: input.ExpectedAmount,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return VerifyResult{}, fmt.Errorf("persist verification record: %w", err)
	}

	if s.cache != nil && !cacheHit {
		payload, _ := json.Marshal(cachedVerdict{Status: verdict.Status, Reason: verdict.Reason})
		if err := s.cache.Set(ctx, cacheKey, payload, s.settings.CacheTTL).Err(); err != nil {
			s.logger.Warn("verdict cache store failed", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.Verdicts.WithLabelValues(string(verdict.Status)).Inc()
		if cacheHit {
			s.metrics.CacheHits.Inc()
		}
	}

	if verdict.Status == emvqr.StatusReview && s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindSlipReview,
			Destination: input.OrderRef,
			Body:        fmt.Sprintf("slip for order %s flagged for review: %s", input.OrderRef, verdict.Reason),
		})
	}

	return VerifyResult{Record: record, CacheHit: cacheHit}, nil
}

// Get fetches a verification audit record.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

// fingerprint hashes the given parts into a hex BLAKE2b-256 digest.
func fingerprint(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
