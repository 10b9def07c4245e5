package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/thaipay/slipverify/internal/emvqr"
	"github.com/thaipay/slipverify/internal/logging"
	"github.com/thaipay/slipverify/internal/metrics"
	"github.com/thaipay/slipverify/internal/notification"
)

const (
	goodPayload = "00020101021229370016A0000006770101110113006689512345653037645406100.005802TH5913SOMCHAI STORE6304FAC6"
	receiverID  = "0066895123456"
)

type recordingNotifier struct {
	messages []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, message notification.Message) error {
	n.messages = append(n.messages, message)
	return nil
}

func setupService(t *testing.T, notifier notification.Notifier) (*Service, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	svc := NewService(NewMemoryRepository(), cache, notifier, metrics.New(),
		Settings{ReceiverID: receiverID, CacheTTL: time.Minute}, logging.Discard())

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return svc, cleanup
}

func TestServiceVerifyPersistsRecord(t *testing.T) {
	svc, cleanup := setupService(t, nil)
	defer cleanup()
	ctx := context.Background()

	res, err := svc.Verify(ctx, VerifyInput{OrderRef: "order-1", Payload: goodPayload, ExpectedAmount: 100.00})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Record.Status != emvqr.StatusVerifiedPrelim {
		t.Fatalf("expected VERIFIED_PRELIM, got %s (%s)", res.Record.Status, res.Record.Reason)
	}
	if res.CacheHit {
		t.Fatal("first verification should not be a cache hit")
	}
	if res.Record.PayloadHash == "" {
		t.Fatal("expected a payload fingerprint")
	}

	fetched, err := svc.Get(ctx, res.Record.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if fetched.Status != res.Record.Status || fetched.OrderRef != "order-1" {
		t.Fatalf("stored record mismatch: %+v", fetched)
	}
}

func TestServiceVerifyCachesVerdict(t *testing.T) {
	svc, cleanup := setupService(t, nil)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.Verify(ctx, VerifyInput{OrderRef: "order-1", Payload: goodPayload, ExpectedAmount: 100.00})
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}

	second, err := svc.Verify(ctx, VerifyInput{OrderRef: "order-1", Payload: goodPayload, ExpectedAmount: 100.00})
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("identical re-verification should hit the cache")
	}
	if second.Record.Status != first.Record.Status {
		t.Fatalf("cached verdict diverged: %s vs %s", second.Record.Status, first.Record.Status)
	}
	if second.Record.ID == first.Record.ID {
		t.Fatal("each attempt should get its own audit record")
	}

	// A different expected amount is a different decision; no cache reuse.
	third, err := svc.Verify(ctx, VerifyInput{OrderRef: "order-1", Payload: goodPayload, ExpectedAmount: 250.00})
	if err != nil {
		t.Fatalf("third verify: %v", err)
	}
	if third.CacheHit {
		t.Fatal("changed amount must not reuse the cached verdict")
	}
	if third.Record.Status != emvqr.StatusReview {
		t.Fatalf("expected REVIEW for wrong amount, got %s", third.Record.Status)
	}
}

func TestServiceVerifyFlagsReviewAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, cleanup := setupService(t, notifier)
	defer cleanup()

	res, err := svc.Verify(context.Background(), VerifyInput{OrderRef: "order-2", Payload: "", ExpectedAmount: 100.00})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Record.Status != emvqr.StatusReview {
		t.Fatalf("expected REVIEW, got %s", res.Record.Status)
	}
	if res.Record.Reason != emvqr.ReasonInvalidQR {
		t.Fatalf("unexpected reason: %s", res.Record.Reason)
	}
	if len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindSlipReview {
		t.Fatalf("expected one review notification, got %+v", notifier.messages)
	}
}

func TestServiceVerifyWithoutCache(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil, nil,
		Settings{ReceiverID: receiverID, CacheTTL: time.Minute}, logging.Discard())

	res, err := svc.Verify(context.Background(), VerifyInput{OrderRef: "order-3", Payload: goodPayload, ExpectedAmount: 100.00})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Record.Status != emvqr.StatusVerifiedPrelim {
		t.Fatalf("expected VERIFIED_PRELIM, got %s", res.Record.Status)
	}
}

func TestServiceGetUnknownRecord(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil, nil, Settings{}, logging.Discard())

	if _, err := svc.Get(context.Background(), "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
