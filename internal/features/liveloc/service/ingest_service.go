package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"delivery-tracker/internal/core/logger"
	"delivery-tracker/internal/features/liveloc/domain"
	"delivery-tracker/internal/features/liveloc/ports"
	"delivery-tracker/internal/features/liveloc/throttle"
	odomain "delivery-tracker/internal/features/orders/domain"
	oports "delivery-tracker/internal/features/orders/ports"
)

// IngestResult reports what happened to one accepted sample. The caller
// acknowledges the driver either way; these fields exist for the response
// body and the logs, not for error handling.
type IngestResult struct {
	Broadcast domain.Broadcast
	Decision  throttle.Decision
	Delivered int
	Persisted bool
}

// IngestService runs the live location pipeline: validate, authorize,
// broadcast to watchers, then decide whether the sample earns a durable
// write. Broadcast always happens first so watchers see every sample even
// when persistence throttles or fails.
type IngestService struct {
	repo        oports.OrderRepository
	throttler   *throttle.Throttler
	broadcaster ports.Broadcaster

	writeTimeout time.Duration
	minGapWarn   time.Duration
	now          func() time.Time

	lastSeen sync.Map // orderID -> time.Time of the previous accepted sample
}

// NewIngestService creates the pipeline. writeTimeout bounds the durable
// write; minGapWarn is the diagnostic threshold for suspiciously rapid
// senders (zero disables the warning).
func NewIngestService(repo oports.OrderRepository, throttler *throttle.Throttler, broadcaster ports.Broadcaster, writeTimeout, minGapWarn time.Duration) *IngestService {
	return &IngestService{
		repo:         repo,
		throttler:    throttler,
		broadcaster:  broadcaster,
		writeTimeout: writeTimeout,
		minGapWarn:   minGapWarn,
		now:          time.Now,
	}
}

// IngestDriverSample processes one driver position report. Validation and
// authorization failures are returned; everything past that point succeeds
// from the driver's perspective, with persistence problems logged only.
func (s *IngestService) IngestDriverSample(ctx context.Context, sample domain.Sample, callerID, callerPhone string) (IngestResult, error) {
	log := logger.Get()

	if err := sample.Validate(); err != nil {
		return IngestResult{}, err
	}

	order, err := s.repo.Get(ctx, sample.OrderID)
	if err != nil {
		return IngestResult{}, err
	}
	if err := odomain.AuthorizeDriverMutation(order, callerID, callerPhone); err != nil {
		return IngestResult{}, err
	}

	now := s.now()
	s.warnOnRapidSamples(sample.OrderID, now, log)

	result := IngestResult{
		Broadcast: domain.Broadcast{
			OrderID:   sample.OrderID,
			Lat:       sample.Lat,
			Lng:       sample.Lng,
			UpdatedAt: now,
		},
	}
	result.Delivered = s.broadcaster.Publish(result.Broadcast)

	decision, err := s.throttler.Decide(ctx, sample.OrderID, sample.Lat, sample.Lng, now)
	if err != nil {
		log.Warn("throttle state unavailable, persisting sample",
			zap.String("order_id", sample.OrderID),
			zap.Error(err))
	}
	result.Decision = decision
	if decision != throttle.DecisionPersist {
		return result, nil
	}

	result.Persisted = s.persist(ctx, order, sample, now, log)
	return result, nil
}

// persist performs the bounded durable write. Failures are logged and leave
// the throttle state untouched so the next sample retries.
func (s *IngestService) persist(ctx context.Context, order *odomain.Order, sample domain.Sample, now time.Time, log *zap.Logger) bool {
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if !order.ApplyDriverLocation(sample.Lat, sample.Lng, now) {
		return false
	}
	if err := s.repo.Update(writeCtx, order); err != nil {
		log.Error("failed to persist driver location",
			zap.String("order_id", sample.OrderID),
			zap.Error(err))
		return false
	}
	if err := s.throttler.MarkPersisted(writeCtx, sample.OrderID, sample.Lat, sample.Lng, now); err != nil {
		log.Warn("failed to record throttle state",
			zap.String("order_id", sample.OrderID),
			zap.Error(err))
	}
	return true
}

func (s *IngestService) warnOnRapidSamples(orderID string, now time.Time, log *zap.Logger) {
	if s.minGapWarn <= 0 {
		return
	}
	prev, loaded := s.lastSeen.Swap(orderID, now)
	if !loaded {
		return
	}
	if gap := now.Sub(prev.(time.Time)); gap >= 0 && gap < s.minGapWarn {
		log.Warn("driver sending samples faster than expected",
			zap.String("order_id", orderID),
			zap.Duration("gap", gap))
	}
}

// CurrentLocation returns the last durably persisted driver position, or nil
// when none has been written yet.
func (s *IngestService) CurrentLocation(ctx context.Context, orderID string) (*odomain.Location, error) {
	if orderID == "" {
		return nil, odomain.ErrNotFound
	}
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order.CurrentLocation, nil
}

// SetUserLocation records the customer's position on the order. It is low
// frequency, bypasses the throttler entirely, and requires nothing beyond the
// order existing.
func (s *IngestService) SetUserLocation(ctx context.Context, sample domain.Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	order, err := s.repo.Get(ctx, sample.OrderID)
	if err != nil {
		return err
	}
	order.SetUserLocation(sample.Lat, sample.Lng)
	return s.repo.Update(ctx, order)
}
