package app

import (
	"context"
	"time"

	"github.com/bft-labs/ddship/internal/domain"
	"github.com/bft-labs/ddship/internal/ports"
)

// DeliveryClient owns the retry state machine around posting one batch.
type DeliveryClient struct {
	sender  ports.BatchSender
	policy  RetryPolicy
	timeout time.Duration
	logger  ports.Logger
	emitter ports.EventEmitter
}

// NewDeliveryClient creates a delivery client.
// timeout bounds each individual attempt; zero disables the bound.
func NewDeliveryClient(
	sender ports.BatchSender,
	policy RetryPolicy,
	timeout time.Duration,
	logger ports.Logger,
	emitter ports.EventEmitter,
) *DeliveryClient {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if emitter == nil {
		emitter = ports.NopEmitter{}
	}
	return &DeliveryClient{
		sender:  sender,
		policy:  policy,
		timeout: timeout,
		logger:  logger,
		emitter: emitter,
	}
}

// Deliver posts the batch, retrying retryable failures with backoff.
// Backoff waits end early once hurry is closed. Cancelling ctx abandons the
// batch. Every failure is reported through the event emitter; nothing is
// returned to the code that produced the records.
func (c *DeliveryClient) Deliver(ctx context.Context, hurry <-chan struct{}, batch *domain.Batch) domain.DeliveryResult {
	start := time.Now()
	bo := newBackoff(c.policy)
	res := domain.DeliveryResult{
		BatchID: batch.ID.String(),
		Records: batch.Size(),
	}

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt

		resp, err := c.attempt(ctx, batch)
		if resp != nil {
			res.StatusCode = resp.StatusCode
		}

		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return c.fail(res, domain.OutcomeAbandoned, start)
		}

		class := domain.Classify(resp, err)
		if class == domain.ClassSuccess {
			res.Outcome = domain.OutcomeDelivered
			res.Err = nil
			res.Duration = time.Since(start)
			c.logger.Debug("sent batch",
				ports.String("batch", res.BatchID),
				ports.Int("records", res.Records),
				ports.Int("attempts", res.Attempts),
				ports.Duration("duration", res.Duration),
			)
			c.emitter.OnDeliverySuccess(res)
			return res
		}

		if err == nil {
			err = domain.ResponseError(resp)
		}
		res.Err = err

		if class == domain.ClassTerminal {
			return c.fail(res, domain.OutcomeRejected, start)
		}
		if attempt >= c.policy.MaxAttempts {
			return c.fail(res, domain.OutcomeExhausted, start)
		}

		delay := bo.Next()
		c.logger.Warn("send failed, retrying",
			ports.Err(err),
			ports.String("batch", res.BatchID),
			ports.Int("attempt", attempt),
			ports.Duration("backoff", delay),
		)
		if err := sleep(ctx, hurry, delay); err != nil {
			res.Err = err
			return c.fail(res, domain.OutcomeAbandoned, start)
		}
	}
}

// attempt performs a single bounded send.
func (c *DeliveryClient) attempt(ctx context.Context, batch *domain.Batch) (*domain.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.sender.Send(ctx, batch)
}

func (c *DeliveryClient) fail(res domain.DeliveryResult, outcome domain.Outcome, start time.Time) domain.DeliveryResult {
	res.Outcome = outcome
	res.Duration = time.Since(start)
	c.logger.Error("batch dropped",
		ports.Err(res.Err),
		ports.String("batch", res.BatchID),
		ports.String("outcome", outcome.String()),
		ports.Int("records", res.Records),
		ports.Int("attempts", res.Attempts),
		ports.Int("status", res.StatusCode),
	)
	c.emitter.OnDeliveryFailure(res)
	return res
}
