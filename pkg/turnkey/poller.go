package turnkey

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// errStillPending drives the retry schedule while the activity has not
// reached a terminal state.
var errStillPending = errors.New("activity not yet terminal")

// submit sends one activity request. Exactly one attempt: a submission is
// not idempotent, so a failure here is fatal for the call.
func (c *Client) submit(ctx context.Context, path string, req activityRequest) (*Activity, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encoding activity request")
	}

	raw, err := c.transport.post(ctx, path, body)
	if err != nil {
		return nil, err
	}

	var res activityResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "decoding activity response")
	}
	return &res.Activity, nil
}

// getActivity fetches the current state of an activity. Reads are
// idempotent, so the poll loop may repeat this freely.
func (c *Client) getActivity(ctx context.Context, activityID string) (*Activity, error) {
	body, err := json.Marshal(getActivityRequest{
		OrganizationID: c.cfg.OrganizationID,
		ActivityID:     activityID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding get_activity request")
	}

	raw, err := c.transport.post(ctx, endpointGetActivity, body)
	if err != nil {
		return nil, err
	}

	var res activityResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "decoding activity response")
	}
	return &res.Activity, nil
}

// submitAndAwait runs the activity lifecycle: submit once, then poll until
// the service reports a terminal state or the activity timeout elapses.
//
// The service may return a terminal activity directly on submission, in
// which case no polls happen. Otherwise the poll schedule starts at
// PollInterval and doubles up to PollIntervalCap. Transient faults (network
// errors, 5xx) are retried within the budget; a 4xx during polling is fatal
// immediately. When the deadline elapses while the activity is still
// pending, the outcome is unknown and the caller gets ActivityTimeoutError.
func (c *Client) submitAndAwait(ctx context.Context, path string, req activityRequest) (*Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ActivityTimeout)
	defer cancel()

	c.metrics.activitySubmitted(req.Type)

	act, err := c.submit(ctx, path, req)
	if err != nil {
		return nil, err
	}

	lg := c.lg.WithKV("activityId", act.ID)
	lg.Debug("activity submitted", "type", req.Type, "status", act.Status)

	if act.Terminal() {
		return c.finishActivity(act, req.Type, 0)
	}

	backoff := retry.WithCappedDuration(c.cfg.PollIntervalCap, retry.NewExponential(c.cfg.PollInterval))

	polls := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		polls++

		latest, err := c.getActivity(ctx, act.ID)
		if err != nil {
			if retryablePollError(err) {
				lg.Debug("transient poll failure", "attempt", polls, "err", err)
				return retry.RetryableError(err)
			}
			return err
		}

		act = latest
		if !act.Terminal() {
			lg.Debug("activity still pending", "attempt", polls, "status", act.Status)
			return retry.RetryableError(errStillPending)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errStillPending) || errors.Is(err, context.DeadlineExceeded) || retryablePollError(err) {
			c.metrics.activityTimedOut(req.Type)
			lg.Warn("activity still pending at deadline", "timeout", c.cfg.ActivityTimeout, "polls", polls)
			return nil, &ActivityTimeoutError{ActivityID: act.ID, Timeout: c.cfg.ActivityTimeout}
		}
		return nil, err
	}

	return c.finishActivity(act, req.Type, polls)
}

// finishActivity translates a terminal activity into the caller's result.
func (c *Client) finishActivity(act *Activity, activityType string, polls int) (*Activity, error) {
	if act.Failed() {
		c.metrics.activityFailed(activityType)
		cause := ""
		if act.Failure != nil {
			cause = act.Failure.Error()
		}
		return nil, &ActivityFailedError{
			ActivityID:     act.ID,
			ActivityStatus: act.Status,
			Cause:          cause,
		}
	}

	c.metrics.activityCompleted(activityType, polls)
	c.lg.Debug("activity completed", "activityId", act.ID, "polls", polls)
	return act, nil
}

// retryablePollError reports whether a poll failure is safe to retry:
// transient transport faults and 5xx service faults. A 4xx response is a
// definitive rejection of the poll request itself.
func retryablePollError(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return false
}
