package turnkey

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Eliascm17/turnkey/pkg/log"
	"github.com/Eliascm17/turnkey/pkg/stamp"
)

// transport sends stamped requests to the service. It performs exactly one
// attempt per call: submissions are not idempotent, so retrying belongs to
// the poll loop, which only ever repeats reads.
type transport struct {
	baseURL string
	stamper *stamp.Stamper
	hc      *http.Client
	lg      log.Logger
	metrics *Metrics
}

// post stamps the body, sends it, and returns the raw response bytes. The
// body is transmitted byte-for-byte as stamped. Connection-level faults are
// classified as NetworkError, non-2xx statuses as HTTPError with the
// service's error payload decoded when present.
func (t *transport) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header, err := t.stamper.Stamp(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(stamp.HeaderName, header)

	start := time.Now()
	res, err := t.hc.Do(req)
	if err != nil {
		t.metrics.observeRequest(path, 0, time.Since(start))
		return nil, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	t.metrics.observeRequest(path, res.StatusCode, time.Since(start))
	if err != nil {
		return nil, &NetworkError{Err: errors.Wrap(err, "reading response body")}
	}

	t.lg.Debug("request completed",
		"path", path,
		"status", res.StatusCode,
		"durationMs", time.Since(start).Milliseconds(),
	)

	if res.StatusCode < http.StatusOK || res.StatusCode > 299 {
		httpErr := &HTTPError{Status: res.StatusCode, Body: resBody}
		var resErr ResponseError
		if json.Unmarshal(resBody, &resErr) == nil && resErr.Message != "" {
			httpErr.Response = &resErr
		}
		return nil, httpErr
	}

	return resBody, nil
}
