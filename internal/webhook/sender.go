package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxResponseBody bounds how much of a response is read before discarding.
const maxResponseBody = 4096

// StatusError reports a non-2xx response from the endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook endpoint returned status %d", e.Code)
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Delivery is one signed POST.
type Delivery struct {
	ID    string
	Event string
	Body  []byte
}

// Sender posts signed deliveries to one endpoint and retries transient
// failures.
type Sender struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
	now    func() time.Time
}

// Option customises a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRetryDelays replaces DefaultRetryDelays. An empty schedule disables
// retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(s *Sender) {
		s.delays = append([]time.Duration{}, delays...)
	}
}

// WithClock overrides the time source used for signature timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSender creates a Sender for targetURL signed with secret. The URL is
// not validated here; callers run ValidateTargetURL when the endpoint is
// user supplied.
func NewSender(targetURL, secret string, opts ...Option) *Sender {
	s := &Sender{
		url:    targetURL,
		secret: secret,
		client: NewHTTPClient(),
		delays: DefaultRetryDelays,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Host returns the endpoint host for logging.
func (s *Sender) Host() string {
	return ExtractHost(s.url)
}

// Send delivers d, retrying network errors, 5xx and 429 responses until the
// schedule is exhausted or ctx is done. Each attempt is signed afresh.
func (s *Sender) Send(ctx context.Context, d Delivery) error {
	maxAttempts := len(s.delays) + 1

	var lastErr error
	for attempt := 0; !IsExhausted(attempt, maxAttempts); attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(NextRetryDelay(s.delays, attempt-1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = s.attempt(ctx, d)
		if lastErr == nil {
			return nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("delivery %s failed after %d attempts: %w", d.ID, maxAttempts, lastErr)
}

func (s *Sender) attempt(ctx context.Context, d Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(d.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	timestamp := s.now().Unix()
	SetWebhookHeaders(req, HTTPHeaders{
		Signature:  GenerateSignature(s.secret, timestamp, d.Body),
		Timestamp:  strconv.FormatInt(timestamp, 10),
		DeliveryID: d.ID,
		Event:      d.Event,
	})

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
