// Package dspnet fetches raw daily feeds from the dspnet weather-station
// endpoint, which serves one CSV row per sample for a site/device/day.
package dspnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls retry behaviour for transient upstream failures.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Client fetches daily feed text over HTTP with retries, exponential
// backoff, and a circuit breaker around the station endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	site    int
	device  int
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

func New(client *http.Client, baseURL string, site, device int) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dspnet",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		client:  client,
		baseURL: baseURL,
		site:    site,
		device:  device,
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: cb,
	}
}

// FetchDay returns the raw feed body for the given calendar day. The
// endpoint addresses days as separate Year/Mon/Day parameters with
// zero-padded month and day.
func (c *Client) FetchDay(ctx context.Context, day time.Time) (string, error) {
	values := url.Values{}
	values.Set("Site", fmt.Sprintf("%d", c.site))
	values.Set("Dev", fmt.Sprintf("%d", c.device))
	values.Set("Year", fmt.Sprintf("%d", day.Year()))
	values.Set("Mon", fmt.Sprintf("%02d", int(day.Month())))
	values.Set("Day", fmt.Sprintf("%02d", day.Day()))

	u := fmt.Sprintf("%s/dspnet.aspx?%s", c.baseURL, values.Encode())

	resp, err := c.doWithResilience(ctx, u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}
	return string(body), nil
}

// doWithResilience executes the request through the circuit breaker,
// retrying with exponential backoff until the retry budget is spent.
func (c *Client) doWithResilience(ctx context.Context, u string) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return nil, lastErr
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
