package upstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"exam-bridge/internal/errs"
	"exam-bridge/internal/metrics"
)

const maxBodySize = 8 << 20

// Response is a fully read upstream reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends every upstream call exactly once, bounded by a timeout.
type Client struct {
	cli *http.Client
	m   *metrics.Metrics
}

func New(timeout time.Duration, insecureSkipVerify bool, m *metrics.Metrics) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		cli: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
		m: m,
	}
}

// Do sends req and reads the whole body. Transport failures, including
// timeouts, come back as errs.ErrUpstream. Non-2xx statuses are not errors
// here, each caller decides what they mean.
func (c *Client) Do(op string, req *http.Request) (*Response, error) {
	start := time.Now()
	resp, err := c.cli.Do(req)
	took := time.Since(start)
	c.m.UpstreamDuration.WithLabelValues(op).Observe(took.Seconds())

	if err != nil {
		c.m.UpstreamRequests.WithLabelValues(op, "transport_error").Inc()
		log.Debug().Err(err).Str("op", op).Str("host", req.URL.Host).Dur("took", took).Msg("upstream call failed")
		if isTimeout(err) {
			return nil, errs.Upstream("upstream timed out", err)
		}
		return nil, errs.Upstream("upstream unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		c.m.UpstreamRequests.WithLabelValues(op, "transport_error").Inc()
		if isTimeout(err) {
			return nil, errs.Upstream("upstream timed out", err)
		}
		return nil, errs.Upstream("failed to read upstream response", err)
	}
	if len(body) > maxBodySize {
		c.m.UpstreamRequests.WithLabelValues(op, "too_large").Inc()
		log.Warn().Str("op", op).Str("host", req.URL.Host).Int("limit", maxBodySize).Msg("upstream response too large")
		return nil, errs.Upstream("upstream response too large", nil)
	}

	r := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	outcome := "ok"
	if !r.OK() {
		outcome = "http_error"
	}
	c.m.UpstreamRequests.WithLabelValues(op, outcome).Inc()

	log.Debug().
		Str("op", op).
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Dur("took", took).
		Msg("upstream call")

	return r, nil
}

// CloseIdleConnections drops kept-alive connections to the upstream hosts.
func (c *Client) CloseIdleConnections() {
	c.cli.CloseIdleConnections()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// BaseURL builds scheme://host for a school server.
func BaseURL(scheme, host string) string {
	return fmt.Sprintf("%s://%s", scheme, host)
}
