package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Gateway delivers a message to a mobile number. Delivery is fire-and-forget
// from the pipeline's perspective; a failure is reported but never rolls back
// the stored code.
type Gateway interface {
	Send(ctx context.Context, mobile, message string) error
}

type GatewayConfig struct {
	URL           string
	APIKey        string
	SenderID      string
	Timeout       time.Duration
	RetryAttempts int
}

// HTTPGateway posts messages to the campus SMS provider.
type HTTPGateway struct {
	client *http.Client
	cfg    GatewayConfig
}

func NewHTTPGateway(cfg GatewayConfig) *HTTPGateway {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPGateway{
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:    cfg,
	}
}

func (g *HTTPGateway) Send(ctx context.Context, mobile, message string) error {
	payload, err := json.Marshal(map[string]string{
		"to":      mobile,
		"from":    g.cfg.SenderID,
		"message": message,
	})
	if err != nil {
		return err
	}

	attempts := g.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := 200 * time.Millisecond
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = g.post(ctx, payload)
		if err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		// exponential backoff with cap
		delay *= 2
		if delay > 2*time.Second {
			delay = 2 * time.Second
		}
	}

	return err
}

func (g *HTTPGateway) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
