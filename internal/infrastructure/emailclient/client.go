package emailclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"jan-server/services/newsletter-api/internal/domain/delivery"
	"jan-server/services/newsletter-api/internal/domain/subscriber"
)

const serverTokenHeader = "X-Postmark-Server-Token"

// Config configures the email provider client.
type Config struct {
	BaseURL            string
	Sender             string
	AuthToken          string
	Timeout            time.Duration
	RateLimit          float64
	RateBurst          int
	BreakerMaxFailures uint32
	BreakerCooldown    time.Duration
}

// ProviderError is a non-2xx answer from the email provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider error (%d): %s", e.StatusCode, e.Body)
}

// Client sends email through a Postmark-compatible HTTP API.
type Client struct {
	httpClient *resty.Client
	sender     subscriber.Email
	authToken  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// NewClient builds a client from cfg.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("email base url is empty")
	}
	sender, err := subscriber.ParseEmail(cfg.Sender)
	if err != nil {
		return nil, fmt.Errorf("email sender: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	log = log.With().Str("component", "email-client").Logger()

	c := &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("User-Agent", "Jan-Newsletter/1.0").
			SetTimeout(cfg.Timeout),
		sender:    sender,
		authToken: cfg.AuthToken,
		log:       log,
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	maxFailures := cfg.BreakerMaxFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "email-provider",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("email provider circuit changed state")
		},
	})

	return c, nil
}

// Send posts one email. Rejections of the message itself are wrapped with
// delivery.Permanent; anything else is worth retrying.
func (c *Client) Send(ctx context.Context, recipient subscriber.Email, subject, htmlContent, textContent string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for send slot: %w", err)
		}
	}

	body := sendEmailRequest{
		From:     c.sender.String(),
		To:       recipient.String(),
		Subject:  subject,
		HTMLBody: htmlContent,
		TextBody: textContent,
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("email provider unavailable: %w", err)
	}
	return err
}

func (c *Client) post(ctx context.Context, body sendEmailRequest) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(serverTokenHeader, c.authToken).
		SetBody(body).
		Post("/email")
	if err != nil {
		return fmt.Errorf("send email request: %w", err)
	}
	if resp.IsError() {
		providerErr := &ProviderError{StatusCode: resp.StatusCode(), Body: resp.String()}
		if rejectsMessage(providerErr.StatusCode) {
			return delivery.Permanent(providerErr)
		}
		return providerErr
	}
	return nil
}

// rejectsMessage reports 4xx answers that will not change on retry.
func rejectsMessage(status int) bool {
	if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
		return false
	}
	return status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

// countsAsHealthy keeps request-specific rejections from opening the breaker.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.StatusCode < http.StatusInternalServerError && providerErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}
