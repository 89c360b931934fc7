package apns

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"go.uber.org/zap"
)

const (
	ProductionHost = "api.push.apple.com"
	SandboxHost    = "api.sandbox.push.apple.com"

	// DefaultTimeout bounds one gateway request.
	DefaultTimeout = 10 * time.Second

	priorityImmediate = "10"
	pushTypeAlert     = "alert"

	// maxErrorBody caps how much of a gateway error response is kept.
	maxErrorBody = 64 << 10
)

// Outcome is the result class of a dispatch.
type Outcome string

const (
	// OutcomeDelivered means the gateway accepted the notification. Delivery
	// to the device itself is best effort on the gateway side.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeSkipped means push is not configured and nothing was sent.
	OutcomeSkipped Outcome = "skipped"
)

// Result describes a completed dispatch.
type Result struct {
	Outcome    Outcome
	StatusCode int
	// APNsID is the gateway's identifier for the notification.
	APNsID string
}

// GatewayHost returns the gateway host for env.
func GatewayHost(env types.PushEnvironment) string {
	if env == types.PushEnvironmentProduction {
		return ProductionHost
	}
	return SandboxHost
}

// Dispatcher delivers one notification to one device. It makes exactly one
// attempt per call; retrying is up to the caller.
type Dispatcher struct {
	cred       types.PushCredential
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets a custom HTTP client. The client is used as is;
// WithTimeout does not apply to it.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = client
	}
}

// WithBaseURL overrides the gateway origin, e.g. for a local test server.
func WithBaseURL(baseURL string) Option {
	return func(d *Dispatcher) {
		d.baseURL = baseURL
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a dispatcher targeting the credential's environment.
func NewDispatcher(cred types.PushCredential, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cred:    cred,
		baseURL: "https://" + GatewayHost(cred.Environment),
		timeout: DefaultTimeout,
		logger:  logger.GetLogger().Desugar(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.httpClient == nil {
		d.httpClient = newGatewayClient(d.timeout)
	}
	d.logger = d.logger.Named("APNsDispatcher")
	return d
}

func newGatewayClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: true,
			TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// Endpoint returns the request URL for deviceToken.
func (d *Dispatcher) Endpoint(deviceToken string) string {
	return d.baseURL + "/3/device/" + url.PathEscape(deviceToken)
}

// Send posts payload to payload.DeviceToken using the provider token.
// An incomplete credential skips the send and returns OutcomeSkipped with a
// nil error. Non-2xx answers yield a DISPATCH_ERROR carrying the status and
// the raw response body.
func (d *Dispatcher) Send(ctx context.Context, token ProviderToken, payload types.NotificationPayload) (*Result, error) {
	if missing := d.cred.MissingFields(); len(missing) > 0 {
		d.logger.Warn("Push credentials not configured, skipping send", zap.Strings("missing", missing))
		return &Result{Outcome: OutcomeSkipped}, nil
	}

	body, err := EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint(payload.DeviceToken), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("apns-topic", d.cred.BundleID)
	req.Header.Set("apns-priority", priorityImmediate)
	req.Header.Set("apns-push-type", pushTypeAlert)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("Push gateway request failed",
			zap.String("deviceToken", logger.MaskDeviceToken(payload.DeviceToken)),
			zap.Error(err))
		return nil, apperrors.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		d.logger.Warn("Push gateway rejected notification",
			zap.String("deviceToken", logger.MaskDeviceToken(payload.DeviceToken)),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("providerToken", logger.MaskJWT(token.Value)),
			zap.String("response", string(respBody)))
		return nil, apperrors.Dispatch(resp.StatusCode, string(respBody))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	result := &Result{
		Outcome:    OutcomeDelivered,
		StatusCode: resp.StatusCode,
		APNsID:     resp.Header.Get("apns-id"),
	}
	d.logger.Debug("Notification accepted by push gateway",
		zap.String("deviceToken", logger.MaskDeviceToken(payload.DeviceToken)),
		zap.String("apnsId", result.APNsID))
	return result, nil
}
