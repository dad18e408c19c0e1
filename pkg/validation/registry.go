package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	registryService = "registry"

	// DefaultRegistryTimeout bounds each registry call.
	DefaultRegistryTimeout = 30 * time.Second

	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// RegistryRecord is one entry of a registry response. Any field may be absent.
type RegistryRecord struct {
	Number      string `json:"number,omitempty"`
	JID         string `json:"jid,omitempty"`
	Exists      *bool  `json:"exists,omitempty"`
	HasWhatsApp *bool  `json:"hasWhatsApp,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Registry reports whether numbers are reachable on the messaging channel.
type Registry interface {
	// Check returns records for a batch of canonical numbers. The records may come back
	// in any order and with reformatted numbers. ErrMethodNotSupported signals that the
	// check is unavailable.
	Check(ctx context.Context, numbers []string) ([]RegistryRecord, error)
}

// HTTPRegistry queries a WhatsApp gateway's number-existence endpoint.
type HTTPRegistry struct {
	baseURL  string
	instance string
	apiKey   string
	client   *http.Client
}

// HTTPRegistryOption configures an HTTPRegistry.
type HTTPRegistryOption func(*HTTPRegistry)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPRegistryOption {
	return func(r *HTTPRegistry) {
		r.client = client
	}
}

// WithTimeout sets the per-call timeout of the default client.
func WithTimeout(timeout time.Duration) HTTPRegistryOption {
	return func(r *HTTPRegistry) {
		if timeout > 0 {
			r.client.Timeout = timeout
		}
	}
}

func NewHTTPRegistry(baseURL, instance, apiKey string, opts ...HTTPRegistryOption) *HTTPRegistry {
	registry := &HTTPRegistry{
		baseURL:  strings.TrimRight(baseURL, "/"),
		instance: instance,
		apiKey:   apiKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultRegistryTimeout,
		},
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

type checkRequest struct {
	Numbers []string `json:"numbers"`
}

func (r *HTTPRegistry) Check(ctx context.Context, numbers []string) ([]RegistryRecord, error) {
	payload, err := json.Marshal(checkRequest{Numbers: numbers})
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/whatsappNumbers/%s", r.baseURL, url.PathEscape(r.instance))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewTransportError(registryService, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Apikey", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewTimeoutError(registryService, err)
		}

		return nil, models.NewTransportError(registryService, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewTimeoutError(registryService, err)
		}

		return nil, models.NewTransportError(registryService, err)
	}

	if len(body) > maxResponseBody {
		return nil, models.NewTransportError(registryService,
			fmt.Errorf("response exceeds %d bytes", maxResponseBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if unsupported(resp.StatusCode, body) {
			return nil, fmt.Errorf("%w: status %d", models.ErrMethodNotSupported, resp.StatusCode)
		}

		return nil, models.NewTransportError(registryService, fmt.Errorf("unexpected status %d: %s",
			resp.StatusCode, truncate(body)))
	}

	var records []RegistryRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, models.NewTransportError(registryService, fmt.Errorf("malformed response: %w", err))
	}

	return records, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

var unsupportedMarkers = []string{
	"not supported",
	"not available",
	"not implemented",
	"method not allowed",
}

// unsupported reports whether the registry rejected the call because the
// method itself is unavailable. Server errors other than 501 never qualify;
// other 4xx responses qualify only when their JSON error message says so.
func unsupported(status int, body []byte) bool {
	switch {
	case status == http.StatusNotImplemented || status == http.StatusMethodNotAllowed:
		return true
	case status < 400 || status >= 500:
		return false
	}

	for _, message := range errorMessages(body) {
		text := strings.ToLower(message)
		for _, marker := range unsupportedMarkers {
			if strings.Contains(text, marker) {
				return true
			}
		}
	}

	return false
}

// errorMessages extracts the message fields of a registry error body:
// top-level "message" and "error", plus "response.message" as a string or list.
func errorMessages(body []byte) []string {
	var payload struct {
		Message  any `json:"message"`
		Error    any `json:"error"`
		Response struct {
			Message any `json:"message"`
		} `json:"response"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	var messages []string
	for _, field := range []any{payload.Message, payload.Error, payload.Response.Message} {
		messages = appendStrings(messages, field)
	}

	return messages
}

func appendStrings(dst []string, value any) []string {
	switch v := value.(type) {
	case string:
		return append(dst, v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				dst = append(dst, s)
			}
		}
	}

	return dst
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}

	return string(body)
}
