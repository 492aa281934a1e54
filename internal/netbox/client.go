package netbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/netbox-mcp/internal/config"
	"github.com/netbox-mcp/internal/logger"
)

// Endpoint is an API collection path relative to /api/.
type Endpoint string

const (
	Devices             Endpoint = "dcim/devices"
	DeviceRoles         Endpoint = "dcim/device-roles"
	DeviceTypes         Endpoint = "dcim/device-types"
	Sites               Endpoint = "dcim/sites"
	Regions             Endpoint = "dcim/regions"
	Racks               Endpoint = "dcim/racks"
	RackRoles           Endpoint = "dcim/rack-roles"
	Circuits            Endpoint = "circuits/circuits"
	Providers           Endpoint = "circuits/providers"
	CircuitTypes        Endpoint = "circuits/circuit-types"
	CircuitTerminations Endpoint = "circuits/circuit-terminations"
	Tenants             Endpoint = "tenancy/tenants"
	Prefixes            Endpoint = "ipam/prefixes"
	VLANs               Endpoint = "ipam/vlans"
	VLANGroups          Endpoint = "ipam/vlan-groups"
	IPAMRoles           Endpoint = "ipam/roles"
	VRFs                Endpoint = "ipam/vrfs"
)

// Record is one raw API object. Numbers are json.Number.
type Record map[string]any

var (
	// ErrReadOnly is returned for any request that is not a read.
	ErrReadOnly = errors.New("this is a read-only client")
	// ErrMultipleResults is returned by Get when the filter matches more than one record.
	ErrMultipleResults = errors.New("get() returned more than one result")
)

// APIError is a non-2xx response from the inventory API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Fields holds per-field validation messages from a 400 response body.
	Fields map[string][]string
	Body   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	if e.Body != "" {
		msg += fmt.Sprintf(", response: %s", e.Body)
	}
	return msg
}

// InvalidChoice reports whether the API rejected a filter value as not one of
// its enumerated choices, and for which field.
func (e *APIError) InvalidChoice() (field string, ok bool) {
	if e.StatusCode != http.StatusBadRequest {
		return "", false
	}
	for name, msgs := range e.Fields {
		for _, m := range msgs {
			if strings.Contains(m, "not one of the available choices") {
				return name, true
			}
		}
	}
	if strings.Contains(e.Body, "not one of the available choices") {
		return "", true
	}
	return "", false
}

// RequestObserver is told about every completed request; code is 0 when no
// response was received.
type RequestObserver func(endpoint string, code int)

// Client talks to the inventory REST API. Only GET and HEAD ever leave the
// process.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxRetries int
	retryDelay time.Duration
	logger     *logger.Logger
	observe    RequestObserver
}

// NewClient builds a client from cfg.
func NewClient(cfg *config.NetBoxConfig, log *logger.Logger) (*Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: !cfg.SSLVerify,
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return newClient(cfg, log, transport), nil
}

func newClient(cfg *config.NetBoxConfig, log *logger.Logger, next http.RoundTripper) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.New()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &readOnlyTransport{next: next},
		},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		logger:     log,
	}
}

// SetObserver installs a hook called after every request.
func (c *Client) SetObserver(o RequestObserver) {
	c.observe = o
}

// readOnlyTransport refuses every method that could modify the remote.
type readOnlyTransport struct {
	next http.RoundTripper
}

func (t *readOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("%w: method '%s' is not allowed", ErrReadOnly, req.Method)
	}
	return t.next.RoundTrip(req)
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// makeRequest performs one request and returns the body of a 2xx response.
func (c *Client) makeRequest(ctx context.Context, method string, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + "/api/" + strings.Trim(path, "/") + "/"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.notify(path, 0)
		if errors.Is(err, ErrReadOnly) {
			return nil, err
		}
		return nil, &retryableError{fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()
	c.notify(path, resp.StatusCode)
	c.logger.LogPerformanceMetric(method+" "+path, time.Since(start), map[string]interface{}{"status": resp.StatusCode})

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
		if resp.StatusCode == http.StatusBadRequest {
			var fields map[string][]string
			if json.Unmarshal(body, &fields) == nil {
				apiErr.Fields = fields
			}
			// Query strings can carry names, not secrets; the token is in a header.
			c.logger.Debug("400 Bad Request - %s %s?%s", method, path, params.Encode())
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &retryableError{apiErr}
		}
		return nil, apiErr
	}

	return body, nil
}

func (c *Client) notify(path string, code int) {
	if c.observe == nil {
		return
	}
	// Report the collection, not the object, for detail URLs.
	if i := strings.LastIndex(path, "/"); i > 0 {
		if _, err := strconv.Atoi(path[i+1:]); err == nil {
			path = path[:i]
		}
	}
	c.observe(path, code)
}

// get performs a GET with exponential backoff on retryable failures.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		body, err := c.makeRequest(ctx, http.MethodGet, path, params)
		if err == nil {
			return body, nil
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return nil, err
		}
		lastErr = retryable.err

		if attempt == c.maxRetries {
			break
		}

		delay := time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
		c.logger.Info("Retrying GET %s in %v (attempt %d/%d): %v", path, delay, attempt+1, c.maxRetries, lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if c.maxRetries > 0 {
		return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
	}
	return nil, lastErr
}

type page struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("null record")
	}
	return rec, nil
}

// List returns the first page of ep matching params. The page size follows
// the "limit" parameter. Elements that are not JSON objects are skipped.
func (c *Client) List(ctx context.Context, ep Endpoint, params url.Values) ([]Record, error) {
	body, err := c.get(ctx, string(ep), params)
	if err != nil {
		return nil, err
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	records := make([]Record, 0, len(p.Results))
	for i, raw := range p.Results {
		rec, err := decodeRecord(raw)
		if err != nil {
			c.logger.Debug("Skipping undecodable %s record %d: %v", ep, i, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns the single record of ep matching params, nil when nothing
// matches, or ErrMultipleResults.
func (c *Client) Get(ctx context.Context, ep Endpoint, params url.Values) (Record, error) {
	q := cloneValues(params)
	q.Set("limit", "2")

	records, err := c.List(ctx, ep, q)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	default:
		return nil, ErrMultipleResults
	}
}

// GetByID fetches one record by numeric id; nil when the API answers 404.
func (c *Client) GetByID(ctx context.Context, ep Endpoint, id int) (Record, error) {
	body, err := c.get(ctx, string(ep)+"/"+strconv.Itoa(id), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	rec, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rec, nil
}

// Count returns the total number of ep records matching params.
func (c *Client) Count(ctx context.Context, ep Endpoint, params url.Values) (int, error) {
	q := cloneValues(params)
	q.Set("limit", "1")
	q.Set("brief", "true")

	body, err := c.get(ctx, string(ep), q)
	if err != nil {
		return 0, err
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return p.Count, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
