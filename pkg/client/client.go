// Package client talks to the admin REST API that serves diagram models and
// accepts change-state and migration documents.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/caseview/pkg/metrics"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// DefaultTimeout applies when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept in APIError.
const maxErrorBody = 4096

// Ref identifies the diagram to load: an instance when InstanceID is set,
// otherwise a definition. File names a saved model-json document and is
// only used for display; FileSource ignores the ids.
type Ref struct {
	ModelType    model.ModelType
	InstanceID   string
	DefinitionID string
	File         string
}

// Empty reports whether the ref names nothing to load.
func (r Ref) Empty() bool {
	return r.InstanceID == "" && r.DefinitionID == "" && r.File == ""
}

func (r Ref) String() string {
	if r.File != "" && r.InstanceID == "" && r.DefinitionID == "" {
		return fmt.Sprintf("%s file %s", r.modelType(), r.File)
	}
	if r.InstanceID != "" {
		return fmt.Sprintf("%s instance %s", r.modelType(), r.InstanceID)
	}
	return fmt.Sprintf("%s definition %s", r.modelType(), r.DefinitionID)
}

func (r Ref) modelType() model.ModelType {
	if r.ModelType == "" {
		return model.ModelCMMN
	}
	return r.ModelType
}

// ModelSource loads diagram models.
type ModelSource interface {
	ModelJSON(ctx context.Context, ref Ref) (*model.Diagram, error)
}

// Client is the admin REST client.
type Client struct {
	base     *url.URL
	http     *http.Client
	username string
	password string
	logger   *zap.Logger
	now      func() time.Time
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBasicAuth sends credentials with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout sets the request timeout. A client passed with WithHTTPClient
// is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock overrides the clock used for the cache-busting parameter.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client for the admin application rooted at baseURL, e.g.
// "http://localhost:8080/flowable-admin/".
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("admin base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing admin base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("admin base url %q must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, msg)
}

func collection(mt model.ModelType, instance bool) string {
	switch {
	case mt == model.ModelBPMN && instance:
		return "process-instances"
	case mt == model.ModelBPMN:
		return "process-definitions"
	case instance:
		return "case-instances"
	default:
		return "case-definitions"
	}
}

func (c *Client) endpoint(parts ...string) *url.URL {
	elems := []string{"rest", "admin"}
	for i, p := range parts {
		// odd positions are ids
		if i%2 == 1 {
			p = url.PathEscape(p)
		}
		elems = append(elems, p)
	}
	return c.base.JoinPath(elems...)
}

// ModelJSON fetches the diagram for an instance or definition.
func (c *Client) ModelJSON(ctx context.Context, ref Ref) (*model.Diagram, error) {
	defer metrics.Timer(metrics.ModelFetch)()

	var u *url.URL
	switch {
	case ref.InstanceID != "":
		u = c.endpoint(collection(ref.modelType(), true), ref.InstanceID, "model-json")
	case ref.DefinitionID != "":
		u = c.endpoint(collection(ref.modelType(), false), ref.DefinitionID, "model-json")
	default:
		return nil, fmt.Errorf("an instance id or a definition id is required")
	}
	q := u.Query()
	q.Set("nocaching", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}

	stop := metrics.Timer(metrics.ModelDecode)
	d, err := model.Decode(body, ref.modelType())
	stop()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}
	c.logger.Debug("model loaded",
		zap.Stringer("ref", ref),
		zap.Int("elements", len(d.Elements)),
		zap.Int("flows", len(d.Flows)))
	return d, nil
}

// ChangeState posts a change-state document for a case instance.
func (c *Client) ChangeState(ctx context.Context, instanceID string, doc model.ChangeStateDocument) error {
	defer metrics.Timer(metrics.ChangeStatePost)()
	if instanceID == "" {
		return fmt.Errorf("change-state needs a case instance id")
	}
	u := c.endpoint("case-instances", instanceID, "change-state")
	return c.postJSON(ctx, u, doc)
}

// Migrate posts a migration document for a single case instance.
func (c *Client) Migrate(ctx context.Context, instanceID string, doc model.MigrationDocument) error {
	defer metrics.Timer(metrics.MigratePost)()
	if instanceID == "" {
		return fmt.Errorf("migrate needs a case instance id")
	}
	u := c.endpoint("case-instances", instanceID, "migrate")
	return c.postJSON(ctx, u, doc)
}

// BatchMigrate posts a migration document for every instance of a definition.
func (c *Client) BatchMigrate(ctx context.Context, definitionID string, doc model.MigrationDocument) error {
	defer metrics.Timer(metrics.MigratePost)()
	if definitionID == "" {
		return fmt.Errorf("batch-migrate needs a case definition id")
	}
	u := c.endpoint("case-definitions", definitionID, "batch-migrate")
	return c.postJSON(ctx, u, doc)
}

func (c *Client) postJSON(ctx context.Context, u *url.URL, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, u, payload)
	return err
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("url", u.Redacted()), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("url", u.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &APIError{Method: method, URL: u.Redacted(), Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
