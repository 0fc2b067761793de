// Package remote implements an ontology.Provider backed by another
// ontix server (or any service exposing the same HTTP API). Federating
// a remote provider chains servers together: one node's composite view
// becomes a backend of another.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/internal/httpclient"
	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/ontology"
)

// Provider talks to a remote ontology API over HTTP/JSON.
type Provider struct {
	baseURL string
	client  *httpclient.SaferClient
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// Options configures a remote Provider.
type Options struct {
	// Timeout per request, defaults to 30s
	Timeout time.Duration
	// RequestsPerSecond rate-limits outbound calls, defaults to 10
	RequestsPerSecond float64
	// AllowPrivate disables SSRF protection for endpoints on private
	// networks. Needed when the remote backend runs on the local LAN.
	AllowPrivate bool
	// Client overrides the HTTP client, used by tests
	Client *httpclient.SaferClient
	// Logger defaults to the global logger
	Logger *zap.SugaredLogger
}

// New creates a Provider for the API rooted at baseURL.
func New(baseURL string, opts Options) (*Provider, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, errors.Wrapf(errors.ErrConfiguration, "invalid remote backend URL %q", baseURL)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps == 0 {
		rps = 10
	}
	log := opts.Logger
	if log == nil {
		log = logger.Logger
	}

	client := opts.Client
	if client == nil {
		allowPrivate := opts.AllowPrivate
		blockPrivate := !allowPrivate
		client = httpclient.New(timeout, httpclient.Options{
			BlockPrivateIP: &blockPrivate,
		})
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Provider{
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  log.Named("remote"),
	}, nil
}

var _ ontology.Provider = (*Provider)(nil)

// call performs one rate-limited HTTP exchange. body nil means GET.
func (p *Provider) call(ctx context.Context, path string, body any) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapBackend(err, "rate limit wait")
	}

	method := http.MethodGet
	var reader io.Reader
	if body != nil {
		method = http.MethodPost
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(buf)
	}

	if logger.ShouldLogTrace(logger.Verbosity()) {
		p.logger.Debugw("Remote request",
			"method", method,
			"path", path,
		)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.WrapBackend(err, path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, errors.WrapBackend(err, path)
	}

	if logger.ShouldLogAll(logger.Verbosity()) {
		p.logger.Debugw("Remote response",
			"path", path,
			"status", resp.StatusCode,
			"bytes", len(payload),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, payload, path)
	}
	return payload, nil
}

// statusError maps a non-200 response to a backend error, preserving
// the peer's sentinel where the status encodes one.
func statusError(status int, payload []byte, path string) error {
	var remoteErr struct {
		Error string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(payload, &remoteErr) == nil {
		msg = remoteErr.Error
	}

	var err error
	switch status {
	case http.StatusNotFound:
		err = errors.ErrNotFound
	case http.StatusServiceUnavailable:
		err = errors.ErrServiceUnavailable
	default:
		if msg == "" {
			return errors.NewBackendError("unexpected status %d from %s", status, path)
		}
		return errors.WrapBackend(errors.New(msg), path)
	}
	if msg != "" {
		err = errors.WithMessage(err, msg)
	}
	return errors.WrapBackend(err, path)
}

// exchange decodes a call's response into T.
func exchange[T any](ctx context.Context, p *Provider, path string, body any) (T, error) {
	var out T
	payload, err := p.call(ctx, path, body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, errors.WrapBackend(err, path)
	}
	return out, nil
}

func (p *Provider) ClassTree(ctx context.Context) ([]*ontology.ClassModel, error) {
	return exchange[[]*ontology.ClassModel](ctx, p, "/api/class-tree", nil)
}

func (p *Provider) ClassInfo(ctx context.Context, classIDs []ontology.ClassID) ([]ontology.ClassModel, error) {
	return exchange[[]ontology.ClassModel](ctx, p, "/api/classes", map[string]any{
		"classIds": classIDs,
	})
}

func (p *Provider) PropertyInfo(ctx context.Context, propertyIDs []ontology.PropertyID) (map[ontology.PropertyID]ontology.PropertyModel, error) {
	return exchange[map[ontology.PropertyID]ontology.PropertyModel](ctx, p, "/api/properties", map[string]any{
		"propertyIds": propertyIDs,
	})
}

func (p *Provider) LinkTypesInfo(ctx context.Context, linkTypeIDs []ontology.LinkTypeID) ([]ontology.LinkType, error) {
	return exchange[[]ontology.LinkType](ctx, p, "/api/link-types/info", map[string]any{
		"linkTypeIds": linkTypeIDs,
	})
}

func (p *Provider) LinkTypes(ctx context.Context) ([]ontology.LinkType, error) {
	return exchange[[]ontology.LinkType](ctx, p, "/api/link-types", nil)
}

func (p *Provider) ElementInfo(ctx context.Context, elementIDs []ontology.ElementID) (map[ontology.ElementID]ontology.ElementModel, error) {
	return exchange[map[ontology.ElementID]ontology.ElementModel](ctx, p, "/api/elements", map[string]any{
		"elementIds": elementIDs,
	})
}

func (p *Provider) LinksInfo(ctx context.Context, elementIDs []ontology.ElementID, linkTypeIDs []ontology.LinkTypeID) ([]ontology.Link, error) {
	return exchange[[]ontology.Link](ctx, p, "/api/links", map[string]any{
		"elementIds":  elementIDs,
		"linkTypeIds": linkTypeIDs,
	})
}

func (p *Provider) LinkTypesOf(ctx context.Context, elementID ontology.ElementID) ([]ontology.LinkCount, error) {
	path := "/api/elements/" + url.PathEscape(string(elementID)) + "/link-types"
	return exchange[[]ontology.LinkCount](ctx, p, path, nil)
}

func (p *Provider) LinkElements(ctx context.Context, params ontology.LinkedElementsParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	return exchange[map[ontology.ElementID]ontology.ElementModel](ctx, p, "/api/linked-elements", params)
}

func (p *Provider) Filter(ctx context.Context, params ontology.FilterParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	return exchange[map[ontology.ElementID]ontology.ElementModel](ctx, p, "/api/filter", params)
}
