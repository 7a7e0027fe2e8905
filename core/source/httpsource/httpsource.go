// Package httpsource talks to a REST-style entity API:
//
//	GET    {base}/{type}?k=v     -> JSON array of entities
//	POST   {base}/{type}         -> created entity
//	PUT    {base}/{type}/{id}    -> updated entity
//	DELETE {base}/{type}/{id}
//
// Conditional writes send the base version in If-Match. A 409 response
// carries the current remote entity and becomes a *source.ConflictError.
package httpsource

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

	"entity-sync/core/entity"
	"entity-sync/core/source"

	"github.com/goccy/go-json"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// Permanent is true for client errors other than 408 and 429.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 &&
		e.Code != http.StatusRequestTimeout && e.Code != http.StatusTooManyRequests
}

// Source is an HTTP-backed source.Source.
type Source struct {
	name    string
	baseURL string
	client  *http.Client
	fields  source.Fields
	header  http.Header
}

// Option configures a Source.
type Option func(*Source)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithFields overrides the id and version field names.
func WithFields(f source.Fields) Option {
	return func(s *Source) { s.fields = f.WithDefaults() }
}

// WithHeader adds a header to every request, e.g. an API key.
func WithHeader(key, value string) Option {
	return func(s *Source) { s.header.Set(key, value) }
}

// New creates a source rooted at baseURL.
func New(name, baseURL string, opts ...Option) *Source {
	s := &Source{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		fields:  source.DefaultFields(),
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// Fetch implements source.Source. Params become query parameters.
func (s *Source) Fetch(ctx context.Context, entityType string, params map[string]string) ([]entity.Entity, error) {
	u := s.baseURL + "/" + url.PathEscape(entityType)
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var out []entity.Entity
	if err := s.do(ctx, http.MethodGet, u, nil, 0, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.Entity{}
	}
	return out, nil
}

// Create implements source.Source.
func (s *Source) Create(ctx context.Context, entityType string, e entity.Entity) (entity.Entity, error) {
	var out entity.Entity
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/"+url.PathEscape(entityType), e, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update implements source.Source.
func (s *Source) Update(ctx context.Context, entityType, id string, e entity.Entity, baseVersion int64) (entity.Entity, error) {
	var out entity.Entity
	err := s.do(ctx, http.MethodPut, s.entityURL(entityType, id), e, baseVersion, &out)
	if err != nil {
		return nil, s.classify(err, entityType, id, baseVersion)
	}
	return out, nil
}

// Delete implements source.Source. A 404 counts as success.
func (s *Source) Delete(ctx context.Context, entityType, id string, baseVersion int64) error {
	err := s.do(ctx, http.MethodDelete, s.entityURL(entityType, id), nil, baseVersion, nil)
	if err == nil {
		return nil
	}
	if se, ok := err.(*StatusError); ok && se.Code == http.StatusNotFound {
		return nil
	}
	return s.classify(err, entityType, id, baseVersion)
}

func (s *Source) entityURL(entityType, id string) string {
	return s.baseURL + "/" + url.PathEscape(entityType) + "/" + url.PathEscape(id)
}

// classify maps 404 and 409 to the source sentinels.
func (s *Source) classify(err error, entityType, id string, baseVersion int64) error {
	se, ok := err.(*StatusError)
	if !ok {
		return err
	}
	switch se.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%s/%s: %w", entityType, id, source.ErrNotFound)
	case http.StatusConflict, http.StatusPreconditionFailed:
		conflict := &source.ConflictError{EntityType: entityType, EntityID: id, BaseVersion: baseVersion}
		var remote entity.Entity
		if json.Unmarshal([]byte(se.Body), &remote) == nil && remote != nil {
			conflict.Remote = remote
			conflict.RemoteVersion = s.fields.VersionOf(remote)
		}
		return conflict
	default:
		return err
	}
}

func (s *Source) do(ctx context.Context, method, u string, in any, baseVersion int64, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if baseVersion != 0 {
		req.Header.Set("If-Match", strconv.FormatInt(baseVersion, 10))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: u, Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
