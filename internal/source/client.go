// Package source implements the SourceClient from spec §4.2: a read-only
// OData v1/v2 client over Project Online, with lazy single-pass
// `@odata.nextLink` pagination, per-(tenant,entity-kind) rate limiting, and
// retry-wrapped requests. Grounded on the teacher's m3api.Client HTTP
// plumbing (bearer token injection, timeout, DEBUG narration) adapted from
// M3's MI-program call shape to OData GET+paginate.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/retry"
)

// TokenSource supplies a fresh bearer token for each request.
type TokenSource func(ctx context.Context) (string, error)

// httpError carries the response status code so retry.Classify can inspect
// it via the httpStatusError interface.
type httpError struct {
	status int
	body   string
	url    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("source request to %s returned status %d: %s", e.url, e.status, e.body)
}

func (e *httpError) StatusCode() int { return e.status }

// Client is the OData client against a Project Online tenant.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	limiters   map[string]*rate.Limiter
	rps        rate.Limit
	retry      *retry.Engine
	maxRetries int
	log        *logging.Logger
}

// New builds a Client. ratePerMinute bounds requests per (tenant, entity
// kind) pair, matching the token-bucket design in spec §4.2.
func New(baseURL string, token TokenSource, ratePerMinute int, maxRetries int, log *logging.Logger) *Client {
	if ratePerMinute <= 0 {
		ratePerMinute = 300
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      token,
		limiters:   make(map[string]*rate.Limiter),
		rps:        rate.Limit(float64(ratePerMinute) / 60.0),
		retry:      retry.NewEngine(),
		maxRetries: maxRetries,
		log:        log,
	}
}

func (c *Client) limiterFor(entityKind string) *rate.Limiter {
	if l, ok := c.limiters[entityKind]; ok {
		return l
	}
	l := rate.NewLimiter(c.rps, 1)
	c.limiters[entityKind] = l
	return l
}

// page is the generic OData v2 envelope shape Project Online returns.
type page struct {
	ODataContext  string            `json:"@odata.context"`
	ODataNextLink string            `json:"@odata.nextLink"`
	Value         []json.RawMessage `json:"value"`
}

// get performs one rate-limited, retried GET against an absolute or
// relative OData URL, returning the decoded envelope.
func (c *Client) get(ctx context.Context, entityKind, rawURL string) (*page, error) {
	if err := c.limiterFor(entityKind).Wait(ctx); err != nil {
		return nil, migerr.Connection("rate limiter wait cancelled", err)
	}

	var result page
	op := func(ctx context.Context) error {
		tok, err := c.token(ctx)
		if err != nil {
			return migerr.Auth(migerr.AuthExpired, "failed to obtain access token for source request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return migerr.Connection("failed to build source request", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Accept", "application/json;odata=verbose")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return migerr.Connection(fmt.Sprintf("source request to %s failed", rawURL), err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return migerr.Connection("failed to read source response body", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfterMs := parseRetryAfterMs(resp.Header.Get("Retry-After"))
			return migerr.RateLimit(retryAfterMs, fmt.Sprintf("source rate-limited on %s", entityKind), &httpError{status: resp.StatusCode, body: string(body), url: rawURL})
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return migerr.Auth(migerr.AuthExpired, "source request unauthorized", &httpError{status: resp.StatusCode, body: string(body), url: rawURL})
		}
		if resp.StatusCode == http.StatusForbidden {
			return migerr.Permission(fmt.Sprintf("source forbidden on %s", entityKind), &httpError{status: resp.StatusCode, body: string(body), url: rawURL})
		}
		if resp.StatusCode != http.StatusOK {
			return &httpError{status: resp.StatusCode, body: string(body), url: rawURL}
		}

		if err := json.Unmarshal(body, &result); err != nil {
			return migerr.Data(fmt.Sprintf("failed to decode OData page from %s", rawURL), err)
		}
		return nil
	}

	if err := c.retry.TryWith(ctx, op, c.maxRetries, 500*time.Millisecond); err != nil {
		return nil, err
	}
	return &result, nil
}

func parseRetryAfterMs(v string) int64 {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return int64(secs) * 1000
	}
	return 0
}

// paginate returns a single-pass iterator over all pages reachable by
// following @odata.nextLink from startURL, per spec §4.2's lazy,
// single-pass pagination requirement (Go 1.23 range-over-func).
func paginate(ctx context.Context, c *Client, entityKind, startURL string) func(yield func(json.RawMessage, error) bool) {
	return func(yield func(json.RawMessage, error) bool) {
		next := startURL
		for next != "" {
			p, err := c.get(ctx, entityKind, next)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, raw := range p.Value {
				if !yield(raw, nil) {
					return
				}
			}
			next = p.ODataNextLink
		}
	}
}

func (c *Client) entitySetURL(entitySet string, query url.Values) string {
	u := fmt.Sprintf("%s/_api/ProjectData/%s", c.baseURL, entitySet)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// ListProjects returns a lazy iterator over all projects in the tenant.
func (c *Client) ListProjects(ctx context.Context) func(yield func(*model.Project, error) bool) {
	u := c.entitySetURL("Projects", nil)
	return func(yield func(*model.Project, error) bool) {
		for raw, err := range paginate(ctx, c, "Project", u) {
			if err != nil {
				yield(nil, err)
				return
			}
			p, decErr := decodeProject(raw)
			if decErr != nil {
				if !yield(nil, decErr) {
					return
				}
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// ListTasks returns a lazy iterator over all tasks in the given project.
func (c *Client) ListTasks(ctx context.Context, projectID string) func(yield func(*model.Task, error) bool) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("ProjectId eq guid'%s'", projectID))
	u := c.entitySetURL("Tasks", q)
	return func(yield func(*model.Task, error) bool) {
		for raw, err := range paginate(ctx, c, "Task", u) {
			if err != nil {
				yield(nil, err)
				return
			}
			t, decErr := decodeTask(raw, projectID)
			if decErr != nil {
				if !yield(nil, decErr) {
					return
				}
				continue
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// ListResources returns a lazy iterator over all resources visible to the
// tenant (resources are tenant-scoped, not project-scoped, per spec §3).
func (c *Client) ListResources(ctx context.Context) func(yield func(*model.Resource, error) bool) {
	u := c.entitySetURL("Resources", nil)
	return func(yield func(*model.Resource, error) bool) {
		for raw, err := range paginate(ctx, c, "Resource", u) {
			if err != nil {
				yield(nil, err)
				return
			}
			r, decErr := decodeResource(raw)
			if decErr != nil {
				if !yield(nil, decErr) {
					return
				}
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// ListAssignments returns a lazy iterator over all assignments in the given
// project.
func (c *Client) ListAssignments(ctx context.Context, projectID string) func(yield func(*model.Assignment, error) bool) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("ProjectId eq guid'%s'", projectID))
	u := c.entitySetURL("Assignments", q)
	return func(yield func(*model.Assignment, error) bool) {
		for raw, err := range paginate(ctx, c, "Assignment", u) {
			if err != nil {
				yield(nil, err)
				return
			}
			a, decErr := decodeAssignment(raw, projectID)
			if decErr != nil {
				if !yield(nil, decErr) {
					return
				}
				continue
			}
			if !yield(a, nil) {
				return
			}
		}
	}
}

// GetCustomFieldSchema returns the discovered custom field definitions for
// the given entity kind, resolving lookup entry display values inline.
func (c *Client) GetCustomFieldSchema(ctx context.Context, kind model.EntityKind) ([]model.CustomField, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("EntityType eq '%s'", kind))
	u := c.entitySetURL("CustomFields", q)

	var fields []model.CustomField
	for raw, err := range paginate(ctx, c, "CustomField", u) {
		if err != nil {
			return nil, err
		}
		cf, decErr := decodeCustomField(raw)
		if decErr != nil {
			return nil, decErr
		}
		fields = append(fields, *cf)
	}

	c.log.Debugf("discovered %d custom fields for entity kind %s", len(fields), kind)
	return fields, nil
}
