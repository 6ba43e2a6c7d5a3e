package concord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/concordnow/concord-export/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.concordnow.com"
	defaultPageSize = 5000
)

// PageRequest parameterizes one page of the agreements listing.
type PageRequest struct {
	Statuses    []string
	AccessTypes []string
	Page        int
	PageSize    int
}

// Client is a typed client for the Concord REST API.
type Client interface {
	Me(ctx context.Context) (*User, error)
	Organizations(ctx context.Context) ([]Organization, error)
	AgreementsPage(ctx context.Context, orgID string, req PageRequest) (*AgreementsPage, error)
	SignatureSlots(ctx context.Context, orgID, agreementID string) ([]Slot, error)
	Activities(ctx context.Context, orgID, agreementID string) ([]Activity, error)
	Agreement(ctx context.Context, orgID, uid string) (*AgreementDetail, error)
	CreateDraft(ctx context.Context, orgID string, req DraftRequest) (*DraftResponse, error)
	SetApproval(ctx context.Context, orgID, uid string, cfg ApprovalConfig) error
	ApprovalConfig(ctx context.Context, orgID, uid string) (*ApprovalConfig, error)
	TransitionRule(ctx context.Context, orgID, uid, ruleID, action string) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPageSize overrides the default listing page size.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

// WithRateLimit overrides the default request rate limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the default transient-failure retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a Concord API client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// doJSON issues one API request, retrying transient failures, and decodes
// the response into out when out is non-nil.
func (c *httpClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return eris.Wrapf(err, "concord: marshal %s %s body", method, path)
		}
	}

	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(method + " " + path)
	}

	respBody, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "concord: rate limiter wait")
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, eris.Wrapf(err, "concord: create %s %s", method, path)
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "concord: %s %s", method, path)
		}
		defer resp.Body.Close() //nolint:errcheck

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "concord: read %s %s response", method, path)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := eris.Errorf("concord: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(data))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		return data, nil
	})
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrapf(err, "concord: unmarshal %s %s response", method, path)
		}
	}
	return nil
}

func (c *httpClient) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.doJSON(ctx, http.MethodGet, "/api/rest/1/user/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *httpClient) Organizations(ctx context.Context) ([]Organization, error) {
	var resp struct {
		Organizations []Organization `json:"organizations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/rest/1/user/me/organizations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Organizations, nil
}

func (c *httpClient) AgreementsPage(ctx context.Context, orgID string, req PageRequest) (*AgreementsPage, error) {
	size := req.PageSize
	if size <= 0 {
		size = c.pageSize
	}

	q := url.Values{}
	for _, s := range req.Statuses {
		q.Add("statuses", s)
	}
	for _, a := range req.AccessTypes {
		q.Add("accessType", a)
	}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("directAccessOnly", "false")
	q.Set("numberOfItemsByPage", strconv.Itoa(size))

	path := fmt.Sprintf("/api/rest/1/user/me/organizations/%s/agreements?%s", url.PathEscape(orgID), q.Encode())

	var page AgreementsPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) SignatureSlots(ctx context.Context, orgID, agreementID string) ([]Slot, error) {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements/%s/signature",
		url.PathEscape(orgID), url.PathEscape(agreementID))

	var resp struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Slots, nil
}

func (c *httpClient) Activities(ctx context.Context, orgID, agreementID string) ([]Activity, error) {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements/%s/activities?type=AUDIT",
		url.PathEscape(orgID), url.PathEscape(agreementID))

	var resp struct {
		Activities []Activity `json:"activities"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Activities, nil
}

func (c *httpClient) Agreement(ctx context.Context, orgID, uid string) (*AgreementDetail, error) {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements/%s",
		url.PathEscape(orgID), url.PathEscape(uid))

	var detail AgreementDetail
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *httpClient) CreateDraft(ctx context.Context, orgID string, req DraftRequest) (*DraftResponse, error) {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements", url.PathEscape(orgID))

	var resp DraftResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) SetApproval(ctx context.Context, orgID, uid string, cfg ApprovalConfig) error {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements/%s/approval",
		url.PathEscape(orgID), url.PathEscape(uid))
	return c.doJSON(ctx, http.MethodPost, path, cfg, nil)
}

func (c *httpClient) ApprovalConfig(ctx context.Context, orgID, uid string) (*ApprovalConfig, error) {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements/%s/approval",
		url.PathEscape(orgID), url.PathEscape(uid))

	var cfg ApprovalConfig
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *httpClient) TransitionRule(ctx context.Context, orgID, uid, ruleID, action string) error {
	path := fmt.Sprintf("/api/rest/1/organizations/%s/agreements/%s/rules/%s",
		url.PathEscape(orgID), url.PathEscape(uid), url.PathEscape(ruleID))

	body := struct {
		Action string `json:"action"`
	}{Action: action}

	return c.doJSON(ctx, http.MethodPatch, path, body, nil)
}
