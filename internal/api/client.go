// Package api is the client for the upstream restaurant-operations API.
// Every dashboard mutation that leaves the process goes through here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kwabenadev/chopdesk/internal/models"
)

var (
	// ErrLoginFailed covers any upstream login outcome without a token.
	// The upstream's own message is deliberately not carried along.
	ErrLoginFailed = errors.New("login rejected by upstream")

	// ErrAmbiguousResponse marks an upstream reply whose body could not be
	// parsed; callers should reconcile with an authoritative re-fetch
	// rather than guess from the status code.
	ErrAmbiguousResponse = errors.New("ambiguous upstream response")

	// ErrUpstream is the generic wrapper for non-2xx upstream replies
	ErrUpstream = errors.New("upstream request failed")
)

// Client talks to the upstream operations API
type Client struct {
	baseURL    string
	httpClient *http.Client

	// token is the upstream bearer credential for authenticated calls.
	// It is set by the session manager after a successful login and read
	// concurrently by the alert poller, so access goes through tokenMu.
	tokenMu sync.RWMutex
	token   string
}

// NewClient creates a client for the given base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetToken attaches the upstream bearer token to subsequent calls
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// ClearToken drops the upstream bearer token
func (c *Client) ClearToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

// Login submits first-factor credentials. Absence of a token in the reply
// means failure, whatever the upstream said.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", ErrLoginFailed
	}
	return resp.Token, nil
}

// SendEmailOTP asks the upstream to dispatch a login code to the given
// address. The phone path needs no equivalent: the upstream issues the code
// itself on phone logins.
func (c *Client) SendEmailOTP(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/otp/email", body, nil)
}

// VerifyOTP submits the second-factor code and returns the upstream's
// tri-state validation signal.
func (c *Client) VerifyOTP(ctx context.Context, identifier, code string) (OTPValidation, error) {
	body := map[string]string{"identifier": identifier, "code": code}
	var resp VerifyOTPResponse
	if err := c.do(ctx, http.MethodPost, "/auth/otp/verify", body, &resp); err != nil {
		return "", err
	}
	return resp.Validation, nil
}

// FetchProfile retrieves the authenticated user's profile
func (c *Client) FetchProfile(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateOrder submits a completed order draft
func (c *Client) CreateOrder(ctx context.Context, payload OrderPayload) (*OrderRecord, error) {
	var rec OrderRecord
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// EditOrder updates an existing order with the full edited payload
func (c *Client) EditOrder(ctx context.Context, orderID string, payload OrderPayload) (*OrderRecord, error) {
	var rec OrderRecord
	if err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID), payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetOrder fetches the authoritative record for one order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderRecord, error) {
	var rec OrderRecord
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateKitchenStatus moves an order to a new kitchen status. A reply that
// cannot be parsed surfaces as ErrAmbiguousResponse so the caller can
// reconcile instead of guessing.
func (c *Client) UpdateKitchenStatus(ctx context.Context, orderID, status string) error {
	body := map[string]string{"status": status}
	err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/status", body, &struct{}{})
	if err != nil && errors.Is(err, errDecode) {
		return ErrAmbiguousResponse
	}
	return err
}

// FetchPendingOrders lists incoming orders awaiting accept/decline
func (c *Client) FetchPendingOrders(ctx context.Context) ([]PendingOrder, error) {
	var orders []PendingOrder
	if err := c.do(ctx, http.MethodGet, "/orders/pending", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListExtrasGroups fetches the extras groups configured for a branch
func (c *Client) ListExtrasGroups(ctx context.Context, branchID string) ([]models.ExtrasGroup, error) {
	var groups []models.ExtrasGroup
	path := "/branches/" + url.PathEscape(branchID) + "/extras-groups"
	if err := c.do(ctx, http.MethodGet, path, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateExtrasGroup adds a new extras group to a branch
func (c *Client) CreateExtrasGroup(ctx context.Context, branchID string, group models.ExtrasGroup) (*models.ExtrasGroup, error) {
	var created models.ExtrasGroup
	path := "/branches/" + url.PathEscape(branchID) + "/extras-groups"
	if err := c.do(ctx, http.MethodPost, path, group, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateExtrasGroup replaces an extras group definition
func (c *Client) UpdateExtrasGroup(ctx context.Context, branchID string, group models.ExtrasGroup) error {
	path := "/branches/" + url.PathEscape(branchID) + "/extras-groups/" + url.PathEscape(group.ID)
	return c.do(ctx, http.MethodPut, path, group, nil)
}

// DeleteExtrasGroup removes an extras group
func (c *Client) DeleteExtrasGroup(ctx context.Context, branchID, groupID string) error {
	path := "/branches/" + url.PathEscape(branchID) + "/extras-groups/" + url.PathEscape(groupID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListBranches fetches the branches visible to the authenticated user
func (c *Client) ListBranches(ctx context.Context) ([]Branch, error) {
	var branches []Branch
	if err := c.do(ctx, http.MethodGet, "/branches", nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// ListInventory fetches the catalog for a branch
func (c *Client) ListInventory(ctx context.Context, branchID string) ([]InventoryItem, error) {
	var items []InventoryItem
	path := "/branches/" + url.PathEscape(branchID) + "/inventory"
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

var errDecode = errors.New("undecodable body")

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.tokenMu.RLock()
	token := c.token
	c.tokenMu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d", ErrUpstream, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}
