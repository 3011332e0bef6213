// Package gateway is the HTTP client for a remotely deployed invite service
// (ValidateInvite and SendClubInvite).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/bookclurb/clurb-api/internal/models"
)

// Validator answers whether an invite can still be accepted. Both Client and
// the in-process invite service implement it.
type Validator interface {
	ValidateInvite(ctx context.Context, inviteID, clubID string) (models.InviteValidation, error)
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type validateRequest struct {
	InviteID string `json:"inviteId"`
	ClubID   string `json:"clubId"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ValidateInvite calls POST {base}/ValidateInvite.
func (c *Client) ValidateInvite(ctx context.Context, inviteID, clubID string) (models.InviteValidation, error) {
	var result models.InviteValidation
	if err := c.post(ctx, "/ValidateInvite", "", validateRequest{InviteID: inviteID, ClubID: clubID}, &result); err != nil {
		return models.InviteValidation{}, err
	}
	return result, nil
}

// SendClubInvite calls POST {base}/SendClubInvite with the caller's bearer token.
func (c *Client) SendClubInvite(ctx context.Context, bearer string, req models.SendInviteRequest) error {
	var result sendResponse
	if err := c.post(ctx, "/SendClubInvite", bearer, req, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("send club invite: %s", result.Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, bearer string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "build %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
