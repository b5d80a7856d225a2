package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vaultsandbox/outbound-go/internal/apierrors"
)

// SendMessage submits the packages of a draft. The request is sent exactly
// once: a failed send is retried by rebuilding the packages, never by
// resubmitting this payload.
func (c *Client) SendMessage(ctx context.Context, messageID string, req *SendRequest) (*SendResponse, error) {
	path := fmt.Sprintf("/api/mail/v4/messages/%s", url.PathEscape(messageID))
	var result SendResponse
	if err := c.DoOnce(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, apierrors.WithResourceType(err, apierrors.ResourceMessage)
	}
	return &result, nil
}

// GetPublicKeys returns the public keys the directory knows for email.
func (c *Client) GetPublicKeys(ctx context.Context, email string) (*KeysResponse, error) {
	path := "/api/core/v4/keys?Email=" + url.QueryEscape(email)
	var result KeysResponse
	if err := c.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, apierrors.WithResourceType(err, apierrors.ResourceKeys)
	}
	return &result, nil
}
