// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Error codes surfaced by the fetch layer. Callers upstream of the evaluator
// match on these; the evaluator itself never translates them.
const (
	CodeNotFound = "ROBLOX_NOT_FOUND"
	CodeDown     = "ROBLOX_DOWN"
	CodeAPIError = "ROBLOX_API_ERROR"
)

// API is the outbound surface entities and users hydrate themselves from.
// Client is the production implementation; tests substitute fakes.
type API interface {
	GroupInfo(ctx context.Context, groupID int64) (*GroupInfo, error)
	GroupRolesets(ctx context.Context, groupID int64) ([]Roleset, error)
	AssetDetails(ctx context.Context, kind EntityKind, assetID int64) (*AssetInfo, error)
	UserInfo(ctx context.Context, userID int64) (*UserDetails, error)
	UserGroups(ctx context.Context, userID int64) (map[int64]UserGroup, error)
	OwnsItem(ctx context.Context, userID int64, itemType int, itemID int64) (bool, error)
}

// Default API base URLs.
const (
	defaultGroupsBase    = "https://groups.roblox.com"
	defaultBadgesBase    = "https://badges.roblox.com"
	defaultEconomyBase   = "https://economy.roblox.com"
	defaultUsersBase     = "https://users.roblox.com"
	defaultInventoryBase = "https://inventory.roblox.com"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithBaseURL points every API family at the same base URL. Used by tests
// and by deployments that route through a proxy.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		base = strings.TrimRight(base, "/")
		c.groupsBase = base
		c.badgesBase = base
		c.economyBase = base
		c.usersBase = base
		c.inventoryBase = base
	}
}

// WithMaxRetries sets the number of retries attempted on upstream-down
// responses. Retry policy lives here, not in the evaluator.
func WithMaxRetries(n uint64) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// Client fetches Roblox API resources over HTTP with bounded exponential
// backoff on upstream-down responses.
type Client struct {
	http          *http.Client
	groupsBase    string
	badgesBase    string
	economyBase   string
	usersBase     string
	inventoryBase string
	maxRetries    uint64
}

var _ API = (*Client)(nil)

// NewClient creates a Client with production defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:          &http.Client{Timeout: 10 * time.Second},
		groupsBase:    defaultGroupsBase,
		badgesBase:    defaultBadgesBase,
		economyBase:   defaultEconomyBase,
		usersBase:     defaultUsersBase,
		inventoryBase: defaultInventoryBase,
		maxRetries:    2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one GET with retry on 5xx/transport failures and returns the
// response body. 404 maps to CodeNotFound and is not retried.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return oops.Code(CodeAPIError).With("url", url).Wrap(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(oops.Code(CodeDown).With("url", url).Wrap(err))
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return oops.Code(CodeNotFound).With("url", url).Errorf("resource not found")
		case resp.StatusCode >= 500:
			return retry.RetryableError(
				oops.Code(CodeDown).With("url", url).With("status", resp.StatusCode).
					Errorf("upstream unavailable"))
		case resp.StatusCode != http.StatusOK:
			return oops.Code(CodeAPIError).With("url", url).With("status", resp.StatusCode).
				Errorf("unexpected status")
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(oops.Code(CodeDown).With("url", url).Wrap(err))
		}
		return nil
	})
	if err != nil {
		observeFetchError(err)
		return nil, err
	}
	return body, nil
}

// getJSON fetches url and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return oops.Code(CodeAPIError).With("url", url).Wrapf(err, "decoding response")
	}
	return nil
}

// GroupInfo fetches group metadata.
func (c *Client) GroupInfo(ctx context.Context, groupID int64) (*GroupInfo, error) {
	var info GroupInfo
	url := fmt.Sprintf("%s/v1/groups/%d", c.groupsBase, groupID)
	if err := c.getJSON(ctx, url, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GroupRolesets fetches the ordered roleset list of a group.
func (c *Client) GroupRolesets(ctx context.Context, groupID int64) ([]Roleset, error) {
	var resp struct {
		GroupID int64     `json:"groupId"`
		Roles   []Roleset `json:"roles"`
	}
	url := fmt.Sprintf("%s/v1/groups/%d/roles", c.groupsBase, groupID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Roles, nil
}

// AssetDetails fetches metadata for a badge, gamepass, or catalog asset.
// Each kind has its own API family and response casing.
func (c *Client) AssetDetails(ctx context.Context, kind EntityKind, assetID int64) (*AssetInfo, error) {
	switch kind {
	case KindBadge:
		var resp struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		url := fmt.Sprintf("%s/v1/badges/%d", c.badgesBase, assetID)
		if err := c.getJSON(ctx, url, &resp); err != nil {
			return nil, err
		}
		return &AssetInfo{Name: resp.Name, Description: resp.Description}, nil

	case KindGamepass:
		var resp struct {
			Name        string `json:"Name"`
			Description string `json:"Description"`
		}
		url := fmt.Sprintf("%s/v1/game-pass/%d/game-pass-product-info", c.economyBase, assetID)
		if err := c.getJSON(ctx, url, &resp); err != nil {
			return nil, err
		}
		return &AssetInfo{Name: resp.Name, Description: resp.Description}, nil

	case KindCatalogAsset:
		var resp struct {
			Name        string `json:"Name"`
			Description string `json:"Description"`
		}
		url := fmt.Sprintf("%s/v2/assets/%d/details", c.economyBase, assetID)
		if err := c.getJSON(ctx, url, &resp); err != nil {
			return nil, err
		}
		return &AssetInfo{Name: resp.Name, Description: resp.Description}, nil
	}

	return nil, oops.Code(CodeAPIError).With("kind", string(kind)).Errorf("kind has no asset details")
}

// UserInfo fetches user profile metadata.
func (c *Client) UserInfo(ctx context.Context, userID int64) (*UserDetails, error) {
	var resp struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		DisplayName string    `json:"displayName"`
		Description string    `json:"description"`
		IsBanned    bool      `json:"isBanned"`
		Created     time.Time `json:"created"`
	}
	url := fmt.Sprintf("%s/v1/users/%d", c.usersBase, userID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return &UserDetails{
		ID:          resp.ID,
		Username:    resp.Name,
		DisplayName: resp.DisplayName,
		Description: resp.Description,
		Banned:      resp.IsBanned,
		Created:     resp.Created,
	}, nil
}

// UserGroups fetches the user's group memberships keyed by group id.
func (c *Client) UserGroups(ctx context.Context, userID int64) (map[int64]UserGroup, error) {
	var resp struct {
		Data []struct {
			Group GroupInfo `json:"group"`
			Role  Roleset   `json:"role"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/v2/users/%d/groups/roles", c.groupsBase, userID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	groups := make(map[int64]UserGroup, len(resp.Data))
	for _, m := range resp.Data {
		groups[m.Group.ID] = UserGroup{Group: m.Group, Role: m.Role}
	}
	return groups, nil
}

// OwnsItem checks the inventory is-owned endpoint. The endpoint returns a
// bare boolean literal as text.
func (c *Client) OwnsItem(ctx context.Context, userID int64, itemType int, itemID int64) (bool, error) {
	url := fmt.Sprintf("%s/v1/users/%d/items/%d/%d/is-owned", c.inventoryBase, userID, itemType, itemID)
	body, err := c.get(ctx, url)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(body)) == "true", nil
}

// IsNotFound reports whether err carries the not-found code.
func IsNotFound(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == CodeNotFound
}
