package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// TipBuilder tips the builder behind a proposal.
func (c *Client) TipBuilder(ctx context.Context, proposalID string, in TipInput) (*Tip, error) {
	var tip Tip
	path := "/api/proposals/" + url.PathEscape(proposalID) + "/tip"
	if err := c.do(ctx, http.MethodPost, path, in, &tip); err != nil {
		return nil, err
	}
	return &tip, nil
}

// Leaderboard returns the builder ranking. Period is "week" or "alltime";
// empty means alltime.
func (c *Client) Leaderboard(ctx context.Context, period string, limit int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Wallets lists the authenticated user's payout wallets.
func (c *Client) Wallets(ctx context.Context) ([]Wallet, error) {
	var wallets []Wallet
	if err := c.do(ctx, http.MethodGet, "/api/wallets", nil, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// WalletByID fetches one payout wallet.
func (c *Client) WalletByID(ctx context.Context, id string) (*Wallet, error) {
	var wallet Wallet
	if err := c.do(ctx, http.MethodGet, "/api/wallets/"+url.PathEscape(id), nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}
