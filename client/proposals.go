package client

import (
	"context"
	"net/http"
	"net/url"
)

// ProblemProposals lists the proposals submitted for a problem.
func (c *Client) ProblemProposals(ctx context.Context, problemID string) ([]Proposal, error) {
	var proposals []Proposal
	path := "/api/problems/" + url.PathEscape(problemID) + "/proposals"
	if err := c.do(ctx, http.MethodGet, path, nil, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// CreateProposal submits a proposal against a problem.
func (c *Client) CreateProposal(ctx context.Context, problemID string, in CreateProposalInput) (*Proposal, error) {
	var proposal Proposal
	path := "/api/problems/" + url.PathEscape(problemID) + "/proposals"
	if err := c.do(ctx, http.MethodPost, path, in, &proposal); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// UserProposals lists the proposals submitted by the authenticated user.
func (c *Client) UserProposals(ctx context.Context) ([]Proposal, error) {
	var proposals []Proposal
	if err := c.do(ctx, http.MethodGet, "/api/user/proposals", nil, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}
