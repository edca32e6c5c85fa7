package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListProblemsOptions filters and orders a problem listing.
type ListProblemsOptions struct {
	Category string // empty means all categories
	Sort     string // "newest", "upvotes", "budget"
	Limit    int
}

// ListProblems returns problems matching opts.
func (c *Client) ListProblems(ctx context.Context, opts ListProblemsOptions) ([]Problem, error) {
	q := url.Values{}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/problems"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var problems []Problem
	if err := c.do(ctx, http.MethodGet, path, nil, &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

// GetProblem fetches one problem by id.
func (c *Client) GetProblem(ctx context.Context, id string) (*Problem, error) {
	var problem Problem
	if err := c.do(ctx, http.MethodGet, "/api/problems/"+url.PathEscape(id), nil, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

// CreateProblem posts a new problem.
func (c *Client) CreateProblem(ctx context.Context, in CreateProblemInput) (*Problem, error) {
	var problem Problem
	if err := c.do(ctx, http.MethodPost, "/api/problems", in, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

// UpdateProblem replaces the caller's problem. Only the author may update.
func (c *Client) UpdateProblem(ctx context.Context, id string, in CreateProblemInput) (*Problem, error) {
	var problem Problem
	if err := c.do(ctx, http.MethodPut, "/api/problems/"+url.PathEscape(id), in, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

// DeleteProblem removes the caller's problem.
func (c *Client) DeleteProblem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/problems/"+url.PathEscape(id), nil, nil)
}

// SearchProblems runs a free-text search over titles and descriptions.
func (c *Client) SearchProblems(ctx context.Context, query string) ([]Problem, error) {
	q := url.Values{"q": {query}}
	var problems []Problem
	if err := c.do(ctx, http.MethodGet, "/api/problems/search?"+q.Encode(), nil, &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

// UserProblems lists the problems posted by the authenticated user.
func (c *Client) UserProblems(ctx context.Context) ([]Problem, error) {
	var problems []Problem
	if err := c.do(ctx, http.MethodGet, "/api/user/problems", nil, &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

// UpvoteProblem records the authenticated user's upvote.
func (c *Client) UpvoteProblem(ctx context.Context, id string) (*Problem, error) {
	var problem Problem
	if err := c.do(ctx, http.MethodPost, "/api/problems/"+url.PathEscape(id)+"/upvote", nil, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

// RemoveUpvote withdraws the authenticated user's upvote.
func (c *Client) RemoveUpvote(ctx context.Context, id string) (*Problem, error) {
	var problem Problem
	if err := c.do(ctx, http.MethodDelete, "/api/problems/"+url.PathEscape(id)+"/upvote", nil, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}
