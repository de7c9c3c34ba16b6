package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/HartBrook/keyfit/internal/errors"
)

// restGetter is the part of the go-gh REST client the fetcher uses.
type restGetter interface {
	DoWithContext(ctx context.Context, method, path string, body io.Reader, response interface{}) error
}

// Client wraps the GitHub contents API.
type Client struct {
	rest restGetter
}

// File is a fetched document.
type File struct {
	Ref     FileRef
	Content string
	SHA     string
}

// NewClient creates a GitHub client. It authenticates with the resolved
// token when there is one and falls back to anonymous access, which works
// for public repositories only.
func NewClient() (*Client, error) {
	client, err := api.NewRESTClient(api.ClientOptions{AuthToken: GetToken()})
	if err != nil {
		return nil, err
	}
	return &Client{rest: client}, nil
}

// fileContentsResponse represents GitHub's contents API response.
type fileContentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

// FetchFile fetches the file ref points at.
func (c *Client) FetchFile(ctx context.Context, ref FileRef) (*File, error) {
	if ref.Owner == "" || ref.Repo == "" || ref.Path == "" {
		return nil, errors.FetchFailed(ref.String(), fmt.Errorf("owner, repo, and path are required"))
	}

	endpoint := fmt.Sprintf("repos/%s/%s/contents/%s", ref.Owner, ref.Repo, escapePath(ref.Path))
	if ref.Branch != "" {
		endpoint += "?ref=" + url.QueryEscape(ref.Branch)
	}

	var response fileContentsResponse
	if err := c.rest.DoWithContext(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		if httpErr, ok := err.(*api.HTTPError); ok && httpErr.StatusCode == http.StatusNotFound {
			return nil, errors.FetchFailed(ref.String(), fmt.Errorf("file not found"))
		}
		return nil, errors.FetchFailed(ref.String(), err)
	}

	if response.Type != "file" {
		return nil, errors.FetchFailed(ref.String(), fmt.Errorf("path is a %s, not a file", response.Type))
	}

	content, err := base64.StdEncoding.DecodeString(response.Content)
	if err != nil {
		return nil, errors.FetchFailed(ref.String(), fmt.Errorf("failed to decode content: %w", err))
	}

	return &File{Ref: ref, Content: string(content), SHA: response.SHA}, nil
}

// escapePath escapes each segment of a repository path.
func escapePath(path string) string {
	u := url.URL{Path: path}
	return u.EscapedPath()
}
