package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/keyfit/internal/errors"
)

func TestParseFileRef(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    FileRef
		wantErr bool
	}{
		{
			name: "short form",
			in:   "acme/blog/posts/oil.md",
			want: FileRef{Owner: "acme", Repo: "blog", Path: "posts/oil.md"},
		},
		{
			name: "short form with branch",
			in:   "acme/blog/posts/oil.md@draft",
			want: FileRef{Owner: "acme", Repo: "blog", Branch: "draft", Path: "posts/oil.md"},
		},
		{
			name: "blob URL",
			in:   "https://github.com/acme/blog/blob/main/posts/oil.md",
			want: FileRef{Owner: "acme", Repo: "blog", Branch: "main", Path: "posts/oil.md"},
		},
		{
			name: "host without scheme",
			in:   "github.com/acme/blog/blob/v2/README.md",
			want: FileRef{Owner: "acme", Repo: "blog", Branch: "v2", Path: "README.md"},
		},
		{
			name: "dots hyphens underscores",
			in:   "my-org.x/my_repo/a.md",
			want: FileRef{Owner: "my-org.x", Repo: "my_repo", Path: "a.md"},
		},
		{name: "empty", in: "", wantErr: true},
		{name: "missing path", in: "acme/blog", wantErr: true},
		{name: "bad owner", in: "ac me/blog/a.md", wantErr: true},
		{name: "empty segment", in: "acme/blog/a//b.md", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileRefString(t *testing.T) {
	assert.Equal(t, "acme/blog/posts/oil.md", FileRef{Owner: "acme", Repo: "blog", Path: "posts/oil.md"}.String())
	assert.Equal(t, "acme/blog/a.md@dev", FileRef{Owner: "acme", Repo: "blog", Branch: "dev", Path: "a.md"}.String())
}

type fakeREST struct {
	path     string
	response fileContentsResponse
	err      error
}

func (f *fakeREST) DoWithContext(_ context.Context, method, path string, _ io.Reader, response interface{}) error {
	f.path = path
	if f.err != nil {
		return f.err
	}
	*(response.(*fileContentsResponse)) = f.response
	return nil
}

func TestFetchFile(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("The oil type matters."))
	rest := &fakeREST{response: fileContentsResponse{
		Type:    "file",
		Content: encoded[:10] + "\n" + encoded[10:],
		SHA:     "abc123",
	}}
	c := &Client{rest: rest}
	ref := FileRef{Owner: "acme", Repo: "blog", Branch: "main", Path: "posts/oil change.md"}

	f, err := c.FetchFile(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, "The oil type matters.", f.Content)
	assert.Equal(t, "abc123", f.SHA)
	assert.Equal(t, ref, f.Ref)
	assert.Equal(t, "repos/acme/blog/contents/posts/oil%20change.md?ref=main", rest.path)
}

func TestFetchFile_Errors(t *testing.T) {
	ref := FileRef{Owner: "acme", Repo: "blog", Path: "a.md"}

	tests := []struct {
		name string
		rest *fakeREST
		ref  FileRef
		msg  string
	}{
		{"missing fields", &fakeREST{}, FileRef{Owner: "acme"}, "required"},
		{"not found", &fakeREST{err: &api.HTTPError{StatusCode: http.StatusNotFound}}, ref, "file not found"},
		{"server error", &fakeREST{err: fmt.Errorf("boom")}, ref, "boom"},
		{"directory", &fakeREST{response: fileContentsResponse{Type: "dir"}}, ref, "not a file"},
		{"bad encoding", &fakeREST{response: fileContentsResponse{Type: "file", Content: "!!!"}}, ref, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Client{rest: tt.rest}).FetchFile(context.Background(), tt.ref)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrFetchFailed))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
