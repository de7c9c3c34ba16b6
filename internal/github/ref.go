package github

import (
	"fmt"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileRef points at a file in a repository. An empty Branch means the
// repository's default branch.
type FileRef struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

// String returns "owner/repo/path", with "@branch" when one is set.
func (r FileRef) String() string {
	s := r.Owner + "/" + r.Repo
	if r.Path != "" {
		s += "/" + r.Path
	}
	if r.Branch != "" {
		s += "@" + r.Branch
	}
	return s
}

// ParseFileRef parses a file reference. Supported formats:
//   - "owner/repo/docs/post.md"
//   - "owner/repo/docs/post.md@branch"
//   - "https://github.com/owner/repo/blob/main/docs/post.md"
//   - "github.com/owner/repo/blob/main/docs/post.md"
func ParseFileRef(s string) (FileRef, error) {
	if s == "" {
		return FileRef{}, fmt.Errorf("file reference is empty")
	}
	raw := s

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.Trim(s, "/")

	var ref FileRef
	if at := strings.LastIndex(s, "@"); at >= 0 {
		ref.Branch = s[at+1:]
		s = s[:at]
	}

	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return FileRef{}, fmt.Errorf("invalid file reference: %s (expected owner/repo/path)", raw)
	}
	ref.Owner, ref.Repo = parts[0], strings.TrimSuffix(parts[1], ".git")
	rest := parts[2:]

	if len(rest) >= 3 && rest[0] == "blob" && ref.Branch == "" {
		ref.Branch = rest[1]
		rest = rest[2:]
	}
	ref.Path = strings.Join(rest, "/")

	if !namePattern.MatchString(ref.Owner) || !namePattern.MatchString(ref.Repo) {
		return FileRef{}, fmt.Errorf("invalid repository in file reference: %s", raw)
	}
	if ref.Path == "" || strings.Contains(ref.Path, "//") {
		return FileRef{}, fmt.Errorf("invalid path in file reference: %s", raw)
	}
	return ref, nil
}
