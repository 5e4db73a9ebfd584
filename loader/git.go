package loader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsRepositoryURL reports whether target names a remote git repository
// rather than a local directory.
func IsRepositoryURL(target string) bool {
	return strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "http://")
}

// CacheDir returns the directory a repository URL is cloned to:
// <tmp>/taintpass/<host>/<owner>/<repo>.
func CacheDir(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("loader: %w", err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || len(segments) < 2 {
		return "", fmt.Errorf("loader: invalid repository URL: %s", repoURL)
	}

	repo := strings.TrimSuffix(segments[1], ".git")
	return filepath.Join(os.TempDir(), "taintpass", u.Host, segments[0], repo), nil
}

// Clone shallow clones repoURL into its cache directory and returns the
// directory and the HEAD commit. An existing clone is reused.
func Clone(ctx context.Context, repoURL string) (string, string, error) {
	dir, err := CacheDir(repoURL)
	if err != nil {
		return "", "", err
	}

	var repo *git.Repository
	if _, err := os.Stat(dir); err == nil {
		repo, err = git.PlainOpen(dir)
		if err != nil {
			return dir, "", fmt.Errorf("loader: %w", err)
		}
	} else {
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:          repoURL,
			Depth:        1,
			Tags:         git.NoTags,
			SingleBranch: true,
		})
		if err != nil {
			return dir, "", fmt.Errorf("loader: failed to clone %s: %w", repoURL, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return dir, "", fmt.Errorf("loader: %w", err)
	}

	return dir, head.Hash().String(), nil
}
