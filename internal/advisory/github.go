package advisory

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/go-github/v60/github"

	"github.com/huangsam/patchcorpus/schema"
)

// GitHubFetcher reads advisories from the GitHub global advisory database.
type GitHubFetcher struct {
	client *github.Client
}

// NewGitHubFetcher creates a fetcher. An empty token uses anonymous access,
// which GitHub rate-limits heavily.
func NewGitHubFetcher(token string) *GitHubFetcher {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubFetcher{client: client}
}

// NewGitHubFetcherWithClient wraps an existing client.
func NewGitHubFetcherWithClient(client *github.Client) *GitHubFetcher {
	return &GitHubFetcher{client: client}
}

// Fetch retrieves each advisory by GHSA id, in order. The first failure stops
// the fetch and is returned with the advisories fetched so far.
func (f *GitHubFetcher) Fetch(ctx context.Context, ids []string) ([]schema.FeedAdvisory, error) {
	out := make([]schema.FeedAdvisory, 0, len(ids))
	for _, id := range ids {
		adv, err := f.fetchOne(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, adv)
	}
	return out, nil
}

func (f *GitHubFetcher) fetchOne(ctx context.Context, id string) (schema.FeedAdvisory, error) {
	var adv schema.FeedAdvisory
	req, err := f.client.NewRequest("GET", "advisories/"+url.PathEscape(id), nil)
	if err != nil {
		return adv, fmt.Errorf("build request for %s: %w", id, err)
	}
	if _, err := f.client.Do(ctx, req, &adv); err != nil {
		return adv, fmt.Errorf("fetch advisory %s: %w", id, err)
	}
	if adv.References == nil {
		adv.References = []string{}
	}
	return adv, nil
}
