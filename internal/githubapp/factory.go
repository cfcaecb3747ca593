package githubapp

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v55/github"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Options configures how clients authenticate against GitHub
type Options struct {
	AppID          int64
	InstallationID int64
	PrivateKey     []byte
	PrivateKeyPath string

	// Token is used instead of App credentials when AppID is zero
	Token string

	// APIURL is the REST root, e.g. https://ghe.example.com/api/v3. Empty
	// means api.github.com.
	APIURL string

	// MinDelay is the minimum spacing between GitHub calls
	MinDelay time.Duration
}

// NewFactory returns a Factory creating one authenticated client per call.
// The private key is read once; installation tokens are minted by each
// client's transport.
func NewFactory(log logrus.FieldLogger, opts Options) (Factory, error) {
	rateLimiter := NewRateLimiter(log, opts.MinDelay)

	var newHTTPClient func(ctx context.Context) (*http.Client, error)

	switch {
	case opts.AppID != 0:
		key := opts.PrivateKey
		if len(key) == 0 {
			if opts.PrivateKeyPath == "" {
				return nil, errors.New("github app private key is not configured")
			}
			data, err := os.ReadFile(opts.PrivateKeyPath)
			if err != nil {
				return nil, errors.Wrap(err, "read github app private key")
			}
			key = data
		}
		// Fail at startup on a malformed key instead of on the first grant.
		if _, err := ghinstallation.New(http.DefaultTransport, opts.AppID, opts.InstallationID, key); err != nil {
			return nil, errors.Wrap(err, "create installation transport")
		}

		newHTTPClient = func(ctx context.Context) (*http.Client, error) {
			tr, err := ghinstallation.New(http.DefaultTransport, opts.AppID, opts.InstallationID, key)
			if err != nil {
				return nil, errors.Wrap(err, "create installation transport")
			}
			if opts.APIURL != "" {
				tr.BaseURL = strings.TrimSuffix(opts.APIURL, "/")
			}
			return &http.Client{Transport: tr}, nil
		}
		log.WithFields(logrus.Fields{
			"app_id":          opts.AppID,
			"installation_id": opts.InstallationID,
		}).Info("Using GitHub App installation credentials")

	case opts.Token != "":
		newHTTPClient = func(ctx context.Context) (*http.Client, error) {
			ts := oauth2.StaticTokenSource(
				&oauth2.Token{AccessToken: opts.Token},
			)
			return oauth2.NewClient(ctx, ts), nil
		}
		log.Warn("Using static GitHub token instead of GitHub App credentials")

	default:
		return nil, errors.New("no GitHub credentials configured")
	}

	return func(ctx context.Context) (Client, error) {
		httpClient, err := newHTTPClient(ctx)
		if err != nil {
			return nil, err
		}

		gh := github.NewClient(httpClient)
		if opts.APIURL != "" {
			if gh, err = withBaseURL(gh, opts.APIURL); err != nil {
				return nil, err
			}
		}

		return NewClient(log, gh, rateLimiter), nil
	}, nil
}

// withBaseURL points the client at a REST root other than api.github.com
func withBaseURL(gh *github.Client, apiURL string) (*github.Client, error) {
	u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "parse GitHub API URL %q", apiURL)
	}
	gh.BaseURL = u
	return gh, nil
}
