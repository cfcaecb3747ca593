package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// HTTPSource reads groups from a Backstage-compatible catalog API
type HTTPSource struct {
	log        logrus.FieldLogger
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPSource creates a catalog source for the given base URL
func NewHTTPSource(log logrus.FieldLogger, baseURL, token string) *HTTPSource {
	return &HTTPSource{
		log:     log.WithField("component", "catalog"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Groups fetches all Group entities
func (s *HTTPSource) Groups(ctx context.Context) ([]domain.Group, error) {
	u, err := url.Parse(s.baseURL + "/api/catalog/entities")
	if err != nil {
		return nil, err
	}
	u.RawQuery = url.Values{"filter": {"kind=group"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog groups: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog error: %s - %s", resp.Status, string(body))
	}

	var entities []entity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("failed to decode catalog groups: %w", err)
	}

	var groups []domain.Group
	for i := range entities {
		if entities[i].isGroup() {
			groups = append(groups, entities[i].toGroup())
		}
	}

	s.log.WithField("groups", len(groups)).Debug("Loaded catalog groups")

	return groups, nil
}
