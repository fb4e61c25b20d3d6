package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/ledgernotes/internal/apperr"
)

// GraphQL queries the indexer's GraphQL endpoint.
type GraphQL struct {
	endpoint string
	apiKey   string
	schema   Schema
	query    string
	http     *http.Client
}

// NewGraphQL creates a GraphQL lookup. apiKey is sent as a bearer credential.
func NewGraphQL(endpoint, apiKey string, schema Schema, timeout time.Duration) (*GraphQL, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("indexer: invalid endpoint %q: %w", endpoint, apperr.ErrConfig)
	}
	if err := schema.validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GraphQL{
		endpoint: u.String(),
		apiKey:   apiKey,
		schema:   schema,
		query:    buildQuery(schema),
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func buildQuery(s Schema) string {
	return fmt.Sprintf(
		"query UserStore($user: String!) { %s(where: {%s: {_eq: $user}}, limit: 1) { %s } }",
		s.Table, s.UserField, s.AddressField)
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data   map[string][]map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// LookupAddress returns the raw address field of the first matching row, or
// nil when no row matches. userID is expected to be normalised already.
func (g *GraphQL) LookupAddress(ctx context.Context, userID string) (any, error) {
	body, err := json.Marshal(gqlRequest{Query: g.query, Variables: map[string]any{"user": userID}})
	if err != nil {
		return nil, fmt.Errorf("indexer: encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("indexer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer: query: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("indexer: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out gqlResponse
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("indexer: decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("indexer: graphql: %s", out.Errors[0].Message)
	}

	rows := out.Data[g.schema.Table]
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0][g.schema.AddressField], nil
}
