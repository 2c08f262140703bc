package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPRegistry queries an external collection-metadata API (OpenSea style).
type HTTPRegistry struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// RegistryConfig describes the metadata API endpoint.
type RegistryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPRegistry constructs a metadata registry client.
func NewHTTPRegistry(cfg RegistryConfig) (*HTTPRegistry, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("registry base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRegistry{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type registryResponse struct {
	Collection struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"collection"`
}

// Lookup implements Registry. Callers substitute UnknownCollection on error.
func (r *HTTPRegistry) Lookup(ctx context.Context, collection string) (CollectionMetadata, error) {
	endpoint := fmt.Sprintf("%s/asset_contract/%s", r.baseURL, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CollectionMetadata{}, fmt.Errorf("build registry request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("X-API-KEY", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return CollectionMetadata{}, fmt.Errorf("registry lookup %s: %w", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CollectionMetadata{}, fmt.Errorf("registry lookup %s: status %d", collection, resp.StatusCode)
	}

	var payload registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CollectionMetadata{}, fmt.Errorf("decode registry response: %w", err)
	}

	meta := CollectionMetadata{
		Name:        payload.Collection.Name,
		Description: payload.Collection.Description,
	}
	if meta.Name == "" {
		meta.Name = UnknownCollection().Name
	}
	return meta, nil
}
