package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codyseavey/card-catalog/internal/models"
)

const remoteDefaultTimeout = 30 * time.Second

// ErrRemoteFallback means the remote server answered with its own fallback
// catalog because its store was unreachable.
var ErrRemoteFallback = errors.New("catalog server is serving its fallback catalog")

// RemoteCatalogClient reads the catalog from another catalog server over
// HTTP. It lets a process that does not own the database run its own cache
// and consumers against a remote source of truth.
type RemoteCatalogClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewRemoteCatalogClient creates a client for the server at baseURL.
// token is only needed for admin calls.
func NewRemoteCatalogClient(baseURL, token string) *RemoteCatalogClient {
	return &RemoteCatalogClient{
		client: &http.Client{
			Timeout: remoteDefaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// FetchCatalog implements CatalogFetcher over GET /api/catalog.
func (s *RemoteCatalogClient) FetchCatalog(ctx context.Context, includeAlternates bool) ([]models.Card, error) {
	q := url.Values{}
	q.Set("includeAlternates", strconv.FormatBool(includeAlternates))
	reqURL := fmt.Sprintf("%s/api/catalog?%s", s.baseURL, q.Encode())

	var catalog models.CatalogResponse
	if err := s.getJSON(ctx, reqURL, &catalog); err != nil {
		return nil, err
	}

	if catalog.Source == SourceFallback {
		return nil, ErrRemoteFallback
	}

	cards := make([]models.Card, 0, len(catalog.Cards)+len(catalog.AlternateCards))
	cards = append(cards, catalog.Cards...)
	cards = append(cards, catalog.AlternateCards...)
	return cards, nil
}

// Version returns the remote server's current catalog version.
func (s *RemoteCatalogClient) Version(ctx context.Context) (uint64, error) {
	var resp struct {
		Version uint64 `json:"version"`
	}
	if err := s.getJSON(ctx, s.baseURL+"/api/catalog/version", &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// ApplyBanList submits a ban-list batch to the remote server.
func (s *RemoteCatalogClient) ApplyBanList(ctx context.Context, updates []models.BanListUpdate) (*models.BanListBatchResponse, error) {
	body, err := json.Marshal(models.BanListBatchRequest{Updates: updates})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/api/admin/ban-list/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit ban-list batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeRemoteError(resp)
	}

	var batch models.BanListBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode ban-list response: %w", err)
	}
	return &batch, nil
}

func (s *RemoteCatalogClient) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach catalog server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeRemoteError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("catalog server returned status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("catalog server returned status %d", resp.StatusCode)
}
