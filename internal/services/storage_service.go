// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/framelock/capture-backend/internal/config"
)

const (
	fetchTimeout   = 30 * time.Second
	publishTimeout = 30 * time.Second
)

// StorageService talks to the content-addressable storage network: fetches
// already-pinned JSON through the read gateway and publishes new JSON
// documents through the pinning endpoint.
type StorageService struct {
	config      *config.Config
	fetchClient *http.Client
	pinClient   *http.Client
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func NewStorageService(cfg *config.Config) *StorageService {
	return &StorageService{
		config:      cfg,
		fetchClient: &http.Client{Timeout: fetchTimeout},
		pinClient:   &http.Client{Timeout: publishTimeout},
	}
}

// FetchJSON resolves a content identifier to its JSON payload through the
// gateway. Failures are recoverable for the caller: the orchestrator falls
// back to a placeholder payload.
func (s *StorageService) FetchJSON(ctx context.Context, cid string) (map[string]interface{}, error) {
	url := GatewayURL(s.config.Storage.GatewayURL, cid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ContentFetchError{CID: cid, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.fetchClient.Do(req)
	if err != nil {
		return nil, &ContentFetchError{CID: cid, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ContentFetchError{CID: cid, Err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ContentFetchError{CID: cid, Err: err}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ContentFetchError{CID: cid, Err: fmt.Errorf("invalid JSON payload: %w", err)}
	}

	return payload, nil
}

// PublishJSON pins a JSON document and returns its content identifier.
// Failure is fatal to the pipeline run; retry policy, if any, belongs to the
// caller and the reference behavior performs none.
func (s *StorageService) PublishJSON(ctx context.Context, name string, content interface{}) (string, error) {
	payload := map[string]interface{}{
		"pinataContent": content,
		"pinataMetadata": map[string]interface{}{
			"name": name,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &PublishError{Detail: "failed to serialize pin request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Storage.PinEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", &PublishError{Detail: "failed to build pin request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("pinata_api_key", s.config.Storage.APIKey)
	req.Header.Set("pinata_secret_api_key", s.config.Storage.APISecret)

	resp, err := s.pinClient.Do(req)
	if err != nil {
		return "", &PublishError{Detail: "pin request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &PublishError{Detail: "failed to read pin response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &PublishError{Detail: fmt.Sprintf("pinning endpoint returned status %d: %s", resp.StatusCode, truncate(string(respBody), 256))}
	}

	var pinned pinResponse
	if err := json.Unmarshal(respBody, &pinned); err != nil {
		return "", &PublishError{Detail: "malformed pin response", Err: err}
	}

	if pinned.IpfsHash == "" {
		return "", &PublishError{Detail: "pin response missing content identifier"}
	}

	return pinned.IpfsHash, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
