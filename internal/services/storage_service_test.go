// internal/services/storage_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framelock/capture-backend/internal/config"
)

func storageConfig(gateway, pin string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			GatewayURL:  gateway,
			PinEndpoint: pin,
			APIKey:      "key",
			APISecret:   "secret",
		},
	}
}

func TestFetchJSONReturnsPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/Qmeta1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"depthData": map[string]interface{}{"points": 3}},
		})
	}))
	defer ts.Close()

	svc := NewStorageService(storageConfig(ts.URL, ""))

	payload, err := svc.FetchJSON(context.Background(), "Qmeta1")
	require.NoError(t, err)
	data, ok := payload["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "depthData")
}

func TestFetchJSONWrapsFailuresAsContentFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	svc := NewStorageService(storageConfig(ts.URL, ""))

	_, err := svc.FetchJSON(context.Background(), "Qmissing")
	var fetchErr *ContentFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "Qmissing", fetchErr.CID)
}

func TestFetchJSONRejectsNonJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	svc := NewStorageService(storageConfig(ts.URL, ""))

	_, err := svc.FetchJSON(context.Background(), "Qhtml")
	var fetchErr *ContentFetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestPublishJSONPinsDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "pinataContent")
		meta, ok := body["pinataMetadata"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ip-metadata-Qimg1", meta["name"])

		json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QpinnedDoc"})
	}))
	defer ts.Close()

	svc := NewStorageService(storageConfig("", ts.URL))

	cid, err := svc.PublishJSON(context.Background(), "ip-metadata-Qimg1", map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "QpinnedDoc", cid)
}

func TestPublishJSONErrorStatusIsPublishError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer ts.Close()

	svc := NewStorageService(storageConfig("", ts.URL))

	_, err := svc.PublishJSON(context.Background(), "doc", map[string]string{"a": "b"})
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Contains(t, pubErr.Error(), "401")
}

func TestPublishJSONMissingHashIsPublishError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"Timestamp": "2026-08-23T00:00:00Z"})
	}))
	defer ts.Close()

	svc := NewStorageService(storageConfig("", ts.URL))

	_, err := svc.PublishJSON(context.Background(), "doc", map[string]string{"a": "b"})
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
}
