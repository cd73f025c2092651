// internal/services/recordstore_service.go
package services

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

	"github.com/sirupsen/logrus"

	"github.com/framelock/capture-backend/internal/config"
	"github.com/framelock/capture-backend/internal/models"
)

const (
	recordLookupTimeout = 10 * time.Second
	recordUpdateTimeout = 5 * time.Second
)

// RecordStoreService reconciles pipeline results into the external record
// store. The store is best-effort and secondary to the ledger: every failure
// here is logged and reported as an outcome, never raised.
type RecordStoreService struct {
	config       *config.Config
	lookupClient *http.Client
	updateClient *http.Client
}

func NewRecordStoreService(cfg *config.Config) *RecordStoreService {
	return &RecordStoreService{
		config:       cfg,
		lookupClient: &http.Client{Timeout: recordLookupTimeout},
		updateClient: &http.Client{Timeout: recordUpdateTimeout},
	}
}

// Reconcile writes the explorer URL and transaction hash back onto the
// pre-existing row keyed by the image content identifier, then re-reads the
// row and verifies both fields landed byte-for-byte.
func (s *RecordStoreService) Reconcile(ctx context.Context, imageCID, explorerURL, txHash string) models.ReconcileOutcome {
	if s.config.RecordStore.URL == "" {
		return models.ReconcileOutcome{Status: models.ReconcileSkipped, Detail: "record store not configured"}
	}

	log := logrus.WithFields(logrus.Fields{
		"image_cid": imageCID,
		"tx_hash":   txHash,
	})

	row, found, err := s.lookup(ctx, imageCID)
	if err != nil {
		log.WithError(err).Error("Record store lookup failed")
		return models.ReconcileOutcome{Status: models.ReconcileFailed, Detail: err.Error()}
	}
	if !found {
		log.Warn("No record store row for capture, skipping reconciliation")
		return models.ReconcileOutcome{Status: models.ReconcileSkipped, Detail: "row not found"}
	}
	_ = row

	update := map[string]string{
		"ip":      explorerURL,
		"tx_hash": txHash,
	}
	if err := s.update(ctx, imageCID, update); err != nil {
		log.WithError(err).Error("Record store update failed")
		return models.ReconcileOutcome{Status: models.ReconcileFailed, Detail: err.Error()}
	}

	// Verify the write landed. A mismatch usually means a write-policy or
	// permission misconfiguration on the record store.
	verify, found, err := s.lookup(ctx, imageCID)
	if err != nil || !found {
		log.WithError(err).Error("Record store verification read failed")
		return models.ReconcileOutcome{Status: models.ReconcileFailed, Detail: "verification read failed"}
	}

	if asString(verify["ip"]) != explorerURL || asString(verify["tx_hash"]) != txHash {
		log.WithFields(logrus.Fields{
			"got_ip":      verify["ip"],
			"got_tx_hash": verify["tx_hash"],
		}).Error("Record store verification mismatch")
		return models.ReconcileOutcome{Status: models.ReconcileMismatch, Detail: "written fields did not match"}
	}

	log.Info("Record store row reconciled")
	return models.ReconcileOutcome{Status: models.ReconcileUpdated}
}

func (s *RecordStoreService) lookup(ctx context.Context, imageCID string) (map[string]interface{}, bool, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?image_cid=eq.%s&select=*",
		strings.TrimRight(s.config.RecordStore.URL, "/"),
		s.config.RecordStore.Table,
		url.QueryEscape(imageCID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	s.setHeaders(req)

	resp, err := s.lookupClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("record store returned status %d: %s", resp.StatusCode, truncate(string(body), 256))
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, false, fmt.Errorf("malformed record store response: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	return rows[0], true, nil
}

func (s *RecordStoreService) update(ctx context.Context, imageCID string, fields map[string]string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?image_cid=eq.%s",
		strings.TrimRight(s.config.RecordStore.URL, "/"),
		s.config.RecordStore.Table,
		url.QueryEscape(imageCID),
	)

	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.updateClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("record store update returned status %d: %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	return nil
}

func (s *RecordStoreService) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.config.RecordStore.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.config.RecordStore.APIKey)
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
