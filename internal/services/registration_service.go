// internal/services/registration_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/framelock/capture-backend/internal/config"
	"github.com/framelock/capture-backend/internal/metrics"
	"github.com/framelock/capture-backend/internal/models"
	"github.com/framelock/capture-backend/internal/utils"
)

// ContentStore is the storage network surface the pipeline needs.
type ContentStore interface {
	FetchJSON(ctx context.Context, cid string) (map[string]interface{}, error)
	PublishJSON(ctx context.Context, name string, content interface{}) (string, error)
}

// Ledger is the chain surface the pipeline needs.
type Ledger interface {
	ProvisionCollection(ctx context.Context) (string, error)
	RegisterAsset(ctx context.Context, params ChainRegisterParams) (*ChainRegisterResult, error)
}

// RecordReconciler writes results back to the external record store.
type RecordReconciler interface {
	Reconcile(ctx context.Context, imageCID, explorerURL, txHash string) models.ReconcileOutcome
}

// DocumentArchiver mirrors published documents; may be absent.
type DocumentArchiver interface {
	ArchiveDocument(cid string, doc interface{})
}

// LicenseParams are the resolved per-run license values after merging request
// overrides with process defaults.
type LicenseParams struct {
	MintingFee      string
	RevSharePercent int
}

// ResolveLicenseParams merges request overrides with process defaults. An
// explicit zero revenue share is an override, not an absence.
func ResolveLicenseParams(req *models.RegistrationRequest, defaults config.LicenseConfig) LicenseParams {
	params := LicenseParams{
		MintingFee:      defaults.DefaultMintingFee,
		RevSharePercent: defaults.DefaultRevSharePercent,
	}
	if req.MintingFee != "" {
		params.MintingFee = req.MintingFee
	}
	if req.CommercialRevShare != nil {
		params.RevSharePercent = *req.CommercialRevShare
	}
	return params
}

// RegistrationService orchestrates the pipeline: validate, resolve depth,
// provision the collection, publish both documents, register on chain,
// reconcile the record store. Stages run in strict sequence; the first fatal
// error short-circuits the rest. Nothing already published or minted is ever
// rolled back.
type RegistrationService struct {
	db      *gorm.DB
	store   ContentStore
	ledger  Ledger
	records RecordReconciler
	archive DocumentArchiver
	config  *config.Config
}

func NewRegistrationService(db *gorm.DB, store ContentStore, ledger Ledger, records RecordReconciler, archive DocumentArchiver, cfg *config.Config) *RegistrationService {
	return &RegistrationService{
		db:      db,
		store:   store,
		ledger:  ledger,
		records: records,
		archive: archive,
		config:  cfg,
	}
}

func (s *RegistrationService) Register(ctx context.Context, req *models.RegistrationRequest) (*models.RegistrationResult, error) {
	// Fast-fail validation: no external call happens before this passes.
	if err := s.validateRequest(req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	params := ResolveLicenseParams(req, s.config.License)

	log := logrus.WithFields(logrus.Fields{
		"image_cid": req.ImageContentID,
		"device":    req.DeviceAddress,
	})
	log.Info("Starting capture registration")

	depthPayload, placeholder := s.resolveDepthPayload(ctx, req)

	collection, err := s.ledger.ProvisionCollection(ctx)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	ipDoc, nftDoc := BuildMetadataDocuments(MetadataInput{
		ImageCID:         req.ImageContentID,
		MetadataCID:      req.MetadataContentID,
		DepthPayload:     depthPayload,
		DepthPlaceholder: placeholder,
		DeviceAddress:    req.DeviceAddress,
		MintingFee:       params.MintingFee,
		RevSharePercent:  params.RevSharePercent,
		GatewayURL:       s.config.Storage.GatewayURL,
	})

	ipCID, err := s.store.PublishJSON(ctx, "ip-metadata-"+req.ImageContentID, ipDoc)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	nftCID, err := s.store.PublishJSON(ctx, "nft-metadata-"+req.ImageContentID, nftDoc)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	if s.archive != nil {
		go s.archive.ArchiveDocument(ipCID, ipDoc)
		go s.archive.ArchiveDocument(nftCID, nftDoc)
	}

	_, ipHash, err := DocumentDigest(ipDoc)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, &PublishError{Detail: "failed to hash provenance document", Err: err}
	}
	_, nftHash, err := DocumentDigest(nftDoc)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, &PublishError{Detail: "failed to hash collectible document", Err: err}
	}

	chainResult, err := s.ledger.RegisterAsset(ctx, ChainRegisterParams{
		Collection:      collection,
		IPMetadataURI:   GatewayURL(s.config.Storage.GatewayURL, ipCID),
		IPMetadataHash:  ipHash,
		NFTMetadataURI:  GatewayURL(s.config.Storage.GatewayURL, nftCID),
		NFTMetadataHash: nftHash,
		MintingFee:      params.MintingFee,
		RevSharePercent: params.RevSharePercent,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	explorerURL := fmt.Sprintf("%s/ipa/%s", s.config.Chain.ExplorerBaseURL, chainResult.IPID)
	txURL := fmt.Sprintf("%s/tx/%s", s.config.Chain.TxExplorerBaseURL, chainResult.TxHash)

	// The ledger is authoritative from here on: reconciliation is observed,
	// never joined into the error channel.
	outcome := s.records.Reconcile(ctx, req.ImageContentID, explorerURL, chainResult.TxHash)
	metrics.ReconcileOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	if !outcome.OK() {
		log.WithFields(logrus.Fields{
			"status": outcome.Status,
			"detail": outcome.Detail,
		}).Warn("Record store reconciliation did not land")
	}

	result := &models.RegistrationResult{
		IPID:               chainResult.IPID,
		TokenID:            chainResult.TokenID,
		LicenseTermsIDs:    chainResult.LicenseTermsIDs,
		TxHash:             chainResult.TxHash,
		Collection:         collection,
		ImageContentID:     req.ImageContentID,
		MetadataContentID:  req.MetadataContentID,
		DepthMetadata:      depthPayload,
		IPMetadataCID:      ipCID,
		IPMetadataURL:      GatewayURL(s.config.Storage.GatewayURL, ipCID),
		NFTMetadataCID:     nftCID,
		NFTMetadataURL:     GatewayURL(s.config.Storage.GatewayURL, nftCID),
		MintingFee:         params.MintingFee,
		CommercialRevShare: params.RevSharePercent,
		ExplorerURL:        explorerURL,
		TxURL:              txURL,
		RegisteredAt:       time.Now().UTC(),
	}

	s.persistAudit(req, result, outcome)

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	log.WithFields(logrus.Fields{
		"ip_id":   result.IPID,
		"tx_hash": result.TxHash,
	}).Info("Capture registered")

	return result, nil
}

func (s *RegistrationService) validateRequest(req *models.RegistrationRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		if verrs := utils.GetValidationErrors(err); len(verrs) > 0 {
			return &RequestValidationError{Field: verrs[0].Field, Reason: verrs[0].Message}
		}
		return &RequestValidationError{Field: "request", Reason: err.Error()}
	}

	if req.CommercialRevShare != nil && (*req.CommercialRevShare < 0 || *req.CommercialRevShare > 100) {
		return &RequestValidationError{Field: "commercialRevShare", Reason: "must be between 0 and 100"}
	}

	if req.MintingFee != "" {
		if _, err := ParseTokenUnits(req.MintingFee); err != nil {
			return &RequestValidationError{Field: "mintingFee", Reason: err.Error()}
		}
	}

	return nil
}

// resolveDepthPayload never errors: absent depth data yields a placeholder,
// and a failed metadata fetch falls back to a minimal payload naming the
// unresolvable identifier.
func (s *RegistrationService) resolveDepthPayload(ctx context.Context, req *models.RegistrationRequest) (interface{}, bool) {
	if req.DepthMetadata != nil {
		return req.DepthMetadata, false
	}

	if req.MetadataContentID == "" {
		return nil, true
	}

	payload, err := s.store.FetchJSON(ctx, req.MetadataContentID)
	if err != nil {
		var fetchErr *ContentFetchError
		if errors.As(err, &fetchErr) {
			logrus.WithError(err).WithField("metadata_cid", req.MetadataContentID).
				Warn("Metadata fetch failed, using placeholder depth payload")
		}
		return map[string]interface{}{"metadataContentId": req.MetadataContentID}, true
	}

	return extractDepthData(payload), false
}

// extractDepthData pulls a nested depth-data field out of a fetched payload,
// falling back to the payload itself.
func extractDepthData(payload map[string]interface{}) interface{} {
	if depth, ok := payload["depthData"]; ok {
		return depth
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		if depth, ok := data["depthData"]; ok {
			return depth
		}
	}
	return payload
}

func (s *RegistrationService) persistAudit(req *models.RegistrationRequest, result *models.RegistrationResult, outcome models.ReconcileOutcome) {
	if s.db == nil {
		return
	}

	row := &models.CaptureRegistration{
		ImageCID:        req.ImageContentID,
		MetadataCID:     req.MetadataContentID,
		DeviceAddress:   req.DeviceAddress,
		IPID:            result.IPID,
		TokenID:         result.TokenID,
		LicenseTermsIDs: result.LicenseTermsIDs,
		TxHash:          result.TxHash,
		IPMetadataCID:   result.IPMetadataCID,
		NFTMetadataCID:  result.NFTMetadataCID,
		MintingFee:      result.MintingFee,
		RevSharePercent: result.CommercialRevShare,
		ReconcileStatus: string(outcome.Status),
	}
	if err := s.db.Create(row).Error; err != nil {
		logrus.WithError(err).Warn("Failed to persist registration audit row")
	}
}

// Recent returns the latest audit rows for the read endpoints.
func (s *RegistrationService) Recent(params utils.PaginationParams) ([]models.CaptureRegistration, int64, error) {
	if s.db == nil {
		return nil, 0, fmt.Errorf("registration history is not available without a database")
	}

	query := s.db.Model(&models.CaptureRegistration{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "image_cid"})
	query = utils.ApplyPagination(query, params)

	var rows []models.CaptureRegistration
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch registrations: %w", err)
	}

	return rows, total, nil
}

// ByImageCID returns the most recent audit row for one capture.
func (s *RegistrationService) ByImageCID(imageCID string) (*models.CaptureRegistration, error) {
	if s.db == nil {
		return nil, fmt.Errorf("registration history is not available without a database")
	}

	var row models.CaptureRegistration
	err := s.db.Where("image_cid = ?", imageCID).Order("created_at DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("registration not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &row, nil
}
