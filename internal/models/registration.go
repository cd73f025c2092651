// internal/models/registration.go
package models

import (
	"github.com/lib/pq"
)

// CollectionContract persists the on-chain collection address so a process
// restart reuses the collection instead of creating a fresh one.
type CollectionContract struct {
	BaseModel
	ChainID int64  `json:"chain_id" gorm:"not null;uniqueIndex"`
	Address string `json:"address" gorm:"size:42;not null"`
	TxHash  string `json:"tx_hash" gorm:"size:66"`
}

// CaptureRegistration is the append-only audit row written after each
// successful pipeline run. It is never updated.
type CaptureRegistration struct {
	BaseModel
	ImageCID        string         `json:"image_cid" gorm:"size:128;not null;index"`
	MetadataCID     string         `json:"metadata_cid,omitempty" gorm:"size:128"`
	DeviceAddress   string         `json:"device_address" gorm:"size:42;not null"`
	IPID            string         `json:"ip_id" gorm:"column:ip_id;size:42;not null"`
	TokenID         string         `json:"token_id" gorm:"size:78"`
	LicenseTermsIDs pq.StringArray `json:"license_terms_ids" gorm:"type:text[]"`
	TxHash          string         `json:"tx_hash" gorm:"size:66;not null"`
	IPMetadataCID   string         `json:"ip_metadata_cid" gorm:"column:ip_metadata_cid;size:128"`
	NFTMetadataCID  string         `json:"nft_metadata_cid" gorm:"column:nft_metadata_cid;size:128"`
	MintingFee      string         `json:"minting_fee" gorm:"size:78"`
	RevSharePercent int            `json:"rev_share_percent"`
	ReconcileStatus string         `json:"reconcile_status" gorm:"size:20"`
}

// Reconciliation outcomes. Reconciliation is best-effort: none of these ever
// fails the pipeline.
type ReconcileStatus string

const (
	ReconcileUpdated  ReconcileStatus = "updated"
	ReconcileSkipped  ReconcileStatus = "skipped"
	ReconcileFailed   ReconcileStatus = "failed"
	ReconcileMismatch ReconcileStatus = "mismatch"
)

// ReconcileOutcome is the explicit two-outcome result of the record-store
// write-back. It is logged and counted, never joined into the error channel.
type ReconcileOutcome struct {
	Status ReconcileStatus `json:"status"`
	Detail string          `json:"detail,omitempty"`
}

func (o ReconcileOutcome) OK() bool {
	return o.Status == ReconcileUpdated || o.Status == ReconcileSkipped
}
