// internal/models/metadata.go
package models

import "time"

// RegistrationRequest is the inbound body of POST /v1/registrations.
// CommercialRevShare is a pointer so an explicit 0 survives default
// resolution.
type RegistrationRequest struct {
	ImageContentID     string      `json:"imageContentId" validate:"required"`
	MetadataContentID  string      `json:"metadataContentId,omitempty"`
	DepthMetadata      interface{} `json:"depthMetadata,omitempty"`
	DeviceAddress      string      `json:"deviceAddress" validate:"required"`
	MintingFee         string      `json:"mintingFee,omitempty"`
	CommercialRevShare *int        `json:"commercialRevShare,omitempty" validate:"omitempty,min=0,max=100"`
}

// Creator is one entry of the provenance document's creator list. The
// contribution percentages across creators sum to 100.
type Creator struct {
	Name                string `json:"name"`
	Address             string `json:"address"`
	ContributionPercent int    `json:"contributionPercent"`
}

type IPAttribute struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// IPMetadata is the asset provenance document published to the storage
// network and bound to the registered asset. Immutable once published.
type IPMetadata struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CreatedAt   string        `json:"createdAt"`
	Creators    []Creator     `json:"creators"`
	Image       string        `json:"image"`
	ImageHash   string        `json:"imageHash"`
	MediaURL    string        `json:"mediaUrl"`
	MediaHash   string        `json:"mediaHash"`
	MediaType   string        `json:"mediaType"`
	Attributes  []IPAttribute `json:"attributes,omitempty"`
}

type NFTAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// NFTMetadata is the collectible display document for the minted token.
// Immutable once published.
type NFTMetadata struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Image        string         `json:"image"`
	AnimationURL string         `json:"animation_url,omitempty"`
	ExternalURL  string         `json:"external_url,omitempty"`
	Attributes   []NFTAttribute `json:"attributes"`
}

// RegistrationResult is produced exactly once per successful pipeline run.
type RegistrationResult struct {
	IPID               string      `json:"ipId"`
	TokenID            string      `json:"tokenId"`
	LicenseTermsIDs    []string    `json:"licenseTermsIds"`
	TxHash             string      `json:"txHash"`
	Collection         string      `json:"collection"`
	ImageContentID     string      `json:"imageContentId"`
	MetadataContentID  string      `json:"metadataContentId,omitempty"`
	DepthMetadata      interface{} `json:"depthMetadata,omitempty"`
	IPMetadataCID      string      `json:"ipMetadataCid"`
	IPMetadataURL      string      `json:"ipMetadataUrl"`
	NFTMetadataCID     string      `json:"nftMetadataCid"`
	NFTMetadataURL     string      `json:"nftMetadataUrl"`
	MintingFee         string      `json:"mintingFee"`
	CommercialRevShare int         `json:"commercialRevShare"`
	ExplorerURL        string      `json:"explorerUrl"`
	TxURL              string      `json:"txUrl"`
	RegisteredAt       time.Time   `json:"registeredAt"`
}
