// internal/services/metadata_service.go
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/framelock/capture-backend/internal/models"
)

const platformName = "FrameLock"

// MetadataInput is everything the builder needs. Apart from the embedded
// wall-clock timestamps the build is deterministic.
type MetadataInput struct {
	ImageCID         string
	MetadataCID      string
	DepthPayload     interface{}
	DepthPlaceholder bool
	DeviceAddress    string
	MintingFee       string
	RevSharePercent  int
	GatewayURL       string
}

// ContentDigest returns the 0x-prefixed SHA-256 hex digest of a raw string.
// The image and media hash fields are digests of the content identifier
// strings themselves, not of any document bytes.
func ContentDigest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "0x" + hex.EncodeToString(sum[:])
}

// DocumentDigest serializes a document and returns its 0x-prefixed SHA-256
// hex digest together with the raw 32 bytes used for on-chain binding.
func DocumentDigest(doc interface{}) (string, [32]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", [32]byte{}, fmt.Errorf("failed to serialize document: %w", err)
	}
	sum := sha256.Sum256(raw)
	return "0x" + hex.EncodeToString(sum[:]), sum, nil
}

// ContentURI is the scheme-prefixed form embedded inside documents.
func ContentURI(cid string) string {
	return "ipfs://" + cid
}

// GatewayURL is the externally-displayed HTTP form. The two forms must never
// be conflated: documents embed ContentURI, API responses and on-chain
// bindings use GatewayURL.
func GatewayURL(gateway, cid string) string {
	return strings.TrimRight(gateway, "/") + "/ipfs/" + cid
}

// BuildMetadataDocuments constructs the asset provenance document and the
// collectible display document from a single capture.
func BuildMetadataDocuments(in MetadataInput) (models.IPMetadata, models.NFTMetadata) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339)

	mediaCID := in.MetadataCID
	mediaType := "application/json"
	if mediaCID == "" {
		mediaCID = in.ImageCID
		mediaType = "image/jpeg"
	}

	depthValue := in.DepthPayload
	if depthValue == nil {
		depthValue = "Depth data not available for this capture"
	}

	ipDoc := models.IPMetadata{
		Title:       fmt.Sprintf("%s Depth Capture %s", platformName, now.Format("2006-01-02 15:04:05")),
		Description: fmt.Sprintf("Depth camera capture registered by device %s", in.DeviceAddress),
		CreatedAt:   timestamp,
		Creators: []models.Creator{
			{
				Name:                "FrameLock Capture Device",
				Address:             in.DeviceAddress,
				ContributionPercent: 100,
			},
		},
		Image:     ContentURI(in.ImageCID),
		ImageHash: ContentDigest(in.ImageCID),
		MediaURL:  ContentURI(mediaCID),
		MediaHash: ContentDigest(mediaCID),
		MediaType: mediaType,
		Attributes: []models.IPAttribute{
			{Key: "Platform", Value: platformName},
			{Key: "Device Address", Value: in.DeviceAddress},
			{Key: "Capture Timestamp", Value: timestamp},
			{Key: "Depth Data", Value: depthValue},
			{Key: "Minting Fee", Value: in.MintingFee},
			{Key: "Commercial Revenue Share", Value: in.RevSharePercent},
		},
	}

	hasDepth := in.DepthPayload != nil && !in.DepthPlaceholder

	nftDoc := models.NFTMetadata{
		Name:        fmt.Sprintf("%s Capture #%s", platformName, shortCID(in.ImageCID)),
		Description: fmt.Sprintf("Collectible for a depth camera capture registered on %s", timestamp),
		Image:       ContentURI(in.ImageCID),
		ExternalURL: GatewayURL(in.GatewayURL, in.ImageCID),
		Attributes: []models.NFTAttribute{
			{TraitType: "Platform", Value: platformName},
			{TraitType: "Device", Value: in.DeviceAddress},
			{TraitType: "Timestamp", Value: timestamp},
			{TraitType: "Has Depth Data", Value: hasDepth},
			{TraitType: "Image CID", Value: in.ImageCID},
		},
	}

	// The depth payload document doubles as the animation reference when the
	// capture shipped one.
	if in.MetadataCID != "" {
		nftDoc.AnimationURL = ContentURI(in.MetadataCID)
		nftDoc.Attributes = append(nftDoc.Attributes, models.NFTAttribute{
			TraitType: "Metadata CID", Value: in.MetadataCID,
		})
	}

	return ipDoc, nftDoc
}

func shortCID(cid string) string {
	if len(cid) <= 10 {
		return cid
	}
	return cid[:10]
}
