// internal/services/metadata_service_test.go
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framelock/capture-backend/internal/models"
)

func baseInput() MetadataInput {
	return MetadataInput{
		ImageCID:        "Qimg1",
		DeviceAddress:   "0xABC",
		MintingFee:      "0.2",
		RevSharePercent: 15,
		GatewayURL:      "https://gateway.pinata.cloud",
	}
}

func TestContentDigestIsDeterministic(t *testing.T) {
	first := ContentDigest("Qimg1")
	second := ContentDigest("Qimg1")

	assert.Equal(t, first, second)
	assert.Len(t, first, 66)
	assert.Equal(t, "0x", first[:2])

	// The digest covers the raw identifier string, not any document bytes.
	sum := sha256.Sum256([]byte("Qimg1"))
	assert.Equal(t, "0x"+hex.EncodeToString(sum[:]), first)
}

func TestDocumentDigestCoversSerializedDocument(t *testing.T) {
	doc := map[string]string{"a": "b"}

	hexDigest, raw, err := DocumentDigest(doc)
	require.NoError(t, err)

	serialized, _ := json.Marshal(doc)
	sum := sha256.Sum256(serialized)
	assert.Equal(t, "0x"+hex.EncodeToString(sum[:]), hexDigest)
	assert.Equal(t, sum, raw)
}

func TestURIFormsAreDistinct(t *testing.T) {
	assert.Equal(t, "ipfs://Qimg1", ContentURI("Qimg1"))
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/Qimg1", GatewayURL("https://gateway.pinata.cloud", "Qimg1"))
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/Qimg1", GatewayURL("https://gateway.pinata.cloud/", "Qimg1"))
}

func TestBuildMetadataDocumentsWithoutMetadataCID(t *testing.T) {
	in := baseInput()

	ipDoc, nftDoc := BuildMetadataDocuments(in)

	// Without a separate metadata document the image doubles as media.
	assert.Equal(t, "image/jpeg", ipDoc.MediaType)
	assert.Equal(t, "ipfs://Qimg1", ipDoc.Image)
	assert.Equal(t, "ipfs://Qimg1", ipDoc.MediaURL)
	assert.Equal(t, ContentDigest("Qimg1"), ipDoc.ImageHash)
	assert.Equal(t, ContentDigest("Qimg1"), ipDoc.MediaHash)

	require.Len(t, ipDoc.Creators, 1)
	assert.Equal(t, "0xABC", ipDoc.Creators[0].Address)
	assert.Equal(t, 100, ipDoc.Creators[0].ContributionPercent)

	assert.Empty(t, nftDoc.AnimationURL)
	assert.Equal(t, "ipfs://Qimg1", nftDoc.Image)
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/Qimg1", nftDoc.ExternalURL)

	hasDepth, found := nftAttribute(nftDoc.Attributes, "Has Depth Data")
	require.True(t, found)
	assert.Equal(t, false, hasDepth)
}

func TestBuildMetadataDocumentsWithMetadataCID(t *testing.T) {
	in := baseInput()
	in.MetadataCID = "Qmeta1"
	in.DepthPayload = map[string]interface{}{"points": 3}

	ipDoc, nftDoc := BuildMetadataDocuments(in)

	assert.Equal(t, "application/json", ipDoc.MediaType)
	assert.Equal(t, "ipfs://Qmeta1", ipDoc.MediaURL)
	assert.Equal(t, ContentDigest("Qmeta1"), ipDoc.MediaHash)
	// Image digest stays bound to the image identifier.
	assert.Equal(t, ContentDigest("Qimg1"), ipDoc.ImageHash)

	assert.Equal(t, "ipfs://Qmeta1", nftDoc.AnimationURL)

	hasDepth, found := nftAttribute(nftDoc.Attributes, "Has Depth Data")
	require.True(t, found)
	assert.Equal(t, true, hasDepth)

	metaCID, found := nftAttribute(nftDoc.Attributes, "Metadata CID")
	require.True(t, found)
	assert.Equal(t, "Qmeta1", metaCID)
}

func TestBuildMetadataDocumentsPlaceholderDepth(t *testing.T) {
	in := baseInput()
	in.DepthPayload = map[string]interface{}{"metadataContentId": "Qmeta1"}
	in.DepthPlaceholder = true

	ipDoc, nftDoc := BuildMetadataDocuments(in)

	depth, found := ipAttribute(ipDoc.Attributes, "Depth Data")
	require.True(t, found)
	assert.Equal(t, map[string]interface{}{"metadataContentId": "Qmeta1"}, depth)

	hasDepth, found := nftAttribute(nftDoc.Attributes, "Has Depth Data")
	require.True(t, found)
	assert.Equal(t, false, hasDepth)
}

func TestBuildMetadataDocumentsAbsentDepthGetsNote(t *testing.T) {
	in := baseInput()
	in.DepthPayload = nil
	in.DepthPlaceholder = true

	ipDoc, _ := BuildMetadataDocuments(in)

	depth, found := ipAttribute(ipDoc.Attributes, "Depth Data")
	require.True(t, found)
	assert.Equal(t, "Depth data not available for this capture", depth)
}

func ipAttribute(attrs []models.IPAttribute, key string) (interface{}, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

func nftAttribute(attrs []models.NFTAttribute, trait string) (interface{}, bool) {
	for _, a := range attrs {
		if a.TraitType == trait {
			return a.Value, true
		}
	}
	return nil, false
}
