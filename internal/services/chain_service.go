// internal/services/chain_service.go
package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/framelock/capture-backend/internal/config"
	"github.com/framelock/capture-backend/internal/metrics"
	"github.com/framelock/capture-backend/internal/models"
)

// Revenue share percentages are fixed-point on the ledger: 100% == 100 * 10^6.
const revSharePrecision = 1_000_000

// registrationWorkflowsABI covers the two periphery calls the service makes:
// one-time collection creation and the combined mint+register+attach-terms
// transaction.
const registrationWorkflowsABI = `[
  {"type":"function","name":"createCollection","stateMutability":"nonpayable",
   "inputs":[{"name":"spgNftInitParams","type":"tuple","components":[
     {"name":"name","type":"string"},
     {"name":"symbol","type":"string"},
     {"name":"baseURI","type":"string"},
     {"name":"contractURI","type":"string"},
     {"name":"maxSupply","type":"uint32"},
     {"name":"mintFee","type":"uint256"},
     {"name":"mintFeeToken","type":"address"},
     {"name":"mintFeeRecipient","type":"address"},
     {"name":"owner","type":"address"},
     {"name":"mintOpen","type":"bool"},
     {"name":"isPublicMinting","type":"bool"}]}],
   "outputs":[{"name":"spgNftContract","type":"address"}]},
  {"type":"function","name":"mintAndRegisterIpAndAttachPILTerms","stateMutability":"nonpayable",
   "inputs":[
     {"name":"spgNftContract","type":"address"},
     {"name":"recipient","type":"address"},
     {"name":"ipMetadata","type":"tuple","components":[
       {"name":"ipMetadataURI","type":"string"},
       {"name":"ipMetadataHash","type":"bytes32"},
       {"name":"nftMetadataURI","type":"string"},
       {"name":"nftMetadataHash","type":"bytes32"}]},
     {"name":"licenseTermsData","type":"tuple[]","components":[
       {"name":"terms","type":"tuple","components":[
         {"name":"transferable","type":"bool"},
         {"name":"royaltyPolicy","type":"address"},
         {"name":"defaultMintingFee","type":"uint256"},
         {"name":"expiration","type":"uint256"},
         {"name":"commercialUse","type":"bool"},
         {"name":"commercialAttribution","type":"bool"},
         {"name":"commercializerChecker","type":"address"},
         {"name":"commercializerCheckerData","type":"bytes"},
         {"name":"commercialRevShare","type":"uint32"},
         {"name":"commercialRevCeiling","type":"uint256"},
         {"name":"derivativesAllowed","type":"bool"},
         {"name":"derivativesAttribution","type":"bool"},
         {"name":"derivativesApproval","type":"bool"},
         {"name":"derivativesReciprocal","type":"bool"},
         {"name":"derivativeRevCeiling","type":"uint256"},
         {"name":"currency","type":"address"},
         {"name":"uri","type":"string"}]},
       {"name":"licensingConfig","type":"tuple","components":[
         {"name":"isSet","type":"bool"},
         {"name":"mintingFee","type":"uint256"},
         {"name":"licensingHook","type":"address"},
         {"name":"hookData","type":"bytes"},
         {"name":"commercialRevShare","type":"uint32"},
         {"name":"disabled","type":"bool"},
         {"name":"expectMinimumGroupRewardShare","type":"uint32"},
         {"name":"expectGroupRewardPool","type":"address"}]}]},
     {"name":"allowDuplicates","type":"bool"}],
   "outputs":[
     {"name":"ipId","type":"address"},
     {"name":"tokenId","type":"uint256"},
     {"name":"licenseTermsIds","type":"uint256[]"}]},
  {"type":"event","name":"CollectionCreated","anonymous":false,
   "inputs":[{"name":"spgNftContract","type":"address","indexed":true}]}
]`

// coreEventsABI holds the core-contract events parsed out of registration
// receipts. They are emitted by the asset registry and licensing module, not
// by the workflows contract itself.
const coreEventsABI = `[
  {"type":"event","name":"IPRegistered","anonymous":false,"inputs":[
    {"name":"ipId","type":"address","indexed":false},
    {"name":"chainId","type":"uint256","indexed":true},
    {"name":"tokenContract","type":"address","indexed":true},
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"name","type":"string","indexed":false},
    {"name":"uri","type":"string","indexed":false},
    {"name":"registrationDate","type":"uint256","indexed":false}]},
  {"type":"event","name":"LicenseTermsAttached","anonymous":false,"inputs":[
    {"name":"caller","type":"address","indexed":true},
    {"name":"ipId","type":"address","indexed":true},
    {"name":"licenseTemplate","type":"address","indexed":false},
    {"name":"licenseTermsId","type":"uint256","indexed":false}]}
]`

// Tuple arguments packed by the ABI encoder. Field names must mirror the
// component names above.
type spgNFTInitParams struct {
	Name             string
	Symbol           string
	BaseURI          string
	ContractURI      string
	MaxSupply        uint32
	MintFee          *big.Int
	MintFeeToken     common.Address
	MintFeeRecipient common.Address
	Owner            common.Address
	MintOpen         bool
	IsPublicMinting  bool
}

type ipMetadataParams struct {
	IpMetadataURI   string
	IpMetadataHash  [32]byte
	NftMetadataURI  string
	NftMetadataHash [32]byte
}

type pilTerms struct {
	Transferable              bool
	RoyaltyPolicy             common.Address
	DefaultMintingFee         *big.Int
	Expiration                *big.Int
	CommercialUse             bool
	CommercialAttribution     bool
	CommercializerChecker     common.Address
	CommercializerCheckerData []byte
	CommercialRevShare        uint32
	CommercialRevCeiling      *big.Int
	DerivativesAllowed        bool
	DerivativesAttribution    bool
	DerivativesApproval       bool
	DerivativesReciprocal     bool
	DerivativeRevCeiling      *big.Int
	Currency                  common.Address
	Uri                       string
}

type licensingConfig struct {
	IsSet                         bool
	MintingFee                    *big.Int
	LicensingHook                 common.Address
	HookData                      []byte
	CommercialRevShare            uint32
	Disabled                      bool
	ExpectMinimumGroupRewardShare uint32
	ExpectGroupRewardPool         common.Address
}

type licenseTermsData struct {
	Terms           pilTerms
	LicensingConfig licensingConfig
}

type collectionCreatedEvent struct {
	SpgNftContract common.Address
}

type ipRegisteredEvent struct {
	IpId             common.Address
	ChainId          *big.Int
	TokenContract    common.Address
	TokenId          *big.Int
	Name             string
	Uri              string
	RegistrationDate *big.Int
}

type licenseTermsAttachedEvent struct {
	Caller          common.Address
	IpId            common.Address
	LicenseTemplate common.Address
	LicenseTermsId  *big.Int
}

// ChainRegisterParams binds the two published documents and the resolved
// license parameters to one registration transaction.
type ChainRegisterParams struct {
	Collection      string
	IPMetadataURI   string
	IPMetadataHash  [32]byte
	NFTMetadataURI  string
	NFTMetadataHash [32]byte
	MintingFee      string
	RevSharePercent int
}

type ChainRegisterResult struct {
	IPID            string
	TokenID         string
	LicenseTermsIDs []string
	TxHash          string
}

// ChainService owns the signing account, the chain client, and the
// process-wide collection handle.
type ChainService struct {
	config     *config.Config
	db         *gorm.DB
	client     *ethclient.Client
	key        *ecdsa.PrivateKey
	signerAddr common.Address
	chainID    *big.Int

	workflows  *bind.BoundContract
	coreEvents *bind.BoundContract
	wfABI      abi.ABI
	evABI      abi.ABI

	// Collection handle cache. Guarded so concurrent first callers await one
	// creation instead of racing into two collections.
	mu         sync.Mutex
	collection string
}

func NewChainService(cfg *config.Config, db *gorm.DB) (*ChainService, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Chain.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid chain private key: %w", err)
	}

	client, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	wfABI, err := abi.JSON(strings.NewReader(registrationWorkflowsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflows ABI: %w", err)
	}

	evABI, err := abi.JSON(strings.NewReader(coreEventsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse core events ABI: %w", err)
	}

	workflowsAddr := common.HexToAddress(cfg.Chain.WorkflowsContract)

	return &ChainService{
		config:     cfg,
		db:         db,
		client:     client,
		key:        key,
		signerAddr: crypto.PubkeyToAddress(key.PublicKey),
		chainID:    big.NewInt(cfg.Chain.ChainID),
		workflows:  bind.NewBoundContract(workflowsAddr, wfABI, client, client, client),
		coreEvents: bind.NewBoundContract(common.Address{}, evABI, nil, nil, nil),
		wfABI:      wfABI,
		evABI:      evABI,
	}, nil
}

func (s *ChainService) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// ProvisionCollection returns the collection contract address, creating the
// collection on first use. Resolution order: in-memory cache, persisted row,
// on-chain creation.
func (s *ChainService) ProvisionCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection != "" {
		return s.collection, nil
	}

	if addr := s.loadPersistedCollection(); addr != "" {
		s.collection = addr
		logrus.WithField("collection", addr).Info("Reusing persisted collection contract")
		return addr, nil
	}

	addr, txHash, err := s.createCollection(ctx)
	if err != nil {
		return "", &ChainSubmissionError{Op: "collection creation", Err: err}
	}

	s.persistCollection(addr, txHash)
	s.collection = addr
	metrics.CollectionCreations.Inc()
	logrus.WithFields(logrus.Fields{
		"collection": addr,
		"tx_hash":    txHash,
	}).Info("Collection contract created")

	return addr, nil
}

func (s *ChainService) createCollection(ctx context.Context) (string, string, error) {
	opts, err := s.transactOpts(ctx)
	if err != nil {
		return "", "", err
	}

	// Public minting stays disabled: only the server signer mints tokens.
	params := spgNFTInitParams{
		Name:             s.config.Chain.CollectionName,
		Symbol:           s.config.Chain.CollectionSymbol,
		BaseURI:          "",
		ContractURI:      "",
		MaxSupply:        100000,
		MintFee:          big.NewInt(0),
		MintFeeToken:     common.Address{},
		MintFeeRecipient: s.signerAddr,
		Owner:            s.signerAddr,
		MintOpen:         true,
		IsPublicMinting:  false,
	}

	tx, err := s.workflows.Transact(opts, "createCollection", params)
	if err != nil {
		return "", "", fmt.Errorf("createCollection transaction failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return "", "", fmt.Errorf("failed awaiting collection creation receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", "", fmt.Errorf("collection creation reverted in tx %s", tx.Hash().Hex())
	}

	created := s.wfABI.Events["CollectionCreated"]
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != created.ID {
			continue
		}
		var ev collectionCreatedEvent
		if err := s.workflows.UnpackLog(&ev, "CollectionCreated", *lg); err != nil {
			continue
		}
		return ev.SpgNftContract.Hex(), tx.Hash().Hex(), nil
	}

	return "", "", fmt.Errorf("collection creation tx %s emitted no CollectionCreated event", tx.Hash().Hex())
}

func (s *ChainService) loadPersistedCollection() string {
	if s.db == nil {
		return ""
	}

	var row models.CollectionContract
	err := s.db.Where("chain_id = ?", s.config.Chain.ChainID).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Warn("Failed to load persisted collection contract")
		}
		return ""
	}
	return row.Address
}

func (s *ChainService) persistCollection(addr, txHash string) {
	if s.db == nil {
		return
	}

	row := &models.CollectionContract{
		ChainID: s.config.Chain.ChainID,
		Address: addr,
		TxHash:  txHash,
	}
	if err := s.db.Create(row).Error; err != nil {
		logrus.WithError(err).Warn("Failed to persist collection contract address")
	}
}

// RegisterAsset submits the single transaction that mints a token into the
// collection, registers it as an IP asset, and attaches commercial-remix
// license terms. Any failure is fatal and surfaced verbatim; no retry, no
// cleanup of already-published documents.
func (s *ChainService) RegisterAsset(ctx context.Context, params ChainRegisterParams) (*ChainRegisterResult, error) {
	fee, err := ParseTokenUnits(params.MintingFee)
	if err != nil {
		return nil, &ChainSubmissionError{Op: "fee conversion", Err: err}
	}

	opts, err := s.transactOpts(ctx)
	if err != nil {
		return nil, &ChainSubmissionError{Op: "signer setup", Err: err}
	}

	terms := licenseTermsData{
		Terms: pilTerms{
			Transferable:              true,
			RoyaltyPolicy:             common.HexToAddress(s.config.Chain.RoyaltyPolicy),
			DefaultMintingFee:         fee,
			Expiration:                big.NewInt(0),
			CommercialUse:             true,
			CommercialAttribution:     true,
			CommercializerChecker:     common.Address{},
			CommercializerCheckerData: []byte{},
			CommercialRevShare:        uint32(params.RevSharePercent) * revSharePrecision,
			CommercialRevCeiling:      big.NewInt(0),
			DerivativesAllowed:        true,
			DerivativesAttribution:    true,
			DerivativesApproval:       false,
			DerivativesReciprocal:     true,
			DerivativeRevCeiling:      big.NewInt(0),
			Currency:                  common.HexToAddress(s.config.Chain.CurrencyToken),
			Uri:                       "",
		},
		LicensingConfig: licensingConfig{
			IsSet:                         false,
			MintingFee:                    big.NewInt(0),
			LicensingHook:                 common.Address{},
			HookData:                      []byte{},
			CommercialRevShare:            0,
			Disabled:                      false,
			ExpectMinimumGroupRewardShare: 0,
			ExpectGroupRewardPool:         common.Address{},
		},
	}

	metadata := ipMetadataParams{
		IpMetadataURI:   params.IPMetadataURI,
		IpMetadataHash:  params.IPMetadataHash,
		NftMetadataURI:  params.NFTMetadataURI,
		NftMetadataHash: params.NFTMetadataHash,
	}

	tx, err := s.workflows.Transact(opts, "mintAndRegisterIpAndAttachPILTerms",
		common.HexToAddress(params.Collection),
		s.signerAddr,
		metadata,
		[]licenseTermsData{terms},
		true,
	)
	if err != nil {
		return nil, &ChainSubmissionError{Op: "registration submission", Err: err}
	}

	// Once submitted the outcome is awaited unconditionally.
	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, &ChainSubmissionError{Op: "registration receipt", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &ChainSubmissionError{Op: "registration", Err: fmt.Errorf("transaction %s reverted", tx.Hash().Hex())}
	}

	result := &ChainRegisterResult{TxHash: tx.Hash().Hex()}

	ipRegistered := s.evABI.Events["IPRegistered"]
	termsAttached := s.evABI.Events["LicenseTermsAttached"]

	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 {
			continue
		}
		switch lg.Topics[0] {
		case ipRegistered.ID:
			var ev ipRegisteredEvent
			if err := s.coreEvents.UnpackLog(&ev, "IPRegistered", *lg); err != nil {
				logrus.WithError(err).Warn("Failed to decode IPRegistered log")
				continue
			}
			result.IPID = ev.IpId.Hex()
			result.TokenID = ev.TokenId.String()
		case termsAttached.ID:
			var ev licenseTermsAttachedEvent
			if err := s.coreEvents.UnpackLog(&ev, "LicenseTermsAttached", *lg); err != nil {
				logrus.WithError(err).Warn("Failed to decode LicenseTermsAttached log")
				continue
			}
			result.LicenseTermsIDs = append(result.LicenseTermsIDs, ev.LicenseTermsId.String())
		}
	}

	if result.IPID == "" {
		return nil, &ChainSubmissionError{Op: "registration", Err: fmt.Errorf("transaction %s emitted no IPRegistered event", tx.Hash().Hex())}
	}

	return result, nil
}

// ParseTokenUnits converts a decimal token amount ("0.2") into the chain's
// 18-decimal base unit. String arithmetic only; float rounding would corrupt
// on-chain amounts.
func ParseTokenUnits(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty token amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("token amount must be non-negative: %s", amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("token amount %s exceeds 18 decimal places", amount)
	}
	frac = frac + strings.Repeat("0", 18-len(frac))

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token amount: %s", amount)
	}
	return n, nil
}
