// cmd/diagnose/main.go
//
// Connectivity diagnostic: checks every external collaborator the
// registration pipeline depends on and prints one line per check.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/framelock/capture-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config: FAIL -", err)
		os.Exit(1)
	}
	fmt.Println("config: OK")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false

	failed = !checkSigner(cfg) || failed
	failed = !checkChain(ctx, cfg) || failed
	failed = !checkGateway(ctx, cfg) || failed
	failed = !checkRecordStore(ctx, cfg) || failed

	if failed {
		os.Exit(1)
	}
}

func checkSigner(cfg *config.Config) bool {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Chain.PrivateKey, "0x"))
	if err != nil {
		fmt.Println("signer: FAIL -", err)
		return false
	}
	fmt.Println("signer: OK -", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return true
}

func checkChain(ctx context.Context, cfg *config.Config) bool {
	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		fmt.Println("chain rpc: FAIL -", err)
		return false
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		fmt.Println("chain rpc: FAIL -", err)
		return false
	}
	if chainID.Int64() != cfg.Chain.ChainID {
		fmt.Printf("chain rpc: FAIL - chain id mismatch: got %s, configured %d\n", chainID, cfg.Chain.ChainID)
		return false
	}
	fmt.Println("chain rpc: OK - chain id", chainID)
	return true
}

func checkGateway(ctx context.Context, cfg *config.Config) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.Storage.GatewayURL, nil)
	if err != nil {
		fmt.Println("storage gateway: FAIL -", err)
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("storage gateway: FAIL -", err)
		return false
	}
	resp.Body.Close()

	fmt.Println("storage gateway: OK - status", resp.StatusCode)
	return true
}

func checkRecordStore(ctx context.Context, cfg *config.Config) bool {
	if cfg.RecordStore.URL == "" {
		fmt.Println("record store: SKIP - not configured")
		return true
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?select=image_cid&limit=1",
		strings.TrimRight(cfg.RecordStore.URL, "/"), cfg.RecordStore.Table)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		fmt.Println("record store: FAIL -", err)
		return false
	}
	req.Header.Set("apikey", cfg.RecordStore.APIKey)
	req.Header.Set("Authorization", "Bearer "+cfg.RecordStore.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("record store: FAIL -", err)
		return false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Println("record store: FAIL - status", resp.StatusCode)
		return false
	}

	fmt.Println("record store: OK - status", resp.StatusCode)
	return true
}
