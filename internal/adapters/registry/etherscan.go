// Package registry looks up verified contract source through the Etherscan
// API. Lookups use a short timeout and degrade to "no source" rather than
// failing a pillar run.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/internal/adapters/config"
	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

// EtherscanClient implements the verified-source registry over Etherscan
type EtherscanClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewEtherscanClient creates new registry client
func NewEtherscanClient(cfg *config.RegistryConfig) *EtherscanClient {
	return &EtherscanClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type sourceResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
	} `json:"result"`
}

// VerifiedSource fetches the published source bundle for a contract.
// Returns (nil, nil) when the contract is unverified; network and API
// failures are wrapped with models.ErrNetwork.
func (ec *EtherscanClient) VerifiedSource(ctx context.Context, address string) (*models.VerifiedSource, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}

	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", strings.ToLower(address))
	params.Set("apikey", ec.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ec.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ec.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry API error %d: %s: %w", resp.StatusCode, string(body), models.ErrNetwork)
	}

	var result sourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	if result.Status != "1" || len(result.Result) == 0 || result.Result[0].SourceCode == "" {
		logger.Debug("no verified source for contract",
			zap.String("address", address),
		)
		return nil, nil
	}

	src := result.Result[0]
	files, err := parseSourceBundle(src.SourceCode, src.ContractName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source bundle for %s: %w", address, err)
	}

	return &models.VerifiedSource{
		ContractName: src.ContractName,
		Files:        files,
	}, nil
}

type sourceFile struct {
	Content string `json:"content"`
}

// parseSourceBundle handles the three Etherscan source encodings: standard
// JSON input (double-braced), a plain sources object, or a single flat file.
func parseSourceBundle(sourceCode, contractName string) (map[string]string, error) {
	switch {
	case strings.HasPrefix(sourceCode, "{{"):
		var input struct {
			Sources map[string]sourceFile `json:"sources"`
		}
		trimmed := sourceCode[1 : len(sourceCode)-1]
		if err := json.Unmarshal([]byte(trimmed), &input); err != nil {
			return nil, fmt.Errorf("standard JSON input: %w", err)
		}
		return flatten(input.Sources), nil

	case strings.HasPrefix(sourceCode, "{"):
		var sources map[string]sourceFile
		if err := json.Unmarshal([]byte(sourceCode), &sources); err != nil {
			return nil, fmt.Errorf("sources object: %w", err)
		}
		return flatten(sources), nil

	default:
		name := contractName
		if name == "" {
			name = "Contract"
		}
		return map[string]string{name + ".sol": sourceCode}, nil
	}
}

func flatten(sources map[string]sourceFile) map[string]string {
	files := make(map[string]string, len(sources))
	for name, f := range sources {
		files[name] = f.Content
	}
	return files
}
