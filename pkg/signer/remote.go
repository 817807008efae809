package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stark-validator/attestor/pkg/rpcclient"
)

// remoteTimeout bounds every remote signer HTTP call (spec.md §5
// "Cancellation & timeouts").
const remoteTimeout = 60 * time.Second

// RemoteSigner posts signing requests to an external HTTP service. Its
// nonce/fee estimation path may require a network round-trip per attempt, so
// unlike LocalSigner it is interactive: a single transient failure is worth
// one retry before giving up, since the round-trip is exactly the kind of
// flaky dependency the teacher's remote RPC backends (e.g.
// RPCDataBackendV3) are written defensively against.
type RemoteSigner struct {
	baseURL    string
	httpClient *http.Client
}

var _ rpcclient.Signer = (*RemoteSigner)(nil)

// NewRemoteSigner builds a RemoteSigner that posts to <baseURL>/sign.
func NewRemoteSigner(baseURL string) *RemoteSigner {
	return &RemoteSigner{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: remoteTimeout},
	}
}

type resourceBoundsWire struct {
	MaxAmount       string `json:"max_amount"`
	MaxPricePerUnit string `json:"max_price_per_unit"`
}

type txTemplateWire struct {
	SenderAddress         string             `json:"sender_address"`
	Calldata              []string           `json:"calldata"`
	Nonce                 uint64             `json:"nonce"`
	L1Gas                 resourceBoundsWire `json:"l1_gas"`
	L2Gas                 resourceBoundsWire `json:"l2_gas"`
	L1DataGas             resourceBoundsWire `json:"l1_data_gas"`
	Tip                   uint64             `json:"tip"`
	PaymasterData         []string           `json:"paymaster_data"`
	AccountDeploymentData []string           `json:"account_deployment_data"`
	IsQuery               bool               `json:"is_query"`
}

func toWire(tmpl rpcclient.TxTemplate) txTemplateWire {
	hexEach := func(fs []felt.Felt) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.Hex()
		}
		return out
	}
	bounds := func(b rpcclient.ResourceBounds) resourceBoundsWire {
		return resourceBoundsWire{
			MaxAmount:       fmt.Sprintf("0x%x", b.MaxAmount),
			MaxPricePerUnit: fmt.Sprintf("0x%x", b.MaxPricePerUnit),
		}
	}
	return txTemplateWire{
		SenderAddress:         tmpl.SenderAddress.Hex(),
		Calldata:              hexEach(tmpl.Calldata),
		Nonce:                 tmpl.Nonce,
		L1Gas:                 bounds(tmpl.L1Gas),
		L2Gas:                 bounds(tmpl.L2Gas),
		L1DataGas:             bounds(tmpl.L1DataGas),
		Tip:                   tmpl.Tip,
		PaymasterData:         hexEach(tmpl.PaymasterData),
		AccountDeploymentData: hexEach(tmpl.AccountDeploymentData),
		IsQuery:               tmpl.IsQuery,
	}
}

type signRequest struct {
	Transaction txTemplateWire `json:"transaction"`
	ChainID     string         `json:"chain_id"`
}

type signResponse struct {
	Signature [2]string `json:"signature"`
}

// Sign posts {transaction, chain_id} to <baseURL>/sign and parses
// {signature: [F, F]} from the response, per spec.md §6 "Remote signer wire
// protocol". One retry is attempted after any failed attempt (transport
// error, non-200 status, or undecodable response).
func (s *RemoteSigner) Sign(ctx context.Context, txHash felt.Felt, tmpl rpcclient.TxTemplate, chainID felt.Felt) ([2]felt.Felt, error) {
	body, err := json.Marshal(signRequest{Transaction: toWire(tmpl), ChainID: chainID.Hex()})
	if err != nil {
		return [2]felt.Felt{}, fmt.Errorf("signer: encode sign request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		sig, err := s.post(ctx, body)
		if err == nil {
			return sig, nil
		}
		lastErr = err
	}
	return [2]felt.Felt{}, fmt.Errorf("signer: remote sign failed after retry: %w", lastErr)
}

func (s *RemoteSigner) post(ctx context.Context, body []byte) ([2]felt.Felt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return [2]felt.Felt{}, fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return [2]felt.Felt{}, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return [2]felt.Felt{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return [2]felt.Felt{}, fmt.Errorf("remote signer returned %d: %s", resp.StatusCode, respBody)
	}

	var sr signResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return [2]felt.Felt{}, fmt.Errorf("decode response: %w", err)
	}

	r, err := felt.FromHex(sr.Signature[0])
	if err != nil {
		return [2]felt.Felt{}, fmt.Errorf("decode signature[0]: %w", err)
	}
	sVal, err := felt.FromHex(sr.Signature[1])
	if err != nil {
		return [2]felt.Felt{}, fmt.Errorf("decode signature[1]: %w", err)
	}
	return [2]felt.Felt{r, sVal}, nil
}

type publicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// GetPublicKey calls <baseURL>/get_public_key and returns the public key the
// remote signer holds. Nothing in the agent calls it at startup or at
// runtime.
func (s *RemoteSigner) GetPublicKey(ctx context.Context) (felt.Felt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/get_public_key", nil)
	if err != nil {
		return felt.Felt{}, fmt.Errorf("build get_public_key request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return felt.Felt{}, fmt.Errorf("signer: get_public_key: %w", err)
	}
	defer resp.Body.Close()

	var pr publicKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return felt.Felt{}, fmt.Errorf("signer: get_public_key: decode: %w", err)
	}
	return felt.FromHex(pr.PublicKey)
}
