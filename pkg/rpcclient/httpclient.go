package rpcclient

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/stark-validator/attestor/pkg/attestinfo"
	"github.com/stark-validator/attestor/pkg/felt"
)

// feeMultiplier is applied to both the gas amount and the gas price of an
// estimated fee before submission (spec.md §4.2 "attest").
const feeMultiplier = 3

// selector is the domain hash of an ABI entry point or event name; the chain
// uses its standard hash H for this purpose (spec.md GLOSSARY "Field
// element").
func selector(name string) felt.Felt {
	return felt.Hash(felt.FromBytes([]byte(name)))
}

var (
	selectorGetAttestationInfo      = selector("get_attestation_info")
	selectorAttestationWindow       = selector("attestation_window")
	selectorIsAttestationDone       = selector("is_attestation_done_in_current_epoch")
	selectorAttest                  = selector("attest")
	selectorBalanceOf               = selector("balanceOf")
	eventStakerAttestationSelector  = selector("StakerAttestationSuccessful")
)

// EventSelector returns the selector used to filter the attestation events
// stream (spec.md §4.3); pkg/streams reads it when constructing the
// starknet_subscribeEvents request.
func EventSelector() felt.Felt { return eventStakerAttestationSelector }

// ContractAddresses is the staking/attestation/STRK-token address set one
// HTTPClient talks to, resolved at startup from flags or from the
// config.ChainDefaults table.
type ContractAddresses struct {
	Staking     felt.Felt
	Attestation felt.Felt
	STRKToken   felt.Felt
}

// HTTPClient is the concrete JSON-RPC Client implementation (C1), grounded
// on the teacher's RPCDataBackendV3 typed-query wrapper: one transport, one
// method per chain operation, errors wrapped with context via fmt.Errorf.
type HTTPClient struct {
	t         *transport
	contracts ContractAddresses
	logger    *zap.Logger
}

// NewHTTPClient builds an HTTPClient against nodeURL using contracts as the
// staking/attestation/token addresses resolved at startup.
func NewHTTPClient(nodeURL string, contracts ContractAddresses, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		t:         newTransport(nodeURL),
		contracts: contracts,
		logger:    logger,
	}
}

type callParams struct {
	ContractAddress string   `json:"contract_address"`
	EntryPointSel   string   `json:"entry_point_selector"`
	Calldata        []string `json:"calldata"`
}

type callRequest struct {
	Request     callParams `json:"request"`
	BlockID     any        `json:"block_id"`
}

func (c *HTTPClient) call(ctx context.Context, contract felt.Felt, sel felt.Felt, calldata []felt.Felt) ([]felt.Felt, error) {
	strs := make([]string, len(calldata))
	for i, f := range calldata {
		strs[i] = f.Hex()
	}
	var out []string
	err := c.t.call(ctx, "starknet_call", []any{
		callParams{
			ContractAddress: contract.Hex(),
			EntryPointSel:   sel.Hex(),
			Calldata:        strs,
		},
		"pending",
	}, &out)
	if err != nil {
		return nil, Other("starknet_call", err)
	}
	result := make([]felt.Felt, len(out))
	for i, s := range out {
		f, err := felt.FromHex(s)
		if err != nil {
			return nil, Other("starknet_call: decode result element", err)
		}
		result[i] = f
	}
	return result, nil
}

// GetAttestationInfo reads the staking contract (pending tag) and the
// attestation contract's attestation_window.
func (c *HTTPClient) GetAttestationInfo(ctx context.Context, operationalAddress felt.Felt) (attestinfo.Info, error) {
	fields, err := c.call(ctx, c.contracts.Staking, selectorGetAttestationInfo, []felt.Felt{operationalAddress})
	if err != nil {
		return attestinfo.Info{}, fmt.Errorf("get_attestation_info: %w", err)
	}
	if len(fields) < 6 {
		return attestinfo.Info{}, Other("get_attestation_info", fmt.Errorf("expected 6 fields, got %d", len(fields)))
	}

	window, err := c.call(ctx, c.contracts.Attestation, selectorAttestationWindow, nil)
	if err != nil {
		return attestinfo.Info{}, fmt.Errorf("attestation_window: %w", err)
	}
	if len(window) < 1 {
		return attestinfo.Info{}, Other("attestation_window", fmt.Errorf("empty result"))
	}

	stake := new(big.Int).SetBytes(fields[2].Bytes())
	return attestinfo.Info{
		StakerAddress:             fields[0],
		OperationalAddress:        fields[1],
		Stake:                     stake,
		EpochID:                   fields[3].Uint64(),
		CurrentEpochStartingBlock: fields[4].Uint64(),
		EpochLen:                 fields[5].Uint64(),
		AttestationWindow:        uint16(window[0].Uint64()),
	}, nil
}

// IsAttestationDoneInCurrentEpoch reads the pending-tag staking contract
// state for stakerAddress.
func (c *HTTPClient) IsAttestationDoneInCurrentEpoch(ctx context.Context, stakerAddress felt.Felt) (bool, error) {
	out, err := c.call(ctx, c.contracts.Staking, selectorIsAttestationDone, []felt.Felt{stakerAddress})
	if err != nil {
		return false, fmt.Errorf("is_attestation_done_in_current_epoch: %w", err)
	}
	if len(out) < 1 {
		return false, Other("is_attestation_done_in_current_epoch", fmt.Errorf("empty result"))
	}
	return !out[0].IsZero(), nil
}

type txStatusResult struct {
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status"`
	RevertReason    string `json:"revert_reason"`
}

// AttestationStatus polls the status of a previously submitted tx.
func (c *HTTPClient) AttestationStatus(ctx context.Context, txHash felt.Felt) (TxStatus, error) {
	var res txStatusResult
	if err := c.t.call(ctx, "starknet_getTransactionStatus", []any{txHash.Hex()}, &res); err != nil {
		return TxStatus{}, Other("starknet_getTransactionStatus", err)
	}

	switch res.FinalityStatus {
	case "RECEIVED":
		return TxStatus{Tag: TxReceived}, nil
	case "REJECTED":
		return TxStatus{Tag: TxRejected}, nil
	case "ACCEPTED_ON_L2", "ACCEPTED_ON_L1":
		tag := TxAcceptedOnL2
		if res.FinalityStatus == "ACCEPTED_ON_L1" {
			tag = TxAcceptedOnL1
		}
		exec := ExecutionSucceeded
		if res.ExecutionStatus == "REVERTED" {
			exec = ExecutionReverted
		}
		return TxStatus{Tag: tag, ExecutionState: exec, RevertReason: res.RevertReason}, nil
	default:
		return TxStatus{}, Other("starknet_getTransactionStatus", fmt.Errorf("unknown finality_status %q", res.FinalityStatus))
	}
}

type blockHeader struct {
	BlockHash string `json:"block_hash"`
	Status    string `json:"status"`
}

// GetBlockHash errors if the RPC server returns a pending block.
func (c *HTTPClient) GetBlockHash(ctx context.Context, blockNumber uint64) (felt.Felt, error) {
	var hdr blockHeader
	err := c.t.call(ctx, "starknet_getBlockWithTxHashes", []any{
		map[string]uint64{"block_number": blockNumber},
	}, &hdr)
	if err != nil {
		return felt.Felt{}, Other("starknet_getBlockWithTxHashes", err)
	}
	if hdr.BlockHash == "" {
		return felt.Felt{}, Other("starknet_getBlockWithTxHashes", fmt.Errorf("block %d returned no hash (pending?)", blockNumber))
	}
	return felt.FromHex(hdr.BlockHash)
}

// strkDecimals is the STRK token's decimal precision, used by the metrics
// gauge to render the u128 balance as a floating STRK amount.
const strkDecimals = 18

// GetSTRKBalance returns the native-token balance for address.
func (c *HTTPClient) GetSTRKBalance(ctx context.Context, address felt.Felt) (*Balance, error) {
	out, err := c.call(ctx, c.contracts.STRKToken, selectorBalanceOf, []felt.Felt{address})
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	if len(out) < 1 {
		return nil, Other("balanceOf", fmt.Errorf("empty result"))
	}
	return &Balance{Value: new(big.Int).SetBytes(out[0].Bytes())}, nil
}

// AsSTRK renders the u128 balance divided by 10^18, per spec.md §6.
func (b *Balance) AsSTRK() float64 {
	if b == nil || b.Value == nil {
		return 0
	}
	f := new(big.Float).SetInt(b.Value)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(strkDecimals), nil))
	f.Quo(f, divisor)
	out, _ := f.Float64()
	return out
}

type addInvokeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

type feeEstimate struct {
	L1GasConsumed     string `json:"l1_gas_consumed"`
	L1GasPrice        string `json:"l1_gas_price"`
	L2GasConsumed     string `json:"l2_gas_consumed"`
	L2GasPrice        string `json:"l2_gas_price"`
	L1DataGasConsumed string `json:"l1_data_gas_consumed"`
	L1DataGasPrice    string `json:"l1_data_gas_price"`
}

func hexToUint64(s string) uint64 {
	f, err := felt.FromHex(s)
	if err != nil {
		return 0
	}
	return f.Uint64()
}

// Attest builds, signs via signer, and submits a v3 invoke transaction
// calling attest(blockHash) on the attestation contract, with the fee
// estimate multiplied 3x on both gas amount and gas price.
func (c *HTTPClient) Attest(ctx context.Context, operationalAddress felt.Felt, signer Signer, blockHash felt.Felt) (felt.Felt, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return felt.Felt{}, fmt.Errorf("attest: %w", err)
	}

	nonceOut, err := c.call(ctx, c.contracts.Attestation, selector("get_nonce"), []felt.Felt{operationalAddress})
	nonce := uint64(0)
	if err == nil && len(nonceOut) > 0 {
		nonce = nonceOut[0].Uint64()
	}

	calldata := []felt.Felt{blockHash}

	var est []feeEstimate
	if err := c.t.call(ctx, "starknet_estimateFee", []any{
		[]any{map[string]any{
			"type":             "INVOKE",
			"sender_address":   operationalAddress.Hex(),
			"calldata":         hexSlice(calldata),
			"version":          "0x100000000000000000000000000000003",
			"nonce":            fmt.Sprintf("0x%x", nonce),
		}},
		[]string{},
		"pending",
	}, &est); err != nil {
		return felt.Felt{}, AttestationFailed(fmt.Sprintf("fee estimation failed: %v", err))
	}
	if len(est) < 1 {
		return felt.Felt{}, AttestationFailed("fee estimation returned no result")
	}

	tmpl := TxTemplate{
		SenderAddress: operationalAddress,
		Calldata:      calldata,
		Nonce:         nonce,
		L1Gas: ResourceBounds{
			MaxAmount:       hexToUint64(est[0].L1GasConsumed) * feeMultiplier,
			MaxPricePerUnit: hexToUint64(est[0].L1GasPrice) * feeMultiplier,
		},
		L2Gas: ResourceBounds{
			MaxAmount:       hexToUint64(est[0].L2GasConsumed) * feeMultiplier,
			MaxPricePerUnit: hexToUint64(est[0].L2GasPrice) * feeMultiplier,
		},
		L1DataGas: ResourceBounds{
			MaxAmount:       hexToUint64(est[0].L1DataGasConsumed) * feeMultiplier,
			MaxPricePerUnit: hexToUint64(est[0].L1DataGasPrice) * feeMultiplier,
		},
	}

	txHash := felt.Hash(tmpl.SenderAddress, felt.FromUint64(tmpl.Nonce), blockHash, chainID)

	sig, err := signer.Sign(ctx, txHash, tmpl, chainID)
	if err != nil {
		return felt.Felt{}, fmt.Errorf("attest: sign: %w", err)
	}

	var res addInvokeResult
	err = c.t.call(ctx, "starknet_addInvokeTransaction", []any{map[string]any{
		"type":                     "INVOKE",
		"sender_address":           tmpl.SenderAddress.Hex(),
		"calldata":                 hexSlice(tmpl.Calldata),
		"version":                  "0x3",
		"signature":                []string{sig[0].Hex(), sig[1].Hex()},
		"nonce":                    fmt.Sprintf("0x%x", tmpl.Nonce),
		"resource_bounds": map[string]any{
			"l1_gas":      resourceBoundsJSON(tmpl.L1Gas),
			"l2_gas":      resourceBoundsJSON(tmpl.L2Gas),
			"l1_data_gas": resourceBoundsJSON(tmpl.L1DataGas),
		},
		"tip":                           fmt.Sprintf("0x%x", tmpl.Tip),
		"paymaster_data":                hexSlice(tmpl.PaymasterData),
		"account_deployment_data":       hexSlice(tmpl.AccountDeploymentData),
		"nonce_data_availability_mode":  "L1",
		"fee_data_availability_mode":    "L1",
	}, &res)
	if err != nil {
		return felt.Felt{}, AttestationFailed(unpackExecutionError(err))
	}

	return felt.FromHex(res.TransactionHash)
}

func resourceBoundsJSON(b ResourceBounds) map[string]string {
	return map[string]string{
		"max_amount":       fmt.Sprintf("0x%x", b.MaxAmount),
		"max_price_per_unit": fmt.Sprintf("0x%x", b.MaxPricePerUnit),
	}
}

func hexSlice(fs []felt.Felt) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Hex()
	}
	return out
}

// unpackExecutionError returns the raw "data" payload of a JSON-RPC error
// when there is one, and the error's text otherwise. Nested execution
// errors inside that payload are not unpacked further: the message is the
// whole top-level data, not its innermost leaf.
func unpackExecutionError(err error) string {
	msg := err.Error()
	for {
		rpcErr, ok := asJSONRPCError(err)
		if !ok || len(rpcErr.Data) == 0 {
			break
		}
		msg = string(rpcErr.Data)
		break
	}
	return msg
}

func asJSONRPCError(err error) (*jsonrpcError, bool) {
	rpcErr, ok := err.(*jsonrpcError)
	return rpcErr, ok
}

// ChainID returns the chain id, used once at startup to select default
// contract addresses.
func (c *HTTPClient) ChainID(ctx context.Context) (felt.Felt, error) {
	var out string
	if err := c.t.call(ctx, "starknet_chainId", []any{}, &out); err != nil {
		return felt.Felt{}, Other("starknet_chainId", err)
	}
	return felt.FromHex(out)
}
