// Package evmchain implements the chain capability surface for EVM-family
// networks using go-ethereum. One Client is created per configured network
// and lives for the process lifetime.
package evmchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/domain"
)

const (
	// MinKeyLength is the minimum hex length accepted as signing material.
	// Anything shorter is treated as absent and leaves the client read-only.
	MinKeyLength = 64

	dialTimeout         = 10 * time.Second
	receiptPollInterval = 2 * time.Second
)

// executorABI describes the strike executor contract entry point: a single
// payable operation taking the swap path and the loan principal.
const executorABI = `[{
	"name": "executeStrike",
	"type": "function",
	"stateMutability": "payable",
	"inputs": [
		{"name": "path", "type": "string"},
		{"name": "amount", "type": "uint256"}
	],
	"outputs": []
}]`

// Client is the EVM implementation of domain.ChainClient.
type Client struct {
	eth      *ethclient.Client
	chainID  *big.Int
	executor common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	abi      abi.ABI
	log      zerolog.Logger
}

// Dial connects to an EVM network, verifies its chain ID and, when valid
// signing material is supplied, binds a signing identity to the session.
func Dial(ctx context.Context, name, rpcURL string, chainID int64, privateKeyHex, executorAddress string, log zerolog.Logger) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	eth, err := ethclient.DialContext(dialCtx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", name, err)
	}

	remoteID, err := eth.ChainID(dialCtx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to read chain id for %s: %w", name, err)
	}
	if remoteID.Int64() != chainID {
		eth.Close()
		return nil, fmt.Errorf("chain id mismatch for %s: want %d, got %s", name, chainID, remoteID)
	}

	parsedABI, err := abi.JSON(strings.NewReader(executorABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to parse executor ABI: %w", err)
	}

	c := &Client{
		eth:      eth,
		chainID:  big.NewInt(chainID),
		executor: common.HexToAddress(executorAddress),
		abi:      parsedABI,
		log:      log.With().Str("client", "evmchain").Str("network", name).Logger(),
	}

	if key, from, ok := bindKey(privateKeyHex); ok {
		c.key = key
		c.from = from
		c.log.Info().Str("address", from.Hex()).Msg("Signing identity bound")
	} else if privateKeyHex != "" {
		c.log.Warn().Msg("Signing material invalid, session is read-only")
	}

	return c, nil
}

// bindKey parses hex signing material. Material shorter than MinKeyLength
// or not a valid secp256k1 scalar yields no binding.
func bindKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, bool) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	if len(privateKeyHex) < MinKeyLength {
		return nil, common.Address{}, false
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, common.Address{}, false
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), true
}

// CanSign implements domain.ChainClient.
func (c *Client) CanSign() bool {
	return c.key != nil
}

// Address returns the signing account address, or the zero address for
// read-only sessions.
func (c *Client) Address() string {
	return c.from.Hex()
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// GetBalance implements domain.ChainClient.
func (c *Client) GetBalance(ctx context.Context) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// GetFeeData implements domain.ChainClient. The base fee comes from the
// latest header; the tip suggestion is best effort and may be nil.
func (c *Client) GetFeeData(ctx context.Context) (*domain.FeeData, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest header: %w", err)
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		// Pre-London backend; the gas price stands in for the base fee.
		baseFee, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read gas price: %w", err)
		}
	}

	fees := &domain.FeeData{BaseFee: baseFee}
	if tip, err := c.eth.SuggestGasTipCap(ctx); err == nil {
		fees.TipCap = tip
	}

	return fees, nil
}

// callData packs the executor calldata for a strike request.
func (c *Client) callData(req domain.StrikeRequest) ([]byte, error) {
	data, err := c.abi.Pack("executeStrike", req.Path, req.LoanAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack strike calldata: %w", err)
	}
	return data, nil
}

// Simulate implements domain.ChainClient by executing the strike as an
// eth_call against current state. A revert surfaces as an error.
func (c *Client) Simulate(ctx context.Context, req domain.StrikeRequest) error {
	data, err := c.callData(req)
	if err != nil {
		return err
	}

	msg := ethereum.CallMsg{
		From:      c.from,
		To:        &c.executor,
		Gas:       req.GasLimit,
		GasFeeCap: req.MaxFeePerGas,
		GasTipCap: req.MaxPriorityFee,
		Value:     req.Value,
		Data:      data,
	}
	if _, err := c.eth.CallContract(ctx, msg, nil); err != nil {
		return fmt.Errorf("simulation reverted: %w", err)
	}
	return nil
}

// Submit implements domain.ChainClient: signs a dynamic-fee transaction
// and broadcasts it, returning the transaction hash as the handle.
func (c *Client) Submit(ctx context.Context, req domain.StrikeRequest) (string, error) {
	if c.key == nil {
		return "", errors.New("no signing identity bound")
	}

	data, err := c.callData(req)
	if err != nil {
		return "", err
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to read pending nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: req.MaxPriorityFee,
		GasFeeCap: req.MaxFeePerGas,
		Gas:       req.GasLimit,
		To:        &c.executor,
		Value:     req.Value,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	return signed.Hash().Hex(), nil
}

// AwaitConfirmation implements domain.ChainClient. It polls for the
// receipt, then waits until the requested confirmation depth is reached.
func (c *Client) AwaitConfirmation(ctx context.Context, handle string, confirmations uint64) (bool, error) {
	hash := common.HexToHash(handle)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	var receipt *types.Receipt
	for receipt == nil {
		r, err := c.eth.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			receipt = r
		case errors.Is(err, ethereum.NotFound):
			// Not mined yet, keep polling.
		default:
			return false, fmt.Errorf("failed to read receipt: %w", err)
		}

		if receipt == nil {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-ticker.C:
			}
		}
	}

	for confirmations > 1 {
		head, err := c.eth.BlockNumber(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to read block number: %w", err)
		}
		if head >= receipt.BlockNumber.Uint64()+confirmations-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}

	return receipt.Status == types.ReceiptStatusSuccessful, nil
}
