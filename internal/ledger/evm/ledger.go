// Package evm implements the settlement ledger as signed native transfers on
// an EVM chain. All calls are best-effort: the caller records failures and
// keeps the database authoritative.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/calebzhan/fflbot/internal/domain"
)

// weiPerToken converts whole-token amounts to wei (18 decimals).
var weiPerToken = new(big.Float).SetFloat64(1e18)

// Ledger signs and submits transfers from the treasury account.
type Ledger struct {
	client   *ethclient.Client
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	treasury common.Address
}

// New dials the RPC endpoint and prepares the treasury signer. privateKeyHex
// is the treasury key without 0x prefix, as returned by crypto.LoadKey.
func New(ctx context.Context, rpcURL string, chainID int64, privateKeyHex string) (*Ledger, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}

	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("evm: parse treasury key: %w", err)
	}

	return &Ledger{
		client:   client,
		chainID:  big.NewInt(chainID),
		key:      key,
		treasury: ethcrypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Treasury returns the treasury account address.
func (l *Ledger) Treasury() common.Address {
	return l.treasury
}

// Close releases the RPC connection.
func (l *Ledger) Close() {
	l.client.Close()
}

// Payout submits an on-chain transfer for a payout intent and returns the
// transaction hash as the ledger reference.
func (l *Ledger) Payout(ctx context.Context, intent domain.PayoutIntent) (domain.LedgerReceipt, error) {
	if !common.IsHexAddress(intent.Player) {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: payout for league %d: %w: player %q is not an address",
			intent.LeagueID, domain.ErrValidation, intent.Player)
	}
	txHash, err := l.transfer(ctx, common.HexToAddress(intent.Player), intent.Amount)
	if err != nil {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: payout to %s: %w", intent.Player, err)
	}
	return domain.LedgerReceipt{TxRef: txHash, SubmittedAt: time.Now().UTC()}, nil
}

// ConfirmStake records a participant's buy-in for a league. The stake itself
// is collected out of band; this writes a zero-value marker transaction whose
// data field ties the league and player together on chain.
func (l *Ledger) ConfirmStake(ctx context.Context, leagueID int64, player string, amount float64) (domain.LedgerReceipt, error) {
	if !common.IsHexAddress(player) {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: confirm stake for league %d: %w: player %q is not an address",
			leagueID, domain.ErrValidation, player)
	}

	nonce, err := l.client.PendingNonceAt(ctx, l.treasury)
	if err != nil {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: confirm stake nonce: %w", err)
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: confirm stake gas price: %w", err)
	}

	data := []byte("stake:" + strconv.FormatInt(leagueID, 10) + ":" + player)
	tx := types.NewTransaction(nonce, common.HexToAddress(player), big.NewInt(0),
		uint64(21000+68*len(data)), gasPrice, data)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: sign stake marker: %w", err)
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return domain.LedgerReceipt{}, fmt.Errorf("evm: send stake marker: %w", err)
	}

	return domain.LedgerReceipt{TxRef: signed.Hash().Hex(), SubmittedAt: time.Now().UTC()}, nil
}

// transfer signs and submits a native-token transfer of amount whole tokens.
func (l *Ledger) transfer(ctx context.Context, to common.Address, amount float64) (string, error) {
	nonce, err := l.client.PendingNonceAt(ctx, l.treasury)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	wei, _ := new(big.Float).Mul(new(big.Float).SetFloat64(amount), weiPerToken).Int(nil)

	tx := types.NewTransaction(nonce, to, wei, 21000, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// Compile-time interface check.
var _ domain.Ledger = (*Ledger)(nil)
