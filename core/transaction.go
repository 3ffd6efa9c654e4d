package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxTransfer         TxType = "transfer"
	TxCreateSkill      TxType = "create_skill"
	TxRegisterPlayer   TxType = "register_player"
	TxUnlockSkill      TxType = "unlock_skill"
	TxCreateTournament TxType = "create_tournament"
	TxJoinTournament   TxType = "join_tournament"
	TxUpdateReputation TxType = "update_reputation"
)

// Transaction is the atomic unit of work on the ledger.
// Signature is a recoverable secp256k1 signature over every other field
// except ID; the signer must equal From.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      common.Address  `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      common.Address  `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func (tx *Transaction) digest() []byte {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	return crypto.HashBytes(data)
}

// Hash returns a deterministic hash of the transaction (sans Signature).
func (tx *Transaction) Hash() string {
	d := tx.digest()
	if d == nil {
		return ""
	}
	return common.BytesToHash(d).Hex()
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv *crypto.PrivateKey) error {
	if priv.Address() != tx.From {
		return fmt.Errorf("signer %s does not match from %s", priv.Address().Hex(), tx.From.Hex())
	}
	sig, err := crypto.Sign(priv, tx.digest())
	if err != nil {
		return err
	}
	tx.Signature = sig
	tx.ID = tx.Hash()
	return nil
}

// Verify checks that the signature was produced by From.
func (tx *Transaction) Verify() error {
	if tx.From == (common.Address{}) {
		return errors.New("missing from field")
	}
	if tx.Signature == "" {
		return errors.New("missing signature")
	}
	return crypto.Verify(tx.From, tx.digest(), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from common.Address, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----
//
// Quantities travel in codec form: an encoded value plus its proof.

// TransferPayload transfers native tokens.
type TransferPayload struct {
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// CreateSkillPayload appends a skill definition. Owner only.
type CreateSkillPayload struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Branch        Branch   `json:"branch"`
	EncodedCost   string   `json:"encoded_cost"`
	Proof         string   `json:"proof"`
	RequiredLevel uint32   `json:"required_level,omitempty"`
	Requires      []uint64 `json:"requires,omitempty"` // prerequisite skill ids
}

// RegisterPlayerPayload registers the sender as a player.
type RegisterPlayerPayload struct{}

// UnlockSkillPayload spends skill points on a skill.
type UnlockSkillPayload struct {
	SkillID       uint64 `json:"skill_id"`
	EncodedPoints string `json:"encoded_points"` // caller's view of its current points
	Proof         string `json:"proof"`
}

// CreateTournamentPayload appends a tournament. Owner only. The call takes a
// single proof, and it is the entry fee's: the fee is the quantity players
// are later charged against.
type CreateTournamentPayload struct {
	Name             string `json:"name"`
	EncodedEntryFee  string `json:"encoded_entry_fee"`
	EncodedPrizePool string `json:"encoded_prize_pool"`
	Proof            string `json:"proof"` // proof of EncodedEntryFee
}

// JoinTournamentPayload enters the sender into a tournament. Payment is
// taken from the sender's token balance into the tournament escrow.
type JoinTournamentPayload struct {
	TournamentID    uint64 `json:"tournament_id"`
	EncodedEntryFee string `json:"encoded_entry_fee"`
	Proof           string `json:"proof"`
	Payment         uint64 `json:"payment"`
}

// UpdateReputationPayload adds a delta to a player's reputation. Verifier only.
type UpdateReputationPayload struct {
	Player       common.Address `json:"player"`
	EncodedDelta string         `json:"encoded_delta"`
	Proof        string         `json:"proof"`
}

// ---- Result types ----
//
// Handlers attach one of these to the receipt of a successful transaction.

type SkillCreatedResult struct {
	SkillID uint64 `json:"skill_id"`
}

type PlayerRegisteredResult struct {
	InitialPoints uint32 `json:"initial_points"`
}

type SkillUnlockedResult struct {
	SkillID   uint64 `json:"skill_id"`
	NewPoints uint32 `json:"new_points"`
	NewLevel  uint32 `json:"new_level"`
}

type TournamentCreatedResult struct {
	TournamentID uint64 `json:"tournament_id"`
}

type TournamentJoinedResult struct {
	TournamentID uint64 `json:"tournament_id"`
	Escrow       uint64 `json:"escrow"`
}

type ReputationUpdatedResult struct {
	Player        common.Address `json:"player"`
	NewReputation uint64         `json:"new_reputation"`
}
