package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/indexer"
	"go.uber.org/zap"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc       *core.Blockchain
	mempool  *core.Mempool
	state    core.State // committed-state reader; never written
	receipts core.ReceiptStore
	indexer  *indexer.Indexer
	chainID  string // expected chain_id; used to reject cross-chain replay transactions
	logger   *zap.Logger
}

// NewHandler creates an RPC Handler. state must be a reader over committed
// state that nothing else writes to.
func NewHandler(
	bc *core.Blockchain,
	mempool *core.Mempool,
	state core.State,
	receipts core.ReceiptStore,
	idx *indexer.Indexer,
	chainID string,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bc:       bc,
		mempool:  mempool,
		state:    state,
		receipts: receipts,
		indexer:  idx,
		chainID:  chainID,
		logger:   logger.Named("rpc"),
	}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "sendTx":
		return h.sendTx(req)
	case "getReceipt":
		return h.getReceipt(req)

	case "getPlayerSkillPoints":
		return h.withPlayer(req, func(p *core.Player) any { return p.SkillPoints })
	case "getPlayerLevel":
		return h.withPlayer(req, func(p *core.Player) any { return p.Level })
	case "getPlayer":
		return h.withPlayer(req, func(p *core.Player) any { return p })
	case "isSkillUnlocked":
		return h.isSkillUnlocked(req)
	case "getSkillInfo":
		return h.withSkill(req, func(s *core.SkillDefinition) any { return s.Info() })
	case "getSkill":
		return h.withSkill(req, func(s *core.SkillDefinition) any { return s })
	case "getSkillsLength":
		return h.count(req, h.state.SkillCount)
	case "getTournament":
		return h.getTournament(req)
	case "getTournamentsLength":
		return h.count(req, h.state.TournamentCount)
	case "getRoles":
		roles, err := h.state.GetRoles()
		if err != nil {
			return h.ledgerErr(req.ID, err)
		}
		return okResponse(req.ID, roles)
	case "getBalance":
		return h.getBalance(req)

	case "getTournamentsByPlayer":
		return h.getTournamentsByPlayer(req)
	case "getSkillsByBranch":
		return h.getSkillsByBranch(req)
	case "getUnlockHistory":
		return h.getUnlockHistory(req)

	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())
	case "getBlock":
		return h.getBlock(req)
	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// ledgerErr maps a ledger or storage error to a response carrying its
// ledger code.
func (h *Handler) ledgerErr(id any, err error) Response {
	code := core.ErrorCode(err)
	rpcCode := CodeLedgerError
	switch code {
	case core.CodeNotFound:
		rpcCode = CodeNotFound
	case core.CodeInternal:
		rpcCode = CodeInternalError
		h.logger.Error("request failed", zap.Error(err))
	}
	resp := errResponse(id, rpcCode, err.Error())
	resp.Error.Data = &ErrorData{LedgerCode: code}
	return resp
}

func decodeParams(req Request, out any) *Response {
	if len(req.Params) == 0 {
		resp := errResponse(req.ID, CodeInvalidParams, "params are required")
		return &resp
	}
	if err := json.Unmarshal(req.Params, out); err != nil {
		resp := errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		return &resp
	}
	return nil
}

type addressParams struct {
	Address common.Address `json:"address"`
}

func (h *Handler) loadPlayer(addr common.Address) (*core.Player, error) {
	p, err := h.state.GetPlayer(addr)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotRegistered, addr.Hex())
	}
	return p, err
}

func (h *Handler) loadSkill(id uint64) (*core.SkillDefinition, error) {
	s, err := h.state.GetSkill(id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidSkill, id)
	}
	return s, err
}

func (h *Handler) withPlayer(req Request, view func(*core.Player) any) Response {
	var params addressParams
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	p, err := h.loadPlayer(params.Address)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, view(p))
}

func (h *Handler) withSkill(req Request, view func(*core.SkillDefinition) any) Response {
	var params struct {
		SkillID uint64 `json:"skill_id"`
	}
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	s, err := h.loadSkill(params.SkillID)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, view(s))
}

func (h *Handler) count(req Request, fn func() (uint64, error)) Response {
	n, err := fn()
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, n)
}

func (h *Handler) isSkillUnlocked(req Request) Response {
	var params struct {
		Address common.Address `json:"address"`
		SkillID uint64         `json:"skill_id"`
	}
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	p, err := h.loadPlayer(params.Address)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	if _, err := h.loadSkill(params.SkillID); err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, p.HasUnlocked(params.SkillID))
}

func (h *Handler) getTournament(req Request) Response {
	var params struct {
		TournamentID uint64 `json:"tournament_id"`
	}
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	t, err := h.state.GetTournament(params.TournamentID)
	if errors.Is(err, core.ErrNotFound) {
		err = fmt.Errorf("%w: %d", core.ErrInvalidTournament, params.TournamentID)
	}
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, t)
}

func (h *Handler) getBalance(req Request) Response {
	var params addressParams
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, acc)
}

func (h *Handler) getTournamentsByPlayer(req Request) Response {
	var params addressParams
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	ids, err := h.indexer.GetTournamentsByPlayer(params.Address)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) getSkillsByBranch(req Request) Response {
	var params struct {
		Branch core.Branch `json:"branch"`
	}
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	if !params.Branch.Valid() {
		return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unknown branch %q", params.Branch))
	}
	ids, err := h.indexer.GetSkillsByBranch(params.Branch)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) getUnlockHistory(req Request) Response {
	var params addressParams
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	recs, err := h.indexer.GetUnlockHistory(params.Address)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	if recs == nil {
		recs = []indexer.UnlockRecord{}
	}
	return okResponse(req.ID, recs)
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		}
	}

	var block *core.Block
	var err error
	if params.Hash != "" {
		block, err = h.bc.GetBlock(params.Hash)
	} else if params.Height != nil {
		block, err = h.bc.GetBlockByHeight(*params.Height)
	} else {
		block = h.bc.Tip()
	}
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	if block == nil {
		return errResponse(req.ID, CodeNotFound, "no block found")
	}
	return okResponse(req.ID, block)
}

// SendTxResult is returned by sendTx.
type SendTxResult struct {
	TxID string `json:"tx_id"`
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if resp := decodeParams(req, &tx); resp != nil {
		return *resp
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()

	if _, err := h.receipts.GetReceipt(tx.ID); err == nil {
		return errResponse(req.ID, CodeTxRejected, core.ErrDuplicateTx.Error())
	} else if !errors.Is(err, core.ErrNotFound) {
		return h.ledgerErr(req.ID, err)
	}
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeTxRejected, err.Error())
	}
	h.logger.Debug("tx accepted",
		zap.String("tx", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.String("from", tx.From.Hex()))
	return okResponse(req.ID, SendTxResult{TxID: tx.ID})
}

func (h *Handler) getReceipt(req Request) Response {
	var params struct {
		TxID string `json:"tx_id"`
	}
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	if params.TxID == "" {
		return errResponse(req.ID, CodeInvalidParams, "tx_id is required")
	}
	if tx, ok := h.mempool.Get(params.TxID); ok {
		return okResponse(req.ID, &core.Receipt{
			TxID:   tx.ID,
			Type:   tx.Type,
			From:   tx.From,
			Status: core.TxPending,
		})
	}
	r, err := h.receipts.GetReceipt(params.TxID)
	if err != nil {
		return h.ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, r)
}
