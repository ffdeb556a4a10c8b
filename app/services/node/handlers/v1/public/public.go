// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	v1 "github.com/ardanlabs/utxochain/business/web/v1"
	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// The trace id of the request identifies the subscription.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new wallet transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("add wallet tx", "traceid", web.GetTraceID(ctx), "tx", tx.ID(), "inputs", len(tx.TxIns), "outputs", len(tx.TxOuts))
	if err := h.State.SubmitWalletTransaction(tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string       `json:"status"`
		ID     hashing.Hash `json:"id"`
	}{
		Status: "transaction added to mempool",
		ID:     tx.ID(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Status returns the tip of the active chain and the size of the mempool.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions, optionally filtered
// to the ones paying the account.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := web.Param(r, "account")

	var trans []tx
	for _, tran := range h.State.RetrieveMempool() {
		if acct != "" && !pays(tran, database.AccountID(acct)) {
			continue
		}
		trans = append(trans, h.toTx(tran))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the balance of the account, or of every known name
// when no account is specified.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ids []database.AccountID
	switch acct := web.Param(r, "account"); acct {
	case "":
		for id := range h.NS.Copy() {
			ids = append(ids, id)
		}

	default:
		id, err := h.toAccountID(acct)
		if err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		ids = append(ids, id)
	}

	infos := make([]accountInfo, 0, len(ids))
	for _, id := range ids {
		var spendable uint64
		for _, uo := range h.State.QuerySpendable(id) {
			spendable += uo.Value
		}

		infos = append(infos, accountInfo{
			Account:   id,
			Name:      h.NS.Lookup(id),
			Balance:   h.State.QueryBalance(id),
			Spendable: spendable,
			Outputs:   len(h.State.QueryUTXOs(id)),
		})
	}

	resp := accounts{
		LatestBlock: h.State.RetrieveLatestBlock().ID(),
		Uncommitted: h.State.QueryMempoolLength(),
		Accounts:    infos,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UTXOs returns the outputs of the account that are not spent by a pending
// transaction. Wallets build their transactions from this list.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := h.toAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.State.QuerySpendable(id), http.StatusOK)
}

// Blocks returns the blocks of the active chain between the two heights.
// Without a range the whole active chain is returned.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseHeight(web.Param(r, "from"), 0)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	to, err := parseHeight(web.Param(r, "to"), state.QueryLatest)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	dbBlocks := h.State.QueryBlocksByNumber(from, to)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		_, height, _, _ := h.State.QueryBlockByID(blk.ID())
		blocks[i] = h.toBlock(blk, height, chain.ActiveChain)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByID returns the block with its height and chain index.
func (h Handlers) BlockByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := hashing.ToHash(web.Param(r, "id"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	blk, height, chainIdx, exists := h.State.QueryBlockByID(id)
	if !exists {
		return v1.NewRequestError(fmt.Errorf("block %s not found", id), http.StatusNotFound)
	}

	return web.Respond(ctx, w, h.toBlock(blk, height, chainIdx), http.StatusOK)
}

// Branches returns the side branches, each from its fork point upward.
func (h Handlers) Branches(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	branches := h.State.QueryBranches()

	resp := make([][]block, len(branches))
	for i, branch := range branches {
		resp[i] = make([]block, len(branch))
		for j, blk := range branch {
			_, height, _, _ := h.State.QueryBlockByID(blk.ID())
			resp[i][j] = h.toBlock(blk, height, i+1)
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Orphans returns the blocks waiting for their parent.
func (h Handlers) Orphans(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	orphans := h.State.QueryOrphans()

	resp := make([]block, len(orphans))
	for i, blk := range orphans {
		resp[i] = h.toBlock(blk, -1, chain.NotConnected)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// toAccountID accepts either an account id or a name known to the name
// service.
func (h Handlers) toAccountID(acct string) (database.AccountID, error) {
	if id, exists := h.NS.AccountID(acct); exists {
		return id, nil
	}

	return database.ToAccountID(acct)
}

func (h Handlers) toTx(tran database.Tx) tx {
	ins := make([]input, len(tran.TxIns))
	for i, in := range tran.TxIns {
		ins[i] = input{
			OutPoint: in.OutPoint,
			Proof:    in.UnlockProof.String(),
		}
	}

	outs := make([]output, len(tran.TxOuts))
	for i, out := range tran.TxOuts {
		outs[i] = output{
			Value:     out.Value,
			Owner:     out.Owner,
			OwnerName: h.NS.Lookup(out.Owner),
		}
	}

	return tx{
		ID:         tran.ID(),
		IsCoinbase: tran.IsCoinbase(),
		Inputs:     ins,
		Outputs:    outs,
	}
}

func (h Handlers) toBlock(blk database.Block, height int, chainIdx int) block {
	trans := make([]tx, len(blk.Trans))
	for i, tran := range blk.Trans {
		trans[i] = h.toTx(tran)
	}

	return block{
		ID:            blk.ID(),
		Height:        height,
		Chain:         chainIdx,
		Version:       blk.Header.Version,
		PrevBlockHash: blk.Header.PrevBlockHash,
		MerkleRoot:    blk.Header.MerkleRoot,
		TimeStamp:     blk.Header.TimeStamp,
		NBits:         blk.Header.NBits,
		Nonce:         blk.Header.Nonce,
		Trans:         trans,
	}
}

// pays reports whether one of the outputs of the transaction belongs to
// the account.
func pays(tran database.Tx, id database.AccountID) bool {
	for _, out := range tran.TxOuts {
		if strings.EqualFold(string(out.Owner), string(id)) {
			return true
		}
	}
	return false
}

// parseHeight converts a height parameter. An empty parameter takes the
// default and "latest" selects the tip.
func parseHeight(s string, def int) (int, error) {
	switch s {
	case "":
		return def, nil
	case "latest":
		return state.QueryLatest, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid height %q: %w", s, err)
	}
	if n < 0 {
		return 0, errors.New("height can't be negative")
	}

	return n, nil
}
