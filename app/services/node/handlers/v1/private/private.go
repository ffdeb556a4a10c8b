// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	v1 "github.com/ardanlabs/utxochain/business/web/v1"
	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/codec"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	Registry *codec.Registry
}

// SubmitPeer is called by a node so they can be added to the known peer list.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if h.State.AddKnownPeer(pr) {
		h.Log.Infow("adding peer", "traceid", web.GetTraceID(ctx), "host", pr.Host)
	}

	return web.Respond(ctx, w, nil, http.StatusOK)
}

// Gossip accepts an entity a peer is sharing. The envelope's type tag
// selects the decoder, transactions go to the mempool and blocks go to the
// chain manager.
func (h Handlers) Gossip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var env codec.Envelope
	if err := web.Decode(r, &env); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	typ, v, err := h.Registry.DecodeEnvelope(env)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	switch entity := v.(type) {
	case database.Tx:
		h.Log.Infow("gossip", "traceid", web.GetTraceID(ctx), "type", typ, "tx", entity.ID())

		if err := h.State.SubmitNodeTransaction(entity); err != nil {
			return v1.NewRequestError(err, http.StatusNotAcceptable)
		}

		return web.Respond(ctx, w, status{Status: "transaction added to mempool"}, http.StatusOK)

	case database.Block:
		h.Log.Infow("gossip", "traceid", web.GetTraceID(ctx), "type", typ, "blk", entity.ID())

		if chainIdx, known := h.State.QueryKnownBlock(entity.ID()); known {
			return web.Respond(ctx, w, status{Status: "known", Chain: &chainIdx}, http.StatusOK)
		}

		chainIdx, err := h.State.ProcessProposedBlock(entity)
		if err != nil {
			if errors.Is(err, chain.ErrReorgInvariant) {
				return web.NewShutdownError(err.Error())
			}
			return v1.NewRequestError(err, http.StatusNotAcceptable)
		}

		resp := status{Status: "accepted", Chain: &chainIdx}
		if chainIdx == chain.NotConnected {
			resp.Status = "orphaned"
		}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	return v1.NewRequestError(fmt.Errorf("%w: %s", codec.ErrUnknownType, typ), http.StatusBadRequest)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// BlocksByNumber returns the blocks of the active chain based on the
// specified from/to heights.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = strconv.Itoa(state.QueryLatest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = strconv.Itoa(state.QueryLatest)
	}

	from, err := strconv.Atoi(fromStr)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	to, err := strconv.Atoi(toStr)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if from != state.QueryLatest && to != state.QueryLatest && from > to {
		return v1.NewRequestError(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.RetrieveMempool()
	return web.Respond(ctx, w, txs, http.StatusOK)
}

// =============================================================================

type status struct {
	Status string `json:"status"`
	Chain  *int   `json:"chain,omitempty"`
}
