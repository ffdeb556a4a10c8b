package worker

// Sync updates the peer list, mempool and blocks.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, peer := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(peer)
		if err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", peer.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		// If this peer has a longer chain, pull its blocks first so the
		// pending transactions are checked against the right ledger.
		if peerStatus.TipHeight > w.state.RetrieveStatus().TipHeight {
			w.evHandler("worker: sync: retrievePeerBlocks: %s: tipHeight[%d]", peer.Host, peerStatus.TipHeight)

			if err := w.state.NetRequestPeerBlocks(peer); err != nil {
				w.evHandler("worker: sync: retrievePeerBlocks: %s: ERROR %s", peer.Host, err)
			}
		}

		// Retrieve the mempool from the peer.
		pool, err := w.state.NetRequestPeerMempool(peer)
		if err != nil {
			w.evHandler("worker: sync: retrievePeerMempool: %s: ERROR: %s", peer.Host, err)
			continue
		}
		for _, tx := range pool {
			if err := w.state.SubmitNodeTransaction(tx); err != nil {
				w.evHandler("worker: sync: retrievePeerMempool: %s: tx[%s]: WARNING: %s", peer.Host, tx.ID(), err)
			}
		}
	}
}
