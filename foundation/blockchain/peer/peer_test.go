package peer_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
		exp   int
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host3"}, {Host: "host1"}, {Host: "host2"}},
			exp:   3,
		},
		{
			name:  "duplicates",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host1"}, {Host: "host2"}, {Host: ""}},
			exp:   2,
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			peers := ps.Copy("")
			if len(peers) != tst.exp {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, tst.exp)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			for i := 1; i < len(peers); i++ {
				if peers[i-1].Host > peers[i].Host {
					t.Fatalf("Test %s:\tShould get back the peers sorted by host: %v", tst.name, peers)
				}
			}

			peers = ps.Copy("host2")
			if len(peers) != tst.exp-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, tst.exp-1)
				t.Fatalf("Test %s:\tShould leave out the node itself.", tst.name)
			}

			ps.Remove(peer.New("host1"))
			if peers := ps.Copy(""); len(peers) != tst.exp-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer, got %d.", tst.name, len(peers))
			}
		}

		t.Run(tst.name, f)
	}
}
