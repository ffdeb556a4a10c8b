package hashing_test

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_DoubleHash(t *testing.T) {
	const exp = "0x5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"

	t.Log("Given the need to double hash data.")
	{
		t.Logf("\tTest 0:\tWhen hashing an empty slice.")
		{
			h := hashing.DoubleHash(nil)
			if h.Hex() != exp {
				t.Logf("\t%s\tTest 0:\tgot: %s", failed, h.Hex())
				t.Logf("\t%s\tTest 0:\texp: %s", failed, exp)
				t.Fatalf("\t%s\tTest 0:\tShould get back the known double sha256.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the known double sha256.", success)

			h2, err := hashing.ToHash(exp)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to parse the hex hash: %v", failed, err)
			}
			if h2 != h {
				t.Fatalf("\t%s\tTest 0:\tShould round trip the hex representation.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould round trip the hex representation.", success)
		}
	}
}

func Test_LittleEndian(t *testing.T) {
	type table struct {
		name  string
		value uint64
		width int
		exp   []byte
		err   bool
	}

	tt := []table{
		{name: "three", value: 3, width: 4, exp: []byte{0x03, 0x00, 0x00, 0x00}},
		{name: "max-u32", value: 0xffffffff, width: 4, exp: []byte{0xff, 0xff, 0xff, 0xff}},
		{name: "one-byte", value: 0xab, width: 1, exp: []byte{0xab}},
		{name: "overflow", value: 0x1_0000_0000, width: 4, err: true},
		{name: "bad-width", value: 1, width: 9, err: true},
	}

	t.Log("Given the need to encode integers in little endian.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got, err := hashing.LittleEndian(tst.value, tst.width)
				if tst.err {
					if !errors.Is(err, hashing.ErrEncoding) {
						t.Fatalf("\t%s\tTest %d:\tShould get an encoding error: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get an encoding error.", success, testID)
					return
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to encode: %v", failed, testID, err)
				}
				if !bytes.Equal(got, tst.exp) {
					t.Logf("\t%s\tTest %d:\tgot: %x", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %x", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right bytes.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right bytes.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_CompactRoundTrip(t *testing.T) {
	compacts := []uint32{
		504382016,
		0x1d00ffff,
		0x207fffff,
		0x05009234,
		0x04123456,
		0x01120000,
		0x02008000,
	}

	t.Log("Given the need to convert compact targets.")
	{
		for testID, nbits := range compacts {
			t.Logf("\tTest %d:\tWhen handling compact %#08x.", testID, nbits)
			{
				target := hashing.TargetFromCompact(nbits)
				got := hashing.CompactFromTarget(target)
				if got != nbits {
					t.Logf("\t%s\tTest %d:\tgot: %#08x", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %#08x", failed, testID, nbits)
					t.Fatalf("\t%s\tTest %d:\tShould round trip the compact value.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould round trip the compact value.", success, testID)
			}
		}
	}
}

func Test_TargetFromCompact(t *testing.T) {
	exp, _ := new(big.Int).SetString("00000000ffff0000000000000000000000000000000000000000000000000000", 16)

	got := hashing.TargetFromCompact(0x1d00ffff)
	if got.Cmp(exp) != 0 {
		t.Logf("\t%s\tgot: %x", failed, got)
		t.Logf("\t%s\texp: %x", failed, exp)
		t.Fatalf("\t%s\tShould decode the bitcoin genesis target.", failed)
	}
	t.Logf("\t%s\tShould decode the bitcoin genesis target.", success)

	var h hashing.Hash
	h[0] = 0x01
	if h.MeetsTarget(got) {
		t.Fatalf("\t%s\tShould not accept a hash above the target.", failed)
	}
	if !hashing.ZeroHash.MeetsTarget(got) {
		t.Fatalf("\t%s\tShould accept a zero hash.", failed)
	}
	t.Logf("\t%s\tShould compare hashes against the target.", success)
}
