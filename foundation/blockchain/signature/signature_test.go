package signature_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hashing"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	other    = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	message := hashing.DoubleHash([]byte("spend output 0"))

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	proof, err := signature.Sign(message[:], pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	addr, err := signature.FromAddress(message[:], proof)
	if err != nil {
		t.Fatalf("Should be able to generate from address: %s", err)
	}

	if from != addr {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", from)
		t.Fatalf("Should get back the right address.")
	}

	if err := signature.Verify(message[:], proof, from); err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}

	if len(signature.SignatureString(proof)) != 2+2*65 {
		t.Fatalf("Should get back a 65 byte hex signature string.")
	}
}

func Test_VerifyFailures(t *testing.T) {
	message := hashing.DoubleHash([]byte("spend output 0"))
	tampered := hashing.DoubleHash([]byte("spend output 1"))

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a private key: %s", failed, err)
	}

	proof, err := signature.Sign(message[:], pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign data: %s", failed, err)
	}

	t.Log("Given the need to reject unauthorized spends.")
	{
		if err := signature.Verify(message[:], proof, other); !errors.Is(err, signature.ErrInvalidSignature) {
			t.Fatalf("\t%s\tShould reject a proof for a different owner: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a proof for a different owner.", success)

		if err := signature.Verify(tampered[:], proof, from); err == nil {
			t.Fatalf("\t%s\tShould reject a proof over a different message.", failed)
		}
		t.Logf("\t%s\tShould reject a proof over a different message.", success)

		if err := signature.Verify(message[:], proof[:64], from); !errors.Is(err, signature.ErrInvalidSignature) {
			t.Fatalf("\t%s\tShould reject a short proof: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a short proof.", success)

		bad := append([]byte{}, proof...)
		bad[64] = 5
		if err := signature.Verify(message[:], bad, from); !errors.Is(err, signature.ErrInvalidSignature) {
			t.Fatalf("\t%s\tShould reject a bad recovery id: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a bad recovery id.", success)
	}
}
