// Package signature provides helper functions for handling the blockchain
// signature needs. An unlock proof is a 65 byte [R|S|V] signature over the
// spend message, and the owner of an output is recovered from it.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when an unlock proof doesn't authorize the
// spend of an output.
var ErrInvalidSignature = errors.New("invalid signature")

// utxoID is an arbitrary number for signing messages. This will make it
// clear that the signature comes from this blockchain.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const utxoID = 29

// =============================================================================

// Sign uses the specified private key to sign the message. The returned
// proof is in the [R|S|V] format.
func Sign(message []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {

	// Prepare the data for signing.
	data := stamp(message)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, err
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, ErrInvalidSignature
	}

	// Add our id to the recovery byte.
	sig[crypto.RecoveryIDOffset] += utxoID

	return sig, nil
}

// Verify checks the proof is a valid signature of the message by the owner.
func Verify(message []byte, proof []byte, owner string) error {
	from, err := FromAddress(message, proof)
	if err != nil {
		return err
	}

	if !strings.EqualFold(from, owner) {
		return fmt.Errorf("%w: signed by %s, owned by %s", ErrInvalidSignature, from, owner)
	}

	return nil
}

// FromAddress extracts the address for the account that signed the message.
func FromAddress(message []byte, proof []byte) (string, error) {
	if err := validate(proof); err != nil {
		return "", err
	}

	// Prepare the data for public key extraction.
	data := stamp(message)

	// Capture the public key associated with this data and signature.
	publicKey, err := crypto.SigToPub(data, toSignatureBytes(proof))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	// Extract the account address from the public key.
	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// SignatureString returns the proof as a hex string.
func SignatureString(proof []byte) string {
	return hexutil.Encode(proof)
}

// =============================================================================

// validate verifies the proof conforms to our standards.
func validate(proof []byte) error {
	if len(proof) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(proof))
	}

	// Check the recovery id is either 0 or 1.
	v := proof[crypto.RecoveryIDOffset] - utxoID
	if v != 0 && v != 1 {
		return fmt.Errorf("%w: invalid recovery id", ErrInvalidSignature)
	}

	// Check the signature values are valid.
	r := new(big.Int).SetBytes(proof[:32])
	s := new(big.Int).SetBytes(proof[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return fmt.Errorf("%w: invalid signature values", ErrInvalidSignature)
	}

	return nil
}

// stamp returns a hash of 32 bytes that represents this message with
// the stamp embedded into the final hash.
func stamp(message []byte) []byte {

	// Hash the message into a 32 byte array. This will provide a data
	// length consistency with all messages.
	msgHash := crypto.Keccak256(message)

	// This stamp is used so signatures we produce when signing messages
	// are always unique to this blockchain.
	stamp := []byte("\x19UTXO Signed Message:\n32")

	return crypto.Keccak256(stamp, msgHash)
}

// toSignatureBytes returns a copy of the proof with our id removed from the
// recovery byte.
func toSignatureBytes(proof []byte) []byte {
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, proof)
	sig[crypto.RecoveryIDOffset] -= utxoID
	return sig
}
