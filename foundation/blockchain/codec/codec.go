// Package codec encodes ledger entities into a tagged envelope for the wire
// and decodes them back through a registry built at startup.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Set of type tags for the entities the node exchanges.
const (
	TypeTx    = "Tx"
	TypeBlock = "Block"
)

// Set of error variables for the codec.
var (
	ErrUnknownType = errors.New("unknown type")
	ErrRegistered  = errors.New("type already registered")
)

// Envelope is the wire format of an entity. The type tag selects the
// decoder for the payload.
type Envelope struct {
	Type    string          `json:"_type" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// DecodeFunc constructs an entity from its payload.
type DecodeFunc func(payload []byte) (any, error)

// Registry maps type tags to their decoder.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}

// NewRegistry constructs a registry with the ledger entities registered.
func NewRegistry() *Registry {
	r := Registry{
		decoders: make(map[string]DecodeFunc),
	}

	r.decoders[TypeTx] = decodeAs[database.Tx]
	r.decoders[TypeBlock] = decodeAs[database.Block]

	return &r
}

// Register adds a decoder for the specified type tag.
func (r *Registry) Register(typ string, fn DecodeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[typ]; exists {
		return fmt.Errorf("%w: %s", ErrRegistered, typ)
	}

	r.decoders[typ] = fn
	return nil
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.decoders))
	for typ := range r.decoders {
		types = append(types, typ)
	}
	sort.Strings(types)

	return types
}

// Decode reads the envelope and returns the type tag and the entity.
func (r *Registry) Decode(data []byte) (string, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unable to decode envelope: %w", err)
	}

	return r.DecodeEnvelope(env)
}

// DecodeEnvelope returns the entity the envelope carries.
func (r *Registry) DecodeEnvelope(env Envelope) (string, any, error) {
	r.mu.RLock()
	fn, exists := r.decoders[env.Type]
	r.mu.RUnlock()

	if !exists {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	v, err := fn(env.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("unable to decode %s: %w", env.Type, err)
	}

	return env.Type, v, nil
}

// =============================================================================

// Wrap places the entity in an envelope.
func Wrap(v any) (Envelope, error) {
	var typ string
	switch v.(type) {
	case database.Tx:
		typ = TypeTx
	case database.Block:
		typ = TypeBlock
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownType, v)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{Type: typ, Payload: payload}, nil
}

// Encode returns the wire encoding of the entity.
func Encode(v any) ([]byte, error) {
	env, err := Wrap(v)
	if err != nil {
		return nil, err
	}

	return json.Marshal(env)
}

// decodeAs unmarshals the payload into a value of type T.
func decodeAs[T any](payload []byte) (any, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}

	return v, nil
}
