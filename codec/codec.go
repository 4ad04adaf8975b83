// Package codec serializes registry snapshots.
//
// Supported formats:
//   - JSON (default, human-readable)
//   - MessagePack (binary, compact)
package codec

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/eventtree"
)

// Codec errors
var (
	ErrEncodeFailure = errors.New("failed to encode snapshot")
	ErrDecodeFailure = errors.New("failed to decode snapshot")
	ErrUnknownCodec  = errors.New("unknown codec")
)

// Codec handles snapshot serialization.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Encode serializes a snapshot to bytes.
	// Returns ErrEncodeFailure if serialization fails.
	Encode(s *eventtree.Snapshot) ([]byte, error)

	// Decode deserializes bytes to a snapshot.
	// Returns ErrDecodeFailure if deserialization fails.
	Decode(data []byte) (*eventtree.Snapshot, error)

	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Name returns a short identifier for this codec (e.g., "json", "msgpack").
	Name() string
}

// Default returns the default codec (JSON)
func Default() Codec {
	return JSON{}
}

// ByName returns the codec registered under name
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return MsgPack{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
