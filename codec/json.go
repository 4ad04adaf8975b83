package codec

import (
	"encoding/json"
	"errors"

	"github.com/rbaliyan/eventtree"
)

// JSON implements Codec using indented JSON.
type JSON struct{}

// Encode serializes a snapshot to JSON bytes
func (c JSON) Encode(s *eventtree.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	return data, nil
}

// Decode deserializes JSON bytes to a snapshot
func (c JSON) Decode(data []byte) (*eventtree.Snapshot, error) {
	var s eventtree.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	return &s, nil
}

// ContentType returns the MIME type for JSON
func (c JSON) ContentType() string {
	return "application/json"
}

// Name returns the codec identifier
func (c JSON) Name() string {
	return "json"
}

// Compile-time check
var _ Codec = JSON{}
