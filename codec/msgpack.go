package codec

import (
	"errors"

	"github.com/rbaliyan/eventtree"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack implements Codec using MessagePack serialization.
// Field names come from the msgpack struct tags of the snapshot types.
type MsgPack struct{}

// Encode serializes a snapshot to MessagePack bytes
func (c MsgPack) Encode(s *eventtree.Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	return data, nil
}

// Decode deserializes MessagePack bytes to a snapshot
func (c MsgPack) Decode(data []byte) (*eventtree.Snapshot, error) {
	var s eventtree.Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	return &s, nil
}

// ContentType returns the MIME type for MessagePack
func (c MsgPack) ContentType() string {
	return "application/msgpack"
}

// Name returns the codec identifier
func (c MsgPack) Name() string {
	return "msgpack"
}

// Compile-time check
var _ Codec = MsgPack{}
