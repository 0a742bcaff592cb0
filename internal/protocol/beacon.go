// ABOUTME: Wire format for the beacon request/reply exchange
// ABOUTME: Fixed-length, type-tagged UDP framing carrying the three sync timestamps
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Message type tags, carried as the first byte of every datagram — the
// same one-byte-tag-plus-binary-header convention the audio transport uses
// for its chunk framing, applied here to a UDP beacon instead of a
// WebSocket stream.
const (
	MessageTypeBeaconRequest byte = 1
	MessageTypeBeaconReply   byte = 2
)

// headerLen is the fixed portion every beacon datagram carries before any
// timestamps: 1 type byte + 4-byte sequence + 16-byte session id.
const headerLen = 1 + 4 + 16

// BeaconRequest is sent by a sync node to a reference node. ClientTransmitted
// is the sync node's local send time, in microseconds.
type BeaconRequest struct {
	Sequence          uint32
	SessionID         uuid.UUID
	ClientTransmitted int64
}

// BeaconReply is the reference node's response, echoing ClientTransmitted
// and stamping its own receive/transmit times. This is spec.md's
// (T_o, T_b, T_r) triple laid out on the wire: T_o = ClientTransmitted,
// T_b = ServerReceived (the sync node's transport uses it and ignores
// ServerTransmitted), T_r is supplied by the sync node on receipt.
type BeaconReply struct {
	Sequence          uint32
	SessionID         uuid.UUID
	ClientTransmitted int64
	ServerReceived    int64
	ServerTransmitted int64
}

// EncodeRequest serializes a BeaconRequest into a fixed-length datagram.
func EncodeRequest(r BeaconRequest) []byte {
	buf := make([]byte, headerLen+8)
	buf[0] = MessageTypeBeaconRequest
	binary.BigEndian.PutUint32(buf[1:5], r.Sequence)
	copy(buf[5:21], r.SessionID[:])
	binary.BigEndian.PutUint64(buf[21:29], uint64(r.ClientTransmitted))
	return buf
}

// DecodeRequest parses a datagram produced by EncodeRequest.
func DecodeRequest(data []byte) (BeaconRequest, error) {
	if len(data) < headerLen+8 {
		return BeaconRequest{}, fmt.Errorf("beacon request too short: %d bytes", len(data))
	}
	if data[0] != MessageTypeBeaconRequest {
		return BeaconRequest{}, fmt.Errorf("unexpected message type %d, want %d", data[0], MessageTypeBeaconRequest)
	}
	var r BeaconRequest
	r.Sequence = binary.BigEndian.Uint32(data[1:5])
	copy(r.SessionID[:], data[5:21])
	r.ClientTransmitted = int64(binary.BigEndian.Uint64(data[21:29]))
	return r, nil
}

// EncodeReply serializes a BeaconReply into a fixed-length datagram.
func EncodeReply(r BeaconReply) []byte {
	buf := make([]byte, headerLen+24)
	buf[0] = MessageTypeBeaconReply
	binary.BigEndian.PutUint32(buf[1:5], r.Sequence)
	copy(buf[5:21], r.SessionID[:])
	binary.BigEndian.PutUint64(buf[21:29], uint64(r.ClientTransmitted))
	binary.BigEndian.PutUint64(buf[29:37], uint64(r.ServerReceived))
	binary.BigEndian.PutUint64(buf[37:45], uint64(r.ServerTransmitted))
	return buf
}

// DecodeReply parses a datagram produced by EncodeReply.
func DecodeReply(data []byte) (BeaconReply, error) {
	if len(data) < headerLen+24 {
		return BeaconReply{}, fmt.Errorf("beacon reply too short: %d bytes", len(data))
	}
	if data[0] != MessageTypeBeaconReply {
		return BeaconReply{}, fmt.Errorf("unexpected message type %d, want %d", data[0], MessageTypeBeaconReply)
	}
	var r BeaconReply
	r.Sequence = binary.BigEndian.Uint32(data[1:5])
	copy(r.SessionID[:], data[5:21])
	r.ClientTransmitted = int64(binary.BigEndian.Uint64(data[21:29]))
	r.ServerReceived = int64(binary.BigEndian.Uint64(data[29:37]))
	r.ServerTransmitted = int64(binary.BigEndian.Uint64(data[37:45]))
	return r, nil
}
