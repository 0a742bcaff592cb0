// ABOUTME: Tests for beacon wire format encode/decode
// ABOUTME: Verifies round-tripping and malformed-datagram rejection
package protocol

import (
	"testing"

	"github.com/google/uuid"
)

func TestBeaconRequestRoundTrip(t *testing.T) {
	want := BeaconRequest{
		Sequence:          42,
		SessionID:         uuid.New(),
		ClientTransmitted: 1_234_567,
	}
	got, err := DecodeRequest(EncodeRequest(want))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestBeaconReplyRoundTrip(t *testing.T) {
	want := BeaconReply{
		Sequence:          7,
		SessionID:         uuid.New(),
		ClientTransmitted: 100,
		ServerReceived:    150,
		ServerTransmitted: 160,
	}
	got, err := DecodeReply(EncodeReply(want))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeRequestRejectsTruncatedDatagram(t *testing.T) {
	if _, err := DecodeRequest([]byte{MessageTypeBeaconRequest, 0, 1}); err == nil {
		t.Fatal("expected error decoding truncated datagram")
	}
}

func TestDecodeReplyRejectsWrongMessageType(t *testing.T) {
	data := EncodeRequest(BeaconRequest{Sequence: 1, SessionID: uuid.New(), ClientTransmitted: 5})
	if _, err := DecodeReply(data); err == nil {
		t.Fatal("expected error decoding request bytes as a reply")
	}
}
