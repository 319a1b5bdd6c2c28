package codec_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"meshwire/internal/codec"
	"meshwire/internal/domain"
)

func mustEncode(t *testing.T, m domain.Message) []byte {
	t.Helper()
	b, err := codec.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

func assertRoundTrip(t *testing.T, m domain.Message) {
	t.Helper()
	got, err := codec.Decode(mustEncode(t, m))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != m.ID || got.Sender != m.Sender || got.Recipient != m.Recipient {
		t.Fatalf("header mismatch: got %+v, want %+v", got, m)
	}
	if !got.Timestamp.Equal(m.Timestamp) {
		t.Fatalf("timestamp mismatch: got %v, want %v", got.Timestamp, m.Timestamp)
	}
	switch want := m.Body.(type) {
	case domain.Text:
		gotBody, ok := got.Body.(domain.Text)
		if !ok || gotBody != want {
			t.Fatalf("body mismatch: got %#v, want %#v", got.Body, want)
		}
	case domain.Command:
		gotBody, ok := got.Body.(domain.Command)
		if !ok || gotBody.Opcode != want.Opcode || string(gotBody.Args) != string(want.Args) {
			t.Fatalf("body mismatch: got %#v, want %#v", got.Body, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  domain.Message
	}{
		{"direct text", domain.NewText("a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", "hello")},
		{"broadcast text", domain.NewText("a1a1a1a1a1a1a1a1", domain.Broadcast, "all points")},
		{"empty text", domain.NewText("a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", "")},
		{"unicode text", domain.NewText("a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", "héllo ∅ ☃")},
		{"command", domain.NewCommand("a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", 0x07, []byte{1, 2, 3})},
		{"command no args", domain.NewCommand("a1a1a1a1a1a1a1a1", domain.Broadcast, 0xFE, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertRoundTrip(t, tc.msg)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	valid := mustEncode(t, domain.NewText("a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", "hello"))

	badVersion := append([]byte(nil), valid...)
	badVersion[0] = 9

	badKind := append([]byte(nil), valid...)
	badKind[1] = 0x7F

	trailing := append(append([]byte(nil), valid...), 0x00)

	cases := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"bad version", badVersion},
		{"unknown kind", badKind},
		{"truncated header", valid[:5]},
		{"truncated payload", valid[:len(valid)-2]},
		{"trailing bytes", trailing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Decode(tc.in); !errors.Is(err, domain.ErrMalformed) {
				t.Fatalf("got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecode_InvalidUTF8(t *testing.T) {
	m := domain.Message{
		ID:        "m1",
		Timestamp: time.Now().UTC(),
		Sender:    "a1a1a1a1a1a1a1a1",
		Body:      domain.Text{Content: "ok"},
	}
	b := mustEncode(t, m)
	// The payload is the final two bytes; corrupt them into a bare
	// continuation byte sequence.
	b[len(b)-2] = 0xFF
	b[len(b)-1] = 0xFE

	if _, err := codec.Decode(b); !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestEncode_OversizedPayload(t *testing.T) {
	m := domain.NewText("a1a1a1a1a1a1a1a1", "b1b1b1b1b1b1b1b1", strings.Repeat("x", codec.MaxPayload+1))
	if _, err := codec.Encode(m); !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := domain.Envelope{
		Sender:     "a1a1a1a1a1a1a1a1",
		Recipient:  "b1b1b1b1b1b1b1b1",
		Ciphertext: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	copy(env.Nonce[:], []byte{1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 9})
	copy(env.Tag[:], []byte{0xAA, 0xBB})

	for _, recipient := range []domain.DeviceID{env.Recipient, domain.Broadcast} {
		env.Recipient = recipient
		b, err := codec.EncodeEnvelope(env)
		if err != nil {
			t.Fatalf("EncodeEnvelope: %v", err)
		}
		got, err := codec.DecodeEnvelope(b)
		if err != nil {
			t.Fatalf("DecodeEnvelope: %v", err)
		}
		if got.Sender != env.Sender || got.Recipient != env.Recipient ||
			got.Nonce != env.Nonce || got.Tag != env.Tag ||
			string(got.Ciphertext) != string(env.Ciphertext) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, env)
		}
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	env := domain.Envelope{Sender: "a1a1a1a1a1a1a1a1", Ciphertext: []byte{1}}
	valid, err := codec.EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}

	badFlags := append([]byte(nil), valid...)
	badFlags[1] = 0x80

	cases := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"unknown flags", badFlags},
		{"truncated nonce", valid[:8]},
		{"trailing bytes", append(append([]byte(nil), valid...), 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.DecodeEnvelope(tc.in); !errors.Is(err, domain.ErrMalformed) {
				t.Fatalf("got %v, want ErrMalformed", err)
			}
		})
	}
}
