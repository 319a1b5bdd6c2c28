package codec

import (
	"encoding/binary"
	"fmt"

	"meshwire/internal/domain"
)

const (
	envelopeVersion = 1

	flagBroadcast = 0x01

	// MaxCiphertext bounds envelope ciphertexts: the largest message frame
	// plus framing slack.
	MaxCiphertext = MaxPayload + 1024
)

// EncodeEnvelope serializes an envelope to the transport frame format.
func EncodeEnvelope(e domain.Envelope) ([]byte, error) {
	if len(e.Sender) > maxDeviceIDLen || len(e.Recipient) > maxDeviceIDLen {
		return nil, fmt.Errorf("device id too long: %w", domain.ErrMalformed)
	}
	if len(e.Ciphertext) > MaxCiphertext {
		return nil, fmt.Errorf("ciphertext too long: %w", domain.ErrMalformed)
	}

	var flags byte
	if e.Recipient.IsBroadcast() {
		flags |= flagBroadcast
	}

	buf := make([]byte, 0, len(e.Ciphertext)+64)
	buf = append(buf, envelopeVersion, flags)
	buf = append(buf, byte(len(e.Sender)))
	buf = append(buf, e.Sender...)
	if !e.Recipient.IsBroadcast() {
		buf = append(buf, byte(len(e.Recipient)))
		buf = append(buf, e.Recipient...)
	}
	buf = append(buf, e.Nonce[:]...)
	buf = append(buf, e.Tag[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Ciphertext)))
	buf = append(buf, e.Ciphertext...)
	return buf, nil
}

// DecodeEnvelope parses a transport frame back into an envelope.
func DecodeEnvelope(b []byte) (domain.Envelope, error) {
	r := reader{buf: b}

	ver, err := r.byte()
	if err != nil {
		return domain.Envelope{}, err
	}
	if ver != envelopeVersion {
		return domain.Envelope{}, fmt.Errorf("unsupported envelope version %d: %w", ver, domain.ErrMalformed)
	}
	flags, err := r.byte()
	if err != nil {
		return domain.Envelope{}, err
	}
	if flags&^flagBroadcast != 0 {
		return domain.Envelope{}, fmt.Errorf("unknown envelope flags %#x: %w", flags, domain.ErrMalformed)
	}

	var e domain.Envelope
	sender, err := r.shortString(maxDeviceIDLen)
	if err != nil {
		return domain.Envelope{}, err
	}
	if sender == "" {
		return domain.Envelope{}, fmt.Errorf("empty sender: %w", domain.ErrMalformed)
	}
	e.Sender = domain.DeviceID(sender)

	if flags&flagBroadcast == 0 {
		recipient, err := r.shortString(maxDeviceIDLen)
		if err != nil {
			return domain.Envelope{}, err
		}
		if recipient == "" {
			return domain.Envelope{}, fmt.Errorf("empty recipient: %w", domain.ErrMalformed)
		}
		e.Recipient = domain.DeviceID(recipient)
	}

	nonce, err := r.take(domain.NonceSize)
	if err != nil {
		return domain.Envelope{}, err
	}
	copy(e.Nonce[:], nonce)
	tag, err := r.take(domain.TagSize)
	if err != nil {
		return domain.Envelope{}, err
	}
	copy(e.Tag[:], tag)

	if e.Ciphertext, err = r.longBytes(MaxCiphertext); err != nil {
		return domain.Envelope{}, err
	}
	if r.remaining() != 0 {
		return domain.Envelope{}, fmt.Errorf("%d trailing bytes: %w", r.remaining(), domain.ErrMalformed)
	}
	return e, nil
}
