package codec

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"

	"meshwire/internal/domain"
)

const (
	messageVersion = 1

	kindText    = 1
	kindCommand = 2

	// maxIDLen bounds the message ID field (UUID strings are 36 bytes).
	maxIDLen = 64
	// maxDeviceIDLen bounds sender and recipient identifiers.
	maxDeviceIDLen = 64
	// MaxPayload bounds text payloads and command arguments.
	MaxPayload = 64 * 1024
)

// Encode serializes a message to its plaintext wire form.
func Encode(m domain.Message) ([]byte, error) {
	if len(m.ID) > maxIDLen {
		return nil, fmt.Errorf("message id too long: %w", domain.ErrMalformed)
	}
	if len(m.Sender) > maxDeviceIDLen || len(m.Recipient) > maxDeviceIDLen {
		return nil, fmt.Errorf("device id too long: %w", domain.ErrMalformed)
	}

	buf := make([]byte, 0, 64)
	buf = append(buf, messageVersion)

	switch body := m.Body.(type) {
	case domain.Text:
		if len(body.Content) > MaxPayload {
			return nil, fmt.Errorf("text payload too long: %w", domain.ErrMalformed)
		}
		buf = append(buf, kindText)
		buf = appendCommon(buf, m)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(body.Content)))
		buf = append(buf, body.Content...)
	case domain.Command:
		if len(body.Args) > MaxPayload {
			return nil, fmt.Errorf("command args too long: %w", domain.ErrMalformed)
		}
		buf = append(buf, kindCommand)
		buf = appendCommon(buf, m)
		buf = append(buf, body.Opcode)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(body.Args)))
		buf = append(buf, body.Args...)
	default:
		return nil, fmt.Errorf("unknown message body %T: %w", m.Body, domain.ErrMalformed)
	}
	return buf, nil
}

func appendCommon(buf []byte, m domain.Message) []byte {
	buf = append(buf, byte(len(m.ID)))
	buf = append(buf, m.ID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(m.Timestamp.UnixNano()))
	buf = append(buf, byte(len(m.Sender)))
	buf = append(buf, m.Sender...)
	buf = append(buf, byte(len(m.Recipient)))
	buf = append(buf, m.Recipient...)
	return buf
}

// Decode parses the plaintext wire form back into a message.
func Decode(b []byte) (domain.Message, error) {
	r := reader{buf: b}

	ver, err := r.byte()
	if err != nil {
		return domain.Message{}, err
	}
	if ver != messageVersion {
		return domain.Message{}, fmt.Errorf("unsupported message version %d: %w", ver, domain.ErrMalformed)
	}
	kind, err := r.byte()
	if err != nil {
		return domain.Message{}, err
	}

	var m domain.Message
	if m.ID, err = r.shortString(maxIDLen); err != nil {
		return domain.Message{}, err
	}
	ts, err := r.uint64()
	if err != nil {
		return domain.Message{}, err
	}
	m.Timestamp = time.Unix(0, int64(ts)).UTC()
	sender, err := r.shortString(maxDeviceIDLen)
	if err != nil {
		return domain.Message{}, err
	}
	m.Sender = domain.DeviceID(sender)
	recipient, err := r.shortString(maxDeviceIDLen)
	if err != nil {
		return domain.Message{}, err
	}
	m.Recipient = domain.DeviceID(recipient)

	switch kind {
	case kindText:
		payload, err := r.longBytes(MaxPayload)
		if err != nil {
			return domain.Message{}, err
		}
		if !utf8.Valid(payload) {
			return domain.Message{}, fmt.Errorf("text payload is not valid UTF-8: %w", domain.ErrMalformed)
		}
		m.Body = domain.Text{Content: string(payload)}
	case kindCommand:
		opcode, err := r.byte()
		if err != nil {
			return domain.Message{}, err
		}
		args, err := r.longBytes(MaxPayload)
		if err != nil {
			return domain.Message{}, err
		}
		m.Body = domain.Command{Opcode: opcode, Args: args}
	default:
		return domain.Message{}, fmt.Errorf("unknown message kind %d: %w", kind, domain.ErrMalformed)
	}

	if r.remaining() != 0 {
		return domain.Message{}, fmt.Errorf("%d trailing bytes: %w", r.remaining(), domain.ErrMalformed)
	}
	return m, nil
}

// reader walks a wire buffer, converting under-runs into ErrMalformed.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("truncated at offset %d: %w", r.off, domain.ErrMalformed)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// shortString reads a 1-byte length-prefixed string.
func (r *reader) shortString(max int) (string, error) {
	n, err := r.byte()
	if err != nil {
		return "", err
	}
	if int(n) > max {
		return "", fmt.Errorf("field length %d exceeds %d: %w", n, max, domain.ErrMalformed)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// longBytes reads a 4-byte length-prefixed byte field; a zero length yields
// nil so decode mirrors encode exactly.
func (r *reader) longBytes(max int) ([]byte, error) {
	lb, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lb)
	if int(n) > max {
		return nil, fmt.Errorf("field length %d exceeds %d: %w", n, max, domain.ErrMalformed)
	}
	if n == 0 {
		return nil, nil
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}
