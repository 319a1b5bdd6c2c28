package transport

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"meshwire/internal/domain"
)

// maxLine bounds one base64 frame line.
const maxLine = 1 << 20

// Line carries frames as base64 text lines over a reader/writer pair: pipes,
// files, or a copy-paste channel between two terminals. Either side may be
// nil for a one-way endpoint.
type Line struct {
	r io.Reader
	w io.Writer
}

// NewLine returns a line transport reading inbound frames from r and
// writing outbound frames to w.
func NewLine(r io.Reader, w io.Writer) *Line {
	return &Line{r: r, w: w}
}

// Send writes one frame as a base64 line. The write is the acknowledgement.
func (l *Line) Send(ctx context.Context, to domain.DeviceID, frame []byte) error {
	if l.w == nil {
		return errors.New("line transport: no outbound writer")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(l.w, base64.StdEncoding.EncodeToString(frame))
	return err
}

// Frames decodes base64 lines from the reader until EOF or ctx is done.
// Lines that do not decode are passed through raw so the manager records
// the drop.
func (l *Line) Frames(ctx context.Context) (<-chan []byte, error) {
	if l.r == nil {
		return nil, errors.New("line transport: no inbound reader")
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(l.r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			frame, err := base64.StdEncoding.DecodeString(line)
			if err != nil {
				frame = []byte(line)
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Compile-time assertion that Line implements domain.Transport.
var _ domain.Transport = (*Line)(nil)
