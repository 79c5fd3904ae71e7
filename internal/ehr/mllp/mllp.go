// Package mllp sends HL7v2 messages over the Minimal Lower Layer Protocol:
// each message is framed as <VT> message <FS><CR> on a plain TCP
// connection, and the receiver answers with a framed acknowledgement.
package mllp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"clinical-ehr-bridge/internal/observability/metrics"
)

const (
	startBlock = 0x0B // <VT>
	endBlock   = 0x1C // <FS>
	carriage   = 0x0D // <CR>
)

// Sender ships framed HL7 messages to a single MLLP endpoint. One
// connection per Send; HL7 interfaces commonly drop idle connections, so no
// pooling is attempted.
type Sender struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, addr string) (net.Conn, error)
	metrics *metrics.Metrics
}

// NewSender creates a Sender for the given host:port.
func NewSender(addr string, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Sender{
		addr:    addr,
		timeout: timeout,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
		metrics: metrics.DefaultMetrics,
	}
}

// Frame wraps an HL7 message in MLLP block characters.
func Frame(message string) []byte {
	framed := make([]byte, 0, len(message)+3)
	framed = append(framed, startBlock)
	framed = append(framed, message...)
	framed = append(framed, endBlock, carriage)
	return framed
}

// Unframe strips MLLP block characters from a received frame.
func Unframe(frame []byte) (string, error) {
	if len(frame) < 3 || frame[0] != startBlock {
		return "", fmt.Errorf("mllp: frame missing start block")
	}
	if frame[len(frame)-2] != endBlock || frame[len(frame)-1] != carriage {
		return "", fmt.Errorf("mllp: frame missing end block")
	}
	return string(frame[1 : len(frame)-2]), nil
}

// Send transmits one message and returns the unframed acknowledgement. The
// messageType is only used for metrics and logging.
func (s *Sender) Send(ctx context.Context, messageType, message string) (string, error) {
	ack, err := s.send(ctx, message)
	s.metrics.RecordMLLPSend(messageType, err)
	if err != nil {
		log.Error().Err(err).
			Str("addr", s.addr).
			Str("messageType", messageType).
			Msg("MLLP send failed")
		return "", err
	}

	log.Info().
		Str("addr", s.addr).
		Str("messageType", messageType).
		Int("bytes", len(message)).
		Msg("HL7 message sent over MLLP")
	return ack, nil
}

func (s *Sender) send(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dial(ctx, s.addr)
	if err != nil {
		return "", fmt.Errorf("mllp: dial %s: %w", s.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(Frame(message)); err != nil {
		return "", fmt.Errorf("mllp: write: %w", err)
	}

	// The ACK is a single frame terminated by <FS><CR>.
	reader := bufio.NewReader(conn)
	frame, err := reader.ReadBytes(endBlock)
	if err != nil {
		return "", fmt.Errorf("mllp: read ack: %w", err)
	}
	cr, err := reader.ReadByte()
	if err != nil {
		return "", fmt.Errorf("mllp: read ack terminator: %w", err)
	}
	frame = append(frame, cr)

	return Unframe(frame)
}
