// Package gate feeds credentials read at an event entrance into the
// verification engine.
package gate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

var ErrEmptyScan = errors.New("scan carries no credential")

// Scan is one decoded credential. Action overrides the gate's default when
// set.
type Scan struct {
	Credential string
	Action     string

	settle func(requeue bool)
}

// Settle reports the outcome back to the source. requeue asks for the scan to
// be delivered again.
func (s Scan) Settle(requeue bool) {
	if s.settle != nil {
		s.settle(requeue)
	}
}

// Source produces a lazy sequence of scans. The channel closes when the
// source is exhausted or ctx is done; Scans may then be called again.
type Source interface {
	Scans(ctx context.Context) (<-chan Scan, error)
}

// ParseLine reads "CREDENTIAL [ACTION...]". Credentials carry no whitespace,
// so everything after the first blank is the action.
func ParseLine(line string) (Scan, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Scan{}, ErrEmptyScan
	}
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return Scan{Credential: line}, nil
	}
	return Scan{Credential: line[:i], Action: strings.TrimSpace(line[i:])}, nil
}

// LineSource reads one scan per line, the way keyboard-wedge scanners type
// them. Successive Scans calls continue where the previous one stopped.
type LineSource struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{scanner: bufio.NewScanner(r)}
}

func (s *LineSource) Scans(ctx context.Context) (<-chan Scan, error) {
	out := make(chan Scan)
	go func() {
		defer close(out)
		s.mu.Lock()
		defer s.mu.Unlock()

		for s.scanner.Scan() {
			scan, err := ParseLine(s.scanner.Text())
			if err != nil {
				continue
			}
			select {
			case out <- scan:
			case <-ctx.Done():
				return
			}
		}
		if err := s.scanner.Err(); err != nil {
			log.Error().Err(err).Str("component", "gate").Msg("reading scans failed")
		}
	}()
	return out, nil
}

// Deliveries is the part of an AMQP consumer the gate needs.
type Deliveries interface {
	Consume(tag string) (<-chan amqp.Delivery, error)
	Cancel(tag string) error
}

// AMQPSource turns queue deliveries into scans. A delivery is acked or
// requeued when its scan is settled.
type AMQPSource struct {
	deliveries Deliveries
}

func NewAMQPSource(d Deliveries) *AMQPSource {
	return &AMQPSource{deliveries: d}
}

func (s *AMQPSource) Scans(ctx context.Context) (<-chan Scan, error) {
	tag := "gate-" + uuid.NewString()
	msgs, err := s.deliveries.Consume(tag)
	if err != nil {
		return nil, err
	}

	out := make(chan Scan)
	go func() {
		defer close(out)
		defer func() {
			if err := s.deliveries.Cancel(tag); err != nil {
				log.Warn().Err(err).Str("component", "gate").Msg("cancel consumer")
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				scan, err := decodeDelivery(msg.Body)
				if err != nil {
					log.Warn().Err(err).Str("component", "gate").Msg("dropping undecodable scan")
					_ = msg.Nack(false, false)
					continue
				}
				scan.settle = func(requeue bool) {
					if requeue {
						_ = msg.Nack(false, true)
						return
					}
					_ = msg.Ack(false)
				}
				select {
				case out <- scan:
				case <-ctx.Done():
					_ = msg.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeDelivery(body []byte) (Scan, error) {
	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "{") {
		return ParseLine(text)
	}

	var m dto.GateScanMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return Scan{}, err
	}
	if strings.TrimSpace(m.QRCodeID) == "" {
		return Scan{}, ErrEmptyScan
	}
	return Scan{Credential: strings.TrimSpace(m.QRCodeID), Action: strings.TrimSpace(m.Action)}, nil
}
