// Package venue implements the Venue Adapter boundary of the engine: one
// WebSocket session per (venue, market-data-or-private) feed, per-venue wire
// parsing into domain types, and order-entry REST calls. Nothing above this
// package touches raw JSON or venue-native symbols (spec §9).
//
// The session lifecycle (dial, ping, reconnect-on-close, panic recovery in
// the read loop) is the shape of the teacher's Kraken WebSocket client,
// generalized across venues via the Protocol interface below instead of
// being duplicated per venue.
package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	handshakeTimeout = 30 * time.Second
	readDeadline     = 60 * time.Second
	pingInterval     = 30 * time.Second
	pingWriteTimeout = 5 * time.Second
)

// Protocol is the venue-specific behavior a Session delegates to: building
// the wire-format subscribe/login frames and turning a raw message into
// zero or more normalized events.
type Protocol interface {
	// Name is the venue identifier used in logs and domain events.
	Name() string
	// SubscribeFrames returns the frames to send right after connect.
	SubscribeFrames() ([][]byte, error)
	// HandleMessage parses one raw frame, dispatching normalized events via
	// the Protocol's own callback fields. Returning an error does not close the
	// session; it is logged and the session keeps reading.
	HandleMessage(s *Session, raw []byte) error
}

// Session owns one gorilla/websocket connection and its reconnect loop for
// a single venue feed. Normalized events flow out through the Protocol's
// own callback fields (e.g. KrakenProtocol.OnBook), not through Session;
// Session only surfaces message-handling errors.
type Session struct {
	url      string
	protocol Protocol
	log      zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	closeCh  chan struct{}
	reconnCh chan struct{}

	OnError func(err error)
}

// NewSession builds a session bound to one venue URL and protocol. Connect
// must be called to start it.
func NewSession(url string, protocol Protocol, log zerolog.Logger) *Session {
	return &Session{
		url:      url,
		protocol: protocol,
		log:      log.With().Str("venue", protocol.Name()).Logger(),
		closeCh:  make(chan struct{}),
		reconnCh: make(chan struct{}, 1),
	}
}

// Connect dials, sends the protocol's subscribe frames, and starts the
// message and ping loops. It reconnects on its own until ctx is canceled or
// Close is called.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.dial(ctx); err != nil {
		return err
	}
	go s.supervise(ctx)
	return nil
}

func (s *Session) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	frames, err := s.protocol.SubscribeFrames()
	if err != nil {
		conn.Close()
		return fmt.Errorf("build subscribe frames: %w", err)
	}
	for _, f := range frames {
		if err := s.writeFrame(f); err != nil {
			conn.Close()
			return fmt.Errorf("send subscribe frame: %w", err)
		}
	}
	return nil
}

func (s *Session) writeFrame(frame []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no active connection")
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Send writes an arbitrary frame, used for private-channel login messages
// issued after connect.
func (s *Session) Send(frame []byte) error { return s.writeFrame(frame) }

func (s *Session) supervise(ctx context.Context) {
	go s.messageLoop(ctx)
	go s.pingLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.closeCh:
			return
		case <-s.reconnCh:
			s.log.Warn().Msg("reconnecting")
			backoff := time.Second
			for {
				if err := s.dial(ctx); err == nil {
					go s.messageLoop(ctx)
					break
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff < 30*time.Second {
					backoff *= 2
				}
			}
		}
	}
}

func (s *Session) messageLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("message loop panic, reconnecting")
			s.triggerReconnect()
		}
	}()

	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info().Msg("connection closed normally")
			} else {
				s.log.Error().Err(err).Msg("read error")
			}
			s.triggerReconnect()
			return
		}

		if err := s.protocol.HandleMessage(s, raw); err != nil {
			s.log.Debug().Err(err).Msg("message handling error")
			if s.OnError != nil {
				s.OnError(err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		default:
		}
	}
}

func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(pingWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Error().Err(err).Msg("ping failed")
				s.triggerReconnect()
			}
		}
	}
}

func (s *Session) triggerReconnect() {
	select {
	case s.reconnCh <- struct{}{}:
	default:
	}
}

// Close shuts the session down; it will not reconnect after this.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeCh)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
