/*------------------------------------------------------------------------------
* wstelemetry.go : TrackingState/TrackingIQ over a websocket fan-out
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* the broadcast-to-many-readers shape below generalizes stream.go's
* TcpSvr (one writer, many connected clients, best-effort non-blocking
* fan-out) from a raw byte relay to JSON telemetry frames.
 */
package wstelemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"trackcore/track"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

/* frameKind tags which telemetry message a frame carries, since both
 * TrackingState and TrackingIQ share one socket. */
type frameKind string

const (
	kindState frameKind = "state"
	kindIQ    frameKind = "iq"
)

type frame struct {
	Kind    frameKind             `json:"kind"`
	Session string                `json:"session,omitempty"`
	State   *track.TrackingState  `json:"state,omitempty"`
	IQ      *track.TrackingIQ     `json:"iq,omitempty"`
}

/* Sink is a track.TelemetrySink broadcasting to every currently
 * connected websocket client; a client too slow to keep up is dropped
 * rather than allowed to back-pressure the tracking cycle loop. */
type Sink struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	sessionID    string
	sessionSent  bool

	iqEncoder *zstd.Encoder /* nil disables IQ compression */
}

type wireMsg struct {
	payload []byte
	binary  bool
}

type client struct {
	conn *websocket.Conn
	send chan wireMsg
}

/* NewSink builds a Sink tagged with sessionID (SPEC_FULL.md §10.8);
 * compressIQ enables zstd framing for the high-rate TrackingIQ stream. */
func NewSink(sessionID string, compressIQ bool) (*Sink, error) {
	s := &Sink{clients: make(map[*client]struct{}), sessionID: sessionID}
	if compressIQ {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		s.iqEncoder = enc
	}
	return s, nil
}

/* Handler upgrades HTTP connections to websockets and registers them
 * as telemetry subscribers. */
func (s *Sink) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		track.Tracet(2, "wstelemetry: upgrade failed: %v\n", err)
		return
	}
	c := &client{conn: conn, send: make(chan wireMsg, 64)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writeLoop(c)
}

func (s *Sink) writeLoop(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		c.conn.Close()
	}()
	for msg := range c.send {
		typ := websocket.TextMessage
		if msg.binary {
			typ = websocket.BinaryMessage
		}
		if err := c.conn.WriteMessage(typ, msg.payload); err != nil {
			return
		}
	}
}

func (s *Sink) broadcast(msg wireMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			track.Tracet(2, "wstelemetry: client too slow, dropping\n")
			delete(s.clients, c)
			close(c.send)
		}
	}
}

func (s *Sink) SendTrackingState(st track.TrackingState) {
	f := frame{Kind: kindState, State: &st}
	s.mu.Lock()
	if !s.sessionSent {
		f.Session = s.sessionID
		s.sessionSent = true
	}
	s.mu.Unlock()

	b, err := json.Marshal(f)
	if err != nil {
		track.Tracet(1, "wstelemetry: marshal tracking_state: %v\n", err)
		return
	}
	s.broadcast(wireMsg{payload: b})
}

func (s *Sink) SendTrackingIQ(iq track.TrackingIQ) {
	b, err := json.Marshal(frame{Kind: kindIQ, IQ: &iq})
	if err != nil {
		track.Tracet(1, "wstelemetry: marshal tracking_iq: %v\n", err)
		return
	}
	if s.iqEncoder != nil {
		s.broadcast(wireMsg{payload: s.iqEncoder.EncodeAll(b, nil), binary: true})
		return
	}
	s.broadcast(wireMsg{payload: b})
}
