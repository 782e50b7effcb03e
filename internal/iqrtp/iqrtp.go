/*------------------------------------------------------------------------------
* iqrtp.go : per-channel TrackingIQ packetized as RTP
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* the pack's raw-format SDR telemetry systems (ka9q_ubersdr) stream IQ
* over RTP rather than a bespoke framing; packetizing TrackingIQ the
* same way lets offline DSP tooling built for that ecosystem capture
* this core's correlator taps with no new format to learn.
 */
package iqrtp

import (
	"encoding/binary"
	"math"
	"net"

	"github.com/pion/rtp"

	"trackcore/track"
)

const (
	payloadType    = 111 /* dynamic RTP payload type, unassigned by IANA */
	samplesPerIQ   = 6   /* Early/Prompt/Late, each I and Q */
)

/* Packetizer turns TrackingIQ messages into RTP packets, one SSRC per
 * tracking channel so a receiver can demux channels the same way it
 * would demux simultaneous RTP audio sources. */
type Packetizer struct {
	ssrcBase uint32
	seq      map[int]uint16
	ts       map[int]uint32
}

/* NewPacketizer seeds channel SSRCs as ssrcBase+channel. */
func NewPacketizer(ssrcBase uint32) *Packetizer {
	return &Packetizer{ssrcBase: ssrcBase, seq: make(map[int]uint16), ts: make(map[int]uint32)}
}

/* Packet encodes one TrackingIQ as an RTP packet: a 48-byte payload of
 * six big-endian float64 samples (E.I, E.Q, P.I, P.Q, L.I, L.Q). */
func (p *Packetizer) Packet(iq track.TrackingIQ) *rtp.Packet {
	payload := make([]byte, samplesPerIQ*8)
	vals := [samplesPerIQ]float64{iq.Corrs[0].I, iq.Corrs[0].Q, iq.Corrs[1].I, iq.Corrs[1].Q, iq.Corrs[2].I, iq.Corrs[2].Q}
	for i, v := range vals {
		binary.BigEndian.PutUint64(payload[i*8:], math.Float64bits(v))
	}

	seq := p.seq[iq.Channel]
	p.seq[iq.Channel] = seq + 1
	ts := p.ts[iq.Channel]
	p.ts[iq.Channel] = ts + 1

	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    payloadType,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           p.ssrcBase + uint32(iq.Channel),
		},
		Payload: payload,
	}
}

/* Sink is a track.TelemetrySink streaming TrackingIQ as RTP over a UDP
 * client socket; the dial pattern (net.Dial("udp", addr)) follows
 * stream.go's genudp UDP-client branch, generalized from a raw byte
 * relay to RTP-packetized correlator taps. TrackingState is dropped:
 * RTP carries only the per-channel IQ stream, not the fixed-shape
 * state summary. */
type Sink struct {
	conn *net.UDPConn
	pk   *Packetizer
}

/* Dial resolves addr (host:port) and returns a Sink ready to stream
 * TrackingIQ packets to it, one SSRC per channel seeded from
 * ssrcBase. */
func Dial(addr string, ssrcBase uint32) (*Sink, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	track.Tracet(3, "iqrtp: streaming to %s\n", addr)
	return &Sink{conn: conn, pk: NewPacketizer(ssrcBase)}, nil
}

/* SendTrackingState is a no-op: RTP has no fixed-shape state frame to
 * carry it in. */
func (s *Sink) SendTrackingState(track.TrackingState) {}

func (s *Sink) SendTrackingIQ(iq track.TrackingIQ) {
	pkt := s.pk.Packet(iq)
	b, err := pkt.Marshal()
	if err != nil {
		track.Tracet(1, "iqrtp: marshal failed: %v\n", err)
		return
	}
	if _, err := s.conn.Write(b); err != nil {
		track.Tracet(2, "iqrtp: write failed: %v\n", err)
	}
}

/* Close releases the underlying UDP socket. */
func (s *Sink) Close() error {
	return s.conn.Close()
}
