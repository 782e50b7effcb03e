package iqrtp_test

import (
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"

	"trackcore/internal/iqrtp"
	"trackcore/track"
)

func TestPacketizer_EncodesCorrelatorTapsInOrder(t *testing.T) {
	assert := assert.New(t)

	p := iqrtp.NewPacketizer(0xC0FFEE)
	iq := track.TrackingIQ{
		Channel: 2,
		Corrs: [3]track.Corr{
			{I: 1, Q: 2},
			{I: 3, Q: 4},
			{I: 5, Q: 6},
		},
	}
	pkt := p.Packet(iq)

	assert.Equal(uint32(0xC0FFEE+2), pkt.SSRC)
	assert.Len(pkt.Payload, 48)

	want := []float64{1, 2, 3, 4, 5, 6}
	for i, w := range want {
		got := math.Float64frombits(binary.BigEndian.Uint64(pkt.Payload[i*8:]))
		assert.InDelta(w, got, 1e-12)
	}
}

func TestPacketizer_SequenceIncrementsPerChannelIndependently(t *testing.T) {
	assert := assert.New(t)

	p := iqrtp.NewPacketizer(0)
	a1 := p.Packet(track.TrackingIQ{Channel: 0})
	b1 := p.Packet(track.TrackingIQ{Channel: 1})
	a2 := p.Packet(track.TrackingIQ{Channel: 0})

	assert.Equal(uint16(0), a1.SequenceNumber)
	assert.Equal(uint16(0), b1.SequenceNumber)
	assert.Equal(uint16(1), a2.SequenceNumber)
}

func TestSink_SendTrackingIQStreamsAnRTPPacketOverUDP(t *testing.T) {
	assert := assert.New(t)

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.NoError(err)
	defer listener.Close()

	sink, err := iqrtp.Dial(listener.LocalAddr().String(), 0xC0FFEE)
	assert.NoError(err)
	defer sink.Close()

	sink.SendTrackingIQ(track.TrackingIQ{
		Channel: 3,
		Corrs:   [3]track.Corr{{I: 1, Q: 2}, {I: 3, Q: 4}, {I: 5, Q: 6}},
	})

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(time.Second))
	n, err := listener.Read(buf)
	assert.NoError(err)

	var pkt rtp.Packet
	assert.NoError(pkt.Unmarshal(buf[:n]))
	assert.Equal(uint32(0xC0FFEE+3), pkt.SSRC)
	assert.Equal(uint16(0), pkt.SequenceNumber)
	assert.Len(pkt.Payload, 48)
}

func TestSink_SendTrackingStateIsANoOp(t *testing.T) {
	assert := assert.New(t)

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.NoError(err)
	defer listener.Close()

	sink, err := iqrtp.Dial(listener.LocalAddr().String(), 0)
	assert.NoError(err)
	defer sink.Close()

	sink.SendTrackingState(track.TrackingState{})

	listener.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 16)
	_, err = listener.Read(buf)
	assert.Error(err, "SendTrackingState must not put anything on the wire")
}
