/*------------------------------------------------------------------------------
* serialdevice.go : CorrelatorDevice over a serial/USB NAP link
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* binary register framing and the blocking fixed-size reads below follow
* stream.go's OpenSerial/ReadSerial/WriteSerial shape, generalized from
* a byte-stream relay to small fixed-size NAP register records.
 */
package serialdevice

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	serial "github.com/tarm/goserial"

	"trackcore/track"
)

/* register record ids, framed as a one-byte opcode followed by a
 * fixed-size payload; a CorrRd or firmware request is answered by a
 * fixed-size reply with no separate ready byte. */
const (
	opCodeWr     = 0x01
	opInitWr     = 0x02
	opUpdateWr   = 0x03
	opCorrRd     = 0x04
	opTimingStrobe = 0x05
	opFirmware   = 0x06
)

/* Device is a concrete CorrelatorDevice talking to an FPGA NAP
 * peripheral over a serial port (SPEC_FULL.md §10.1). */
type Device struct {
	port io.ReadWriteCloser
	err  int
}

/* Open opens the named serial port at baud and returns a Device ready
 * for TrackingBank use. */
func Open(path string, baud int) (*Device, error) {
	c := &serial.Config{Name: path, Baud: baud}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serialdevice: open %s: %w", path, err)
	}
	track.Tracet(3, "serialdevice: opened %s @%d\n", path, baud)
	return &Device{port: s}, nil
}

func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	return d.port.Close()
}

/* writeRecord sends one record, retrying the unsent remainder up to
 * maxAttempts times before logging the failure. */
func (d *Device) writeRecord(op byte, payload []byte) {
	const maxAttempts = 3
	buf := make([]byte, 1+len(payload))
	buf[0] = op
	copy(buf[1:], payload)
	var err error
	sent := 0
	for attempt := 0; attempt < maxAttempts && sent < len(buf); attempt++ {
		var n int
		n, err = d.port.Write(buf[sent:])
		sent += n
	}
	if sent != len(buf) {
		d.err = 1
		track.Tracet(1, "serialdevice: write op=%d failed: %v\n", op, err)
		return
	}
	d.err = 0
}

func (d *Device) CodeWr(channel int, prn int) {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], uint32(channel))
	binary.BigEndian.PutUint32(payload[4:8], uint32(prn))
	d.writeRecord(opCodeWr, payload)
}

func (d *Device) InitWr(channel int, prn int, codePhase uint64, carrierPhase int64) {
	payload := make([]byte, 24)
	binary.BigEndian.PutUint32(payload[0:4], uint32(channel))
	binary.BigEndian.PutUint32(payload[4:8], uint32(prn))
	binary.BigEndian.PutUint64(payload[8:16], codePhase)
	binary.BigEndian.PutUint64(payload[16:24], uint64(carrierPhase))
	d.writeRecord(opInitWr, payload)
}

func (d *Device) UpdateWr(channel int, carrFreqFP int32, codeRateFP int32, lengthCode int, flags uint32) {
	payload := make([]byte, 20)
	binary.BigEndian.PutUint32(payload[0:4], uint32(channel))
	binary.BigEndian.PutUint32(payload[4:8], uint32(carrFreqFP))
	binary.BigEndian.PutUint32(payload[8:12], uint32(codeRateFP))
	binary.BigEndian.PutUint32(payload[12:16], uint32(lengthCode))
	binary.BigEndian.PutUint32(payload[16:20], flags)
	d.writeRecord(opUpdateWr, payload)
}

/* CorrRd reads the three complex correlator taps and sample count for
 * channel, blocking on the port until the full 56-byte reply has been
 * read; no ready byte precedes the reply. */
func (d *Device) CorrRd(channel int) (uint64, [3]track.Corr) {
	req := make([]byte, 4)
	binary.BigEndian.PutUint32(req, uint32(channel))
	d.writeRecord(opCorrRd, req)

	reply := make([]byte, 56) /* sampleCount(8) + 3*(I,Q float64) */
	var got int
	for got < len(reply) {
		n, err := d.port.Read(reply[got:])
		if err != nil {
			d.err = 1
			track.Tracet(1, "serialdevice: corr_rd read failed: %v\n", err)
			return 0, [3]track.Corr{}
		}
		got += n
	}

	sampleCount := binary.BigEndian.Uint64(reply[0:8])
	var corrs [3]track.Corr
	off := 8
	for i := range corrs {
		corrs[i].I = math.Float64frombits(binary.BigEndian.Uint64(reply[off : off+8]))
		corrs[i].Q = math.Float64frombits(binary.BigEndian.Uint64(reply[off+8 : off+16]))
		off += 16
	}
	return sampleCount, corrs
}

func (d *Device) TimingStrobe(sampleCount uint64) {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, sampleCount)
	d.writeRecord(opTimingStrobe, payload)
}

/* FirmwareVersion queries the NAP image's reported semantic version,
 * used by internal/firmwarecheck before any channel is armed. */
func (d *Device) FirmwareVersion() string {
	d.writeRecord(opFirmware, nil)
	reply := make([]byte, 16)
	got := 0
	for got < len(reply) {
		n, err := d.port.Read(reply[got:])
		if err != nil {
			track.Tracet(1, "serialdevice: firmware read failed: %v\n", err)
			return "0.0.0"
		}
		got += n
	}
	n := 0
	for n < len(reply) && reply[n] != 0 {
		n++
	}
	return string(reply[:n])
}
