/*------------------------------------------------------------------------------
* simdevice.go : in-memory CorrelatorDevice fake, no serial hardware required
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
 */
package serialdevice

import (
	"math"
	"sync"

	"trackcore/track"
)

/* SimDevice is a CorrelatorDevice that answers CorrRd with zero-energy
 * correlations and a nominal sample count; it exists so cmd/trackd -sim
 * and higher-level integration tests can exercise TrackingBank.Run
 * without real NAP hardware attached. */
type SimDevice struct {
	mu       sync.Mutex
	samples  uint64
	firmware string
}

/* NewSimDevice returns a SimDevice reporting version as its firmware,
 * so internal/firmwarecheck can be exercised against a known value. */
func NewSimDevice(version string) *SimDevice {
	return &SimDevice{firmware: version}
}

func (s *SimDevice) CodeWr(channel int, prn int)    {}
func (s *SimDevice) InitWr(channel int, prn int, codePhase uint64, carrierPhase int64) {}
func (s *SimDevice) UpdateWr(channel int, carrFreqFP int32, codeRateFP int32, lengthCode int, flags uint32) {
}

func (s *SimDevice) CorrRd(channel int) (uint64, [3]track.Corr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples += uint64(math.Trunc(track.SampleFreqHz / 1000))
	return uint64(math.Trunc(track.SampleFreqHz / 1000)), [3]track.Corr{}
}

func (s *SimDevice) TimingStrobe(sampleCount uint64) {}

func (s *SimDevice) FirmwareVersion() string { return s.firmware }
