package track_test

import (
	"sync"

	"trackcore/track"
)

/* fakeDevice is an in-memory CorrelatorDevice test double. Each
 * channel's next CorrRd result is queued explicitly by the test via
 * Push; CorrRd blocks on nothing and simply returns the next queued
 * frame (or a zero frame with sampleCount 0 if none is queued). */
type fakeDevice struct {
	mu       sync.Mutex
	queue    map[int][]fakeFrame
	writes   []fakeWrite
	firmware string
}

type fakeFrame struct {
	sampleCount uint64
	corrs       [3]track.Corr
}

type fakeWrite struct {
	channel             int
	carrFreqFP, codeRateFP int32
	lengthCode          int
	flags               uint32
}

func (d *fakeDevice) Push(channel int, sampleCount uint64, early, prompt, late track.Corr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		d.queue = make(map[int][]fakeFrame)
	}
	d.queue[channel] = append(d.queue[channel], fakeFrame{sampleCount, [3]track.Corr{early, prompt, late}})
}

func (d *fakeDevice) CodeWr(channel int, prn int) {}

func (d *fakeDevice) InitWr(channel int, prn int, codePhase uint64, carrierPhase int64) {}

func (d *fakeDevice) UpdateWr(channel int, carrFreqFP int32, codeRateFP int32, lengthCode int, flags uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, fakeWrite{channel, carrFreqFP, codeRateFP, lengthCode, flags})
}

func (d *fakeDevice) CorrRd(channel int) (uint64, [3]track.Corr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.queue[channel]
	if len(q) == 0 {
		return 0, [3]track.Corr{}
	}
	f := q[0]
	d.queue[channel] = q[1:]
	return f.sampleCount, f.corrs
}

func (d *fakeDevice) TimingStrobe(sampleCount uint64) {}

func (d *fakeDevice) FirmwareVersion() string {
	if d.firmware == "" {
		return "1.0.0"
	}
	return d.firmware
}

/* fakeNav is a scriptable NavBitSync test double: each call to Update
 * pops the next queued tow (0 meaning "no boundary found") and reports
 * a fixed bit phase against a fixed reference, letting tests trigger
 * the S0->S1 stage transition on demand via MatchPhase. */
type fakeNav struct {
	mu         sync.Mutex
	towQueue   []int
	phase      int
	phaseRef   int
	polarity   track.BitPolarity
}

func (n *fakeNav) Update(promptI float64, intMs int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.towQueue) == 0 {
		return 0
	}
	tow := n.towQueue[0]
	n.towQueue = n.towQueue[1:]
	return tow
}

func (n *fakeNav) QueueTow(tow int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.towQueue = append(n.towQueue, tow)
}

func (n *fakeNav) MatchPhase() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.phase = 1
	n.phaseRef = 1
}

func (n *fakeNav) BitPhase() int    { n.mu.Lock(); defer n.mu.Unlock(); return n.phase }
func (n *fakeNav) BitPhaseRef() int { n.mu.Lock(); defer n.mu.Unlock(); return n.phaseRef }
func (n *fakeNav) Polarity() track.BitPolarity {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.polarity
}
func (n *fakeNav) SetPolarityUnknown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.polarity = track.PolarityUnknown
}

func newFakeNav() *fakeNav {
	return &fakeNav{phase: 0, phaseRef: -1}
}

/* fakeSink is an in-memory TelemetrySink test double recording every
 * message sent to it. */
type fakeSink struct {
	mu     sync.Mutex
	states []track.TrackingState
	iqs    []track.TrackingIQ
}

func (s *fakeSink) SendTrackingState(st track.TrackingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *fakeSink) SendTrackingIQ(iq track.TrackingIQ) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iqs = append(s.iqs, iq)
}

func (s *fakeSink) lastState() track.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[len(s.states)-1]
}
