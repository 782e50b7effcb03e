/*------------------------------------------------------------------------------
* bank.go : fixed-size tracking-channel array + lock-counter table (§3, §9)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* process-wide arrays are the model of record on the device: allocated
* once at boot, never freed, protected per-channel rather than with one
* big lock - the same shape as RtkSvr's fixed Stream/ObsData arrays.
 */
package track

import (
	"fmt"
	"math/rand"
	"sync"

	"trackcore/internal/firmwarecheck"
)

/* NavBitSyncFactory constructs a fresh NavBitSync collaborator for a
 * channel's Init; internal/navbit provides the default GPS L1 C/A
 * implementation. */
type NavBitSyncFactory func() NavBitSync

/* TrackingBank is the fixed-size array of TrackingChannels plus the
 * PRN-indexed lock-counter table and live loop parameters
 * (SPEC_FULL.md §3, "TrackingBank"). */
type TrackingBank struct {
	Channels     []*TrackingChannel
	LockCounters [MaxSats]uint32

	Device    CorrelatorDevice
	Telemetry TelemetrySink
	navFactory NavBitSyncFactory

	paramsMu sync.RWMutex
	params   LoopParamsPair

	cycleMu sync.Mutex /* serializes cycle-loop start/stop, not channel state */
	stop    chan struct{}
	wg      sync.WaitGroup
}

/* NewTrackingBank allocates nChannels channels, all Disabled, and
 * seeds the lock-counter table with random values at boot
 * (SPEC_FULL.md §3, "TrackingBank ... seeded with random values at
 * boot"). */
func NewTrackingBank(nChannels int, device CorrelatorDevice, sink TelemetrySink, navFactory NavBitSyncFactory) *TrackingBank {
	b := &TrackingBank{
		Device:     device,
		Telemetry:  sink,
		navFactory: navFactory,
		params:     mustDefaultLoopParams(),
	}
	for i := range b.LockCounters {
		b.LockCounters[i] = rand.Uint32()
	}
	b.Channels = make([]*TrackingChannel, nChannels)
	for i := range b.Channels {
		b.Channels[i] = &TrackingChannel{id: i, bank: b, State: Disabled}
	}
	return b
}

/* Open gates the bank on the device's reported NAP firmware version
 * before any channel may be Init'd (SPEC_FULL.md §10.7); an
 * incompatible image would silently mis-scale every fixed-point NCO
 * write. */
func (b *TrackingBank) Open() error {
	if err := firmwarecheck.Check(b.Device.FirmwareVersion()); err != nil {
		return err
	}
	Trace(2, "trackingbank: firmware %s accepted\n", b.Device.FirmwareVersion())
	return nil
}

func mustDefaultLoopParams() LoopParamsPair {
	p, err := ParseLoopParams(DefaultLoopParamsText)
	if err != nil {
		panic(fmt.Sprintf("track: default loop_params failed to parse: %v", err))
	}
	return p
}

func (b *TrackingBank) loopParams() LoopParamsPair {
	b.paramsMu.RLock()
	defer b.paramsMu.RUnlock()
	return b.params
}

/* SetLoopParams validates and atomically replaces the live loop
 * parameters; already-running channels keep their current stage's
 * coefficients until their next stage transition or re-Init. */
func (b *TrackingBank) SetLoopParams(text string) error {
	p, err := ParseLoopParams(text)
	if err != nil {
		Trace(2, "loop_params: rejected: %v\n", err)
		return err
	}
	b.paramsMu.Lock()
	b.params = p
	b.paramsMu.Unlock()
	return nil
}

func (b *TrackingBank) newNavBitSync() NavBitSync {
	if b.navFactory != nil {
		return b.navFactory()
	}
	return noopNavBitSync{}
}

/* Channel returns the channel at index id, or nil if out of range. */
func (b *TrackingBank) Channel(id int) *TrackingChannel {
	if id < 0 || id >= len(b.Channels) {
		return nil
	}
	return b.Channels[id]
}

/* PublishTrackingState emits the always-present per-cycle summary
 * (SPEC_FULL.md §6); cn0 is reported as -1 for non-Running channels. */
func (b *TrackingBank) PublishTrackingState() {
	state := TrackingState{Channels: make([]ChannelSummary, len(b.Channels))}
	for i, ch := range b.Channels {
		ch.mu.Lock()
		cn0 := float32(-1)
		if ch.State == Running {
			cn0 = ch.CN0
		}
		state.Channels[i] = ChannelSummary{State: ch.State, Sid: ch.Prn, CN0: cn0}
		ch.mu.Unlock()
	}
	b.Telemetry.SendTrackingState(state)
}

/* Run drives the per-channel ISR loop: whenever the device signals a
 * channel's integration completed, FetchCorrelations+Update run to
 * completion before the next signal for that channel is handled.
 * Run blocks until Stop is called or done is closed. */
func (b *TrackingBank) Run(done <-chan int) {
	b.cycleMu.Lock()
	b.stop = make(chan struct{})
	stop := b.stop
	b.cycleMu.Unlock()

	for {
		select {
		case <-stop:
			return
		case ch, ok := <-done:
			if !ok {
				return
			}
			c := b.Channel(ch)
			if c == nil {
				continue
			}
			b.wg.Add(1)
			func() {
				defer b.wg.Done()
				c.FetchCorrelations()
				c.Update()
			}()
		}
	}
}

/* Stop ends Run and waits for any in-flight channel update to finish. */
func (b *TrackingBank) Stop() {
	b.cycleMu.Lock()
	stop := b.stop
	b.cycleMu.Unlock()
	if stop != nil {
		close(stop)
	}
	b.wg.Wait()
}

/* noopNavBitSync is the zero-value NavBitSync used when a bank is
 * built without a navFactory (e.g. in unit tests that only exercise
 * fixed-point/loop-filter behavior). */
type noopNavBitSync struct{}

func (noopNavBitSync) Update(float64, int) int    { return 0 }
func (noopNavBitSync) BitPhase() int              { return 0 }
func (noopNavBitSync) BitPhaseRef() int            { return -1 }
func (noopNavBitSync) Polarity() BitPolarity       { return PolarityUnknown }
func (noopNavBitSync) SetPolarityUnknown()         {}
