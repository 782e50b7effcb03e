package track_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trackcore/track"
)

func newTestChannel(nav *fakeNav) (*track.TrackingBank, *fakeDevice, *fakeSink) {
	dev := &fakeDevice{}
	sink := &fakeSink{}
	bank := track.NewTrackingBank(1, dev, sink, func() track.NavBitSync { return nav })
	return bank, dev, sink
}

func TestChannelInit_StartsInS0Stage(t *testing.T) {
	assert := assert.New(t)

	bank, _, _ := newTestChannel(newFakeNav())
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	assert.Equal(track.Running, ch.State)
	assert.Equal(track.StageBitSync, ch.Stage)
	assert.Equal(1, ch.IntMs)
	assert.Equal(7, ch.Prn)
	assert.Equal(track.Invalid, ch.TowMs)
}

func TestChannelUpdate_TowTicksOnceTowKnown(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, dev, _ := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	nav.QueueTow(10)
	dev.Push(0, 16368, track.Corr{I: 1, Q: 0}, track.Corr{I: 100, Q: 1}, track.Corr{I: 1, Q: 0})
	ch.FetchCorrelations()
	ch.Update()
	assert.Equal(10, ch.TowMs)

	nav.QueueTow(0)
	dev.Push(0, 16368, track.Corr{I: 1, Q: 0}, track.Corr{I: 100, Q: 1}, track.Corr{I: 1, Q: 0})
	ch.FetchCorrelations()
	ch.Update()
	assert.Equal(11, ch.TowMs)
}

func TestChannelUpdate_StageTransitionOnBitSync(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, dev, _ := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	nav.MatchPhase()
	dev.Push(0, 16368, track.Corr{I: 1, Q: 0}, track.Corr{I: 100, Q: 1}, track.Corr{I: 1, Q: 0})
	ch.FetchCorrelations()
	ch.Update()

	assert.Equal(track.StageLong, ch.Stage)
	assert.Equal(5, ch.IntMs)
	assert.True(ch.ShortCycle)
}

func TestChannelMarkAmbiguous_BumpsLockCounterAndPolarity(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, _, _ := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	before := ch.LockCounter
	ch.MarkAmbiguous()
	assert.Equal(before+1, ch.LockCounter)
	assert.Equal(track.PolarityUnknown, nav.Polarity())
}

func TestChannelDisable_ZeroesStateAndStopsUpdates(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, dev, _ := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	ch.Disable()
	assert.Equal(track.Disabled, ch.State)

	last := len(dev.writes)
	ch.FetchCorrelations()
	ch.Update()
	assert.Equal(last, len(dev.writes), "no further correlator writes once disabled")
}

func TestExportMeasurement_AppliesPolarityInvertedHalfCycle(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, _, _ := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	m1 := ch.ExportMeasurement()
	nav.polarity = track.PolarityInverted
	m2 := ch.ExportMeasurement()

	assert.InDelta(m1.CarrierPhaseCycle+0.5, m2.CarrierPhaseCycle, 1e-9)
}

/* TestChannelUpdate_FalseLockDetection drives a channel through the
 * S0->S1 transition and one full short+long pipelined cycle, then
 * checks the §4.1.2 step-9 false-lock correction at the
 * TrackingChannel level (not just LoopFilter's narrower
 * TestLoopFilter_FalseLockSnapIsReflectedNextUpdate): the first-half
 * prompt is fixed at (100, 0); the second-half prompt is varied to put
 * the cross/dot angle on either side of the 250/int_ms Hz threshold. */
func TestChannelUpdate_FalseLockDetection(t *testing.T) {
	cases := []struct {
		name                          string
		secondHalfI, secondHalfQ      float64 /* the effective (post divide-by-int_ms-1) second-half prompt */
		expectTrigger                 bool
	}{
		{"aligned halves stay under threshold", 100, 0, false},
		{"orthogonal halves exceed threshold", 0, 100, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			nav := newFakeNav()
			bank, dev, _ := newTestChannel(nav)
			ch := bank.Channel(0)
			ch.Init(7, 1540.0, 100000, 42.0)

			/* call 1: S0 (int_ms=1) update triggers the S0->S1 transition */
			nav.MatchPhase()
			dev.Push(0, 16368, track.Corr{I: 1}, track.Corr{I: 100}, track.Corr{I: 1})
			ch.FetchCorrelations()
			ch.Update()
			assert.Equal(5, ch.IntMs)
			assert.True(ch.ShortCycle)

			/* call 2: short half of the long-coherent cycle - overwrites Cs
			 * and seeds AliasDetector's first-half prompt at (100, 0) */
			dev.Push(0, 16368, track.Corr{I: 80}, track.Corr{I: 100}, track.Corr{I: 80})
			ch.FetchCorrelations()
			ch.Update()
			assert.False(ch.ShortCycle, "short half's Update toggles into the long half and returns early")

			modeBefore := ch.ModeChangeCount

			/* call 3: long half - FetchCorrelations accumulates onto Cs, and
			 * Update's step 9 compares (Cs[1]-first)/(int_ms-1) against first */
			dev.Push(0, 65472, track.Corr{I: 0}, track.Corr{I: tc.secondHalfI * 4, Q: tc.secondHalfQ * 4}, track.Corr{I: 0})
			ch.FetchCorrelations()
			ch.Update()

			if tc.expectTrigger {
				assert.Equal(ch.UpdateCount, ch.ModeChangeCount, "false lock must stamp mode_change_count with the current update_count")
				assert.InDelta(ch.Loop.CarrFreq, ch.Loop.CarrFilt.Y, 1e-9, "false-lock correction must snap carr_filt.y to the corrected frequency")
			} else {
				assert.Equal(modeBefore, ch.ModeChangeCount, "aligned halves must not disturb mode_change_count")
			}
		})
	}
}

/* TestChannelDrop_PerturbsCodeFilterIntegrator pins Drop's target to
 * the code loop (spec.md §4.1's drop(prn) contract and
 * original_source/src/track.c's tracking_drop_satellite, which
 * perturbs code_filt.y, not the carrier filter). */
func TestChannelDrop_PerturbsCodeFilterIntegrator(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, _, _ := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)

	beforeCode := ch.Loop.CodeFilt.Y
	beforeCarr := ch.Loop.CarrFilt.Y

	ch.Drop()

	assert.InDelta(beforeCode+500, ch.Loop.CodeFilt.Y, 1e-9)
	assert.Equal(beforeCarr, ch.Loop.CarrFilt.Y, "Drop must not perturb the carrier filter")
}

func TestPublishTrackingState_ReportsCN0MinusOneWhenDisabled(t *testing.T) {
	assert := assert.New(t)

	nav := newFakeNav()
	bank, _, sink := newTestChannel(nav)
	ch := bank.Channel(0)
	ch.Init(7, 1540.0, 100000, 42.0)
	ch.Disable()

	bank.PublishTrackingState()
	st := sink.lastState()
	assert.Equal(float32(-1), st.Channels[0].CN0)
}
