/*------------------------------------------------------------------------------
* channel.go : per-channel tracking state machine (§3, §4.1)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* the ISR/foreground split below mirrors rtksvr.go's RtkSvrLock/Unlock
* discipline: FetchCorrelations and Update each hold mu for their own
* duration (the lock is released between the two calls), and
* foreground readers take the same mutex for a consistent snapshot.
 */
package track

import (
	"math"
	"sync"
	"sync/atomic"
)

/* TrackingChannel is one hardware correlator channel's tracking state
 * (SPEC_FULL.md §3). */
type TrackingChannel struct {
	mu sync.Mutex

	id   int
	bank *TrackingBank

	Prn   int
	State ChannelState
	Stage Stage

	IntMs      int
	ShortCycle bool

	SampleCount     uint64
	UpdateCount     uint64
	ModeChangeCount uint64
	TowMs           int

	CodePhaseEarly uint64
	CarrierPhase   int64

	CodeRateFP     int32
	CodeRateFPPrev int32
	CarrFreqFP     int32
	CarrFreqFPPrev int32

	Loop   *LoopFilter
	CN0    float32
	CN0Est *CN0Estimator
	Alias  *AliasDetector
	Nav    NavBitSync

	Cs              [3]Corr /* Early, Prompt, Late */
	CorrSampleCount uint64

	OutputIQ    bool
	LockCounter uint16
}

/* Init moves a Disabled channel to Running in stage S0, seeding all
 * state from the acquisition hand-off (SPEC_FULL.md §4.1, "init"). */
func (c *TrackingChannel) Init(prn int, carrierFreqHz float64, startSampleCount uint64, cn0InitDBHz float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	/* align to the early rollover, half a chip earlier than the prompt
	 * rollover the acquisition front-end reports (spec.md §8 scenario 1:
	 * timing_strobe(16000-8) for a 16 samples/chip front end) */
	halfChipSamples := uint64(math.Trunc(SampleFreqHz / GpsCaChippingRate / 2))
	alignedStart := startSampleCount - halfChipSamples

	c.Prn = prn
	c.State = Running
	c.Stage = StageBitSync
	c.IntMs = 1
	c.ShortCycle = false
	c.SampleCount = alignedStart
	c.UpdateCount = 0
	c.ModeChangeCount = 0
	c.TowMs = Invalid

	c.CodePhaseEarly = 0
	c.CarrierPhase = 0

	p0 := c.bank.loopParams()[0]
	loopFreqHz := 1000.0 / float64(c.IntMs)
	c.Loop = NewLoopFilter(loopFreqHz, 0, p0.CodeBW, p0.CodeZeta, p0.CodeK, p0.CarrToCode,
		carrierFreqHz, p0.CarrBW, p0.CarrZeta, p0.CarrK, p0.CarrFLLAidGain)

	c.CodeRateFP = CodeRateToFP(GpsCaChippingRate)
	c.CodeRateFPPrev = c.CodeRateFP
	c.CarrFreqFP = CarrierFreqToFP(carrierFreqHz)
	c.CarrFreqFPPrev = c.CarrFreqFP

	c.CN0 = float32(cn0InitDBHz)
	c.CN0Est = NewCN0Estimator(loopFreqHz, cn0InitDBHz)
	c.Alias = NewAliasDetector(c.IntMs)
	c.Nav = c.bank.newNavBitSync()

	c.Cs = [3]Corr{}
	c.CorrSampleCount = 0

	c.LockCounter = uint16(atomic.AddUint32(&c.bank.LockCounters[prn], 1))

	dev := c.bank.Device
	dev.CodeWr(c.id, c.Prn)
	dev.InitWr(c.id, c.Prn, c.CodePhaseEarly, c.CarrierPhase)
	dev.UpdateWr(c.id, c.CarrFreqFP, c.CodeRateFP, 0, 0)
	dev.TimingStrobe(alignedStart)
}

/* FetchCorrelations reads the three complex correlator taps and the
 * sample count consumed, accumulating across the long half of a
 * long-coherent integration. */
func (c *TrackingChannel) FetchCorrelations() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State == Disabled {
		return
	}

	n, corrs := c.bank.Device.CorrRd(c.id)
	c.CorrSampleCount = n

	longHalf := c.IntMs > 1 && !c.ShortCycle
	if longHalf {
		for i := range c.Cs {
			c.Cs[i].I += corrs[i].I
			c.Cs[i].Q += corrs[i].Q
		}
	} else {
		c.Cs = corrs
		c.Alias.First(c.Cs[1].I, c.Cs[1].Q)
	}
}

/* Update runs one full integration-cycle update (SPEC_FULL.md §4.1.2).
 * Precondition: FetchCorrelations ran in the same interrupt. */
func (c *TrackingChannel) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State == Disabled {
		/* defensive disable-and-ignore: an ISR firing against a
		 * disabled channel is treated as a no-op, never a panic */
		return
	}

	/* 1. time advance */
	c.SampleCount += c.CorrSampleCount
	c.CodePhaseEarly += uint64(c.CodeRateFPPrev) * c.CorrSampleCount
	c.CarrierPhase += int64(c.CarrFreqFPPrev) * int64(c.CorrSampleCount)
	if c.UpdateCount == 0 {
		c.CarrierPhase -= int64(c.CarrFreqFPPrev)
	}
	c.CodeRateFPPrev = c.CodeRateFP
	c.CarrFreqFPPrev = c.CarrFreqFP

	/* 2. TOW tick: outside pipelining (IntMs==1) every update is a full
	 * 1ms advance; once pipelined, a short half advances 1ms and the
	 * paired long half the remaining IntMs-1, summing to IntMs per
	 * short+long pair */
	if c.TowMs != Invalid {
		switch {
		case c.IntMs == 1:
			c.TowMs++
		case c.ShortCycle:
			c.TowMs++
		default:
			c.TowMs += c.IntMs - 1
		}
		c.TowMs %= WeekMs
	}

	/* 3. long-integration pipelining */
	if c.IntMs > 1 {
		c.ShortCycle = !c.ShortCycle
		if !c.ShortCycle {
			c.programCorrelator()
			return
		}
	}

	/* 4. */
	c.UpdateCount += uint64(c.IntMs)

	/* 5. navigation-bit extractor */
	if tow := c.Nav.Update(c.Cs[1].I, c.IntMs); tow > 0 && tow != c.TowMs {
		if c.TowMs != Invalid {
			Tracet(2, "chan %d prn %d: tow mismatch tracked=%d decoded=%d\n", c.id, c.Prn, c.TowMs, tow)
		}
		c.TowMs = tow
	}

	/* 6. C/N0 */
	c.CN0 = float32(c.CN0Est.Update(c.Cs[1].I/float64(c.IntMs), c.Cs[1].Q/float64(c.IntMs)))

	/* 7. loop filter, reordered to [Late, Prompt, Early] */
	reordered := [3]Corr{c.Cs[2], c.Cs[1], c.Cs[0]}
	c.Loop.Update(reordered)
	codePhaseRate := c.Loop.CodeFreq + GpsCaChippingRate
	c.CodeRateFP = CodeRateToFP(codePhaseRate)
	c.CarrFreqFP = CarrierFreqToFP(c.Loop.CarrFreq)

	/* 8. optional IQ telemetry */
	if c.OutputIQ && c.IntMs > 1 {
		c.bank.Telemetry.SendTrackingIQ(TrackingIQ{Channel: c.id, Sid: c.Prn, Corrs: c.Cs})
	}

	/* 9. false-lock check */
	if c.IntMs > 1 {
		secondI := (c.Cs[1].I - c.Alias.FirstI()) / float64(c.IntMs-1)
		secondQ := (c.Cs[1].Q - c.secondQBase()) / float64(c.IntMs-1)
		err := c.Alias.Second(secondI, secondQ)
		if threshold := 250.0 / float64(c.IntMs); err > threshold || err < -threshold {
			Tracet(2, "chan %d prn %d: false lock detected, err=%.1f Hz\n", c.id, c.Prn, err)
			c.ModeChangeCount = c.UpdateCount
			c.Loop.CarrFreq += err
			c.Loop.CarrFilt.Y = c.Loop.CarrFreq
			c.CarrFreqFP = CarrierFreqToFP(c.Loop.CarrFreq)
		}
	}

	/* 10. stage transition S0 -> S1 */
	if c.Stage == StageBitSync && c.IntMs == 1 && c.Nav.BitPhase() == c.Nav.BitPhaseRef() {
		p1 := c.bank.loopParams()[1]
		c.Stage = StageLong
		c.IntMs = p1.CoherentMs
		c.ShortCycle = true
		loopFreqHz := 1000.0 / float64(c.IntMs)
		c.CN0Est.Reseed(float64(c.CN0))
		c.Loop.Retune(loopFreqHz, p1.CodeBW, p1.CodeZeta, p1.CodeK, p1.CarrToCode,
			p1.CarrBW, p1.CarrZeta, p1.CarrK, p1.CarrFLLAidGain)
		c.Alias.Retune(c.IntMs)
		c.ModeChangeCount = c.UpdateCount
	}

	/* 11. program correlator */
	c.programCorrelator()
}

/* secondQBase is the Q counterpart of Alias.FirstI(): it reads the
 * alias detector's stored first-half Q sample. */
func (c *TrackingChannel) secondQBase() float64 {
	return c.Alias.firstQ
}

func (c *TrackingChannel) programCorrelator() {
	lengthCode := 0
	if c.IntMs != 1 {
		lengthCode = c.IntMs - 2
	}
	c.bank.Device.UpdateWr(c.id, c.CarrFreqFP, c.CodeRateFP, lengthCode, 0)
}

/* Disable writes zero code/carrier words and marks the channel
 * Disabled; it may only be Init'd again afterward. */
func (c *TrackingChannel) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bank.Device.UpdateWr(c.id, 0, 0, 0, 0)
	c.State = Disabled
	c.Cs = [3]Corr{}
}

/* MarkAmbiguous forces bit polarity back to Unknown and bumps the
 * channel's lock counter, signalling downstream that any accumulated
 * carrier-phase ambiguity must be re-resolved. */
func (c *TrackingChannel) MarkAmbiguous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Nav.SetPolarityUnknown()
	c.LockCounter = uint16(atomic.AddUint32(&c.bank.LockCounters[c.Prn], 1))
}

/* ExportMeasurement snapshots the channel into a navigation
 * observation; pure w.r.t. channel state - repeated calls without an
 * intervening Update return equal records. */
func (c *TrackingChannel) ExportMeasurement() Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()

	carrierCycles := float64(c.CarrierPhase) / (1 << CarrierPhaseFracBits)
	if c.Nav.Polarity() == PolarityInverted {
		carrierCycles += 0.5
	}

	return Measurement{
		Prn:               c.Prn,
		LockCounter:        c.LockCounter,
		CodePhaseChips:    FPToCodePhase(c.CodePhaseEarly),
		CodePhaseRate:     c.Loop.CodeFreq + GpsCaChippingRate,
		CarrierFreq:       c.Loop.CarrFreq,
		CarrierPhaseCycle: carrierCycles,
		TowMs:             c.TowMs,
		ReceiverTime:      float64(c.SampleCount) / SampleFreqHz,
		SNR:               c.CN0,
	}
}

/* SNR returns the channel's current C/N0 estimate in dBHz. */
func (c *TrackingChannel) SNR() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CN0
}

/* Drop intentionally destroys lock by perturbing the code loop's
 * integrator; it is a testing aid for exercising an external lock
 * manager's detection path, not a production operation. */
func (c *TrackingChannel) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Loop != nil {
		c.Loop.CodeFilt.Y += 500 /* chips/s, well outside any plausible loop bandwidth */
	}
}
