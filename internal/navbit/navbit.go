/*------------------------------------------------------------------------------
* navbit.go : GPS L1 C/A bit-sync / subframe-sync (NavBitSync default)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* the 20ms bit-edge histogram and the preamble/parity check below are
* grounded on the frame-sync step of the pack's software-receiver
* reference decoder (sdrnav_gps.go's decode_frame_l1ca/paritycheck_l1ca);
* full subframe field decoding (ephemeris, almanac, ...) is out of
* scope for a tracking core and is not done here: trySync extracts
* only the TOW count.
 */
package navbit

import "trackcore/track"

const (
	msPerBit        = 20 /* GPS L1 C/A nav message is 50 bps */
	bitsPerWord     = 30
	wordsPerSubframe = 10
	bitsPerSubframe = bitsPerWord * wordsPerSubframe /* 300 */
	preambleBits    = 0x8B                            /* 10001011 */

	/* a bit edge position is trusted once its transition count clears
	 * the runner-up by this many counts */
	edgeConfidenceMargin = 8
)

/* GpsL1CA is the default concrete track.NavBitSync: a histogram-based
 * 20ms bit-edge detector feeding a preamble/parity subframe sync. */
type GpsL1CA struct {
	epochMs int
	hist    [msPerBit]int
	haveSign bool
	lastSign int

	phaseRef int /* -1 until the histogram is confident */

	bitAccumMs int
	bitAccum   float64
	bits       []int8 /* ring of decoded +1/-1 bits, capped at one subframe */

	polarity track.BitPolarity
}

/* New returns a fresh, unsynced bit/frame sync state. Satisfies
 * track.NavBitSyncFactory via a closure in cmd/trackd. */
func New() *GpsL1CA {
	return &GpsL1CA{phaseRef: -1, polarity: track.PolarityUnknown}
}

/* Update feeds one coherent prompt accumulator sample spanning intMs
 * milliseconds; see track.NavBitSync for the contract. */
func (g *GpsL1CA) Update(promptI float64, intMs int) int {
	g.trackBitEdge(promptI, intMs)
	return g.accumulateBit(promptI, intMs)
}

/* trackBitEdge histograms sign flips of the prompt accumulator against
 * a running ms counter; the bin with a clear lead is the 20ms bit
 * boundary (SPEC_FULL.md §4.3's bit_phase_ref). Only meaningful while
 * int_ms==1 (stage S0); called harmlessly afterward too since signal
 * sign flips remain aligned to the same 20ms grid. */
func (g *GpsL1CA) trackBitEdge(promptI float64, intMs int) {
	sign := 1
	if promptI < 0 {
		sign = -1
	}
	if g.haveSign && sign != g.lastSign {
		g.hist[g.epochMs%msPerBit]++
	}
	g.haveSign = true
	g.lastSign = sign
	g.epochMs += intMs

	if g.phaseRef < 0 {
		g.phaseRef = g.resolveEdge()
	}
}

func (g *GpsL1CA) resolveEdge() int {
	best, bestN, secondN := -1, 0, 0
	for i, n := range g.hist {
		if n > bestN {
			best, secondN, bestN = i, bestN, n
		} else if n > secondN {
			secondN = n
		}
	}
	if best >= 0 && bestN-secondN >= edgeConfidenceMargin {
		return best
	}
	return -1
}

/* BitPhase reports the channel's current position in the 20ms bit
 * cycle. */
func (g *GpsL1CA) BitPhase() int { return g.epochMs % msPerBit }

/* BitPhaseRef reports the detected bit-edge position, or -1 if not
 * yet confident. */
func (g *GpsL1CA) BitPhaseRef() int { return g.phaseRef }

func (g *GpsL1CA) Polarity() track.BitPolarity { return g.polarity }

/* SetPolarityUnknown is the mark_ambiguous hook: forget the resolved
 * polarity and discard the in-progress subframe buffer, since a cycle
 * slip may have shifted bit alignment underneath it. */
func (g *GpsL1CA) SetPolarityUnknown() {
	g.polarity = track.PolarityUnknown
	g.bits = g.bits[:0]
	g.bitAccum = 0
	g.bitAccumMs = 0
}

/* accumulateBit folds intMs worth of coherent sum into the current
 * 20ms nav bit; once a full bit completes it is pushed onto the
 * subframe buffer and a preamble/parity search runs. Returns a decoded
 * time-of-week in ms, or 0 if no subframe boundary completed. */
func (g *GpsL1CA) accumulateBit(promptI float64, intMs int) int {
	g.bitAccum += promptI
	g.bitAccumMs += intMs
	if g.bitAccumMs < msPerBit {
		return 0
	}

	bit := int8(1)
	if g.bitAccum < 0 {
		bit = -1
	}
	g.bitAccum, g.bitAccumMs = 0, 0

	g.bits = append(g.bits, bit)
	if len(g.bits) > bitsPerSubframe {
		g.bits = g.bits[len(g.bits)-bitsPerSubframe:]
	}
	if len(g.bits) < bitsPerSubframe {
		return 0
	}
	return g.trySync()
}

/* trySync looks for the 8-bit preamble at the start of the buffered
 * window and, on a parity-consistent match, decodes just the 17-bit
 * TOW-count field (word 2, bits 30..46) the way decode_subfrm1 does -
 * enough to hand the tracking core a tow_ms, with full message
 * decoding left to a higher-level navigation-message consumer. */
func (g *GpsL1CA) trySync() int {
	inverted := matchesPreamble(g.bits, true)
	normal := matchesPreamble(g.bits, false)
	if !inverted && !normal {
		return 0
	}

	bits := g.bits
	if inverted {
		bits = flipped(bits)
		g.polarity = track.PolarityInverted
	} else {
		g.polarity = track.PolarityNormal
	}

	if !paritycheck(bits) {
		return 0
	}

	towCount := getbitu(bits, 30, 17)
	/* ICD: the decoded count is the TOW at the START of the NEXT
	 * subframe; shift back one subframe (6s) for the TOW of the
	 * subframe just received */
	towMs := int(towCount)*6000 - 6000
	if towMs < 0 {
		towMs += track.WeekMs
	}
	return towMs
}

func matchesPreamble(bits []int8, inverted bool) bool {
	want := preambleBits
	for i := 0; i < 8; i++ {
		b := bits[i] > 0
		if inverted {
			b = !b
		}
		wantBit := (want>>(7-i))&1 == 1
		if b != wantBit {
			return false
		}
	}
	return true
}

func flipped(bits []int8) []int8 {
	out := make([]int8, len(bits))
	for i, b := range bits {
		out[i] = -b
	}
	return out
}

/* getbitu extracts an n-bit unsigned field starting at bit pos from a
 * +1/-1 bit slice, RTKLIB-style (MSB first). */
func getbitu(bits []int8, pos, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v <<= 1
		if bits[pos+i] > 0 {
			v |= 1
		}
	}
	return v
}

/* paritycheck runs the IS-GPS-200 parity equations for words 1 and 2
 * (the only words this tracking core reads); full ten-word parity
 * checking belongs to a message-layer consumer, not here. */
func paritycheck(bits []int8) bool {
	b := func(i int) int {
		if bits[i] > 0 {
			return 1
		}
		return -1
	}
	for _, word := range [2]int{0, 1} {
		off := word * bitsPerWord
		d := make([]int, 24)
		for i := 0; i < 24; i++ {
			d[i] = b(off + i)
		}
		p := make([]int, 6)
		p[0] = d[0] * d[2] * d[3] * d[4] * d[6] * d[7] * d[11] * d[12] * d[13] * d[14] * d[15] * d[18] * d[19] * d[21]
		p[1] = d[1] * d[3] * d[4] * d[5] * d[7] * d[8] * d[12] * d[13] * d[14] * d[15] * d[16] * d[19] * d[20] * d[22]
		p[2] = d[0] * d[2] * d[4] * d[5] * d[6] * d[8] * d[9] * d[13] * d[14] * d[15] * d[16] * d[17] * d[20] * d[21] * d[23]
		p[3] = d[1] * d[3] * d[5] * d[6] * d[7] * d[9] * d[10] * d[14] * d[15] * d[16] * d[17] * d[18] * d[21] * d[22]
		p[4] = d[1] * d[2] * d[4] * d[6] * d[7] * d[8] * d[10] * d[11] * d[15] * d[16] * d[17] * d[18] * d[19] * d[22] * d[23]
		p[5] = d[0] * d[4] * d[6] * d[7] * d[9] * d[10] * d[11] * d[12] * d[14] * d[16] * d[20] * d[23]
		for i := 0; i < 6; i++ {
			want := b(off + 24 + i)
			if p[i] != want {
				return false
			}
		}
	}
	return true
}
