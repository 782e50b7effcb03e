/*------------------------------------------------------------------------------
* consts.go : GNSS L1 C/A tracking-core constants
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
 */
package track

const (
	GpsL1Hz           float64 = 1575.42e6 /* GPS L1 carrier frequency (Hz) */
	GpsCaChippingRate float64 = 1.023e6   /* GPS C/A chipping rate (chips/s) */
	SampleFreqHz      float64 = 16.368e6  /* NAP front-end sample rate (Hz) */
	CodeLengthChips   float64 = 1023.0    /* C/A code length (chips) */

	MaxSats   = 32 /* max satellite id, zero-based index space */
	Invalid   = -1 /* invalid tow_ms / index sentinel */
	WeekMs    = 7 * 24 * 3600 * 1000

	CodePhaseFracBits   = 32 /* code_phase_early representation: chips * 2^32 */
	CarrierPhaseFracBits = 24 /* carrier_phase representation: half-cycles * 2^24 */

	/* device-specific NCO scaling, derived so that the fixed-point
	   accumulators above advance by exactly one register step per sample */
	NapCodePhaseUnitsPerChip      float64 = 1 << CodePhaseFracBits
	NapCodePhaseRateUnitsPerHz    float64 = (1 << CodePhaseFracBits) / SampleFreqHz
	NapCarrierFreqUnitsPerHz      float64 = 2 * (1 << CarrierPhaseFracBits) / SampleFreqHz

	SubChipsPerChip  = 16                          /* sub-chip resolution of propagate_code_phase */
	CodeRolloverSubChips = int64(CodeLengthChips) * SubChipsPerChip /* 1023, not 1024 */
)

/* Stage is the two-stage tracking state machine position. */
type Stage int

const (
	StageBitSync Stage = iota /* S0: 1ms coherent, searching for 20ms bit edge */
	StageLong                /* S1: long coherent integration per loop_params[1] */
)

func (s Stage) String() string {
	if s == StageLong {
		return "S1_Long"
	}
	return "S0_BitSync"
}

/* ChannelState is the tracking channel lifecycle. */
type ChannelState int

const (
	Disabled ChannelState = iota
	Running
)

func (s ChannelState) String() string {
	if s == Running {
		return "Running"
	}
	return "Disabled"
}

/* BitPolarity reports the navigation-bit sign relative to the tracked
   prompt correlator, as resolved by NavBitSync. */
type BitPolarity int

const (
	PolarityUnknown BitPolarity = iota
	PolarityNormal
	PolarityInverted
)

/* validIntMs lists the only legal coherent-integration periods (ms);
   each divides 20 evenly so that exactly one or more periods tile a
   navigation bit. */
var validIntMs = [...]int{1, 2, 4, 5, 10, 20}

func isValidIntMs(ms int) bool {
	for _, v := range validIntMs {
		if v == ms {
			return true
		}
	}
	return false
}
