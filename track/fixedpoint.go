/*------------------------------------------------------------------------------
* fixedpoint.go : fixed-point code/carrier phase arithmetic
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
 */
package track

import "math"

/* CodePhaseToFP converts a code phase in chips to the chips*2^32
 * fixed-point representation used by code_phase_early. */
func CodePhaseToFP(chips float64) uint64 {
	return uint64(chips * NapCodePhaseUnitsPerChip)
}

/* FPToCodePhase folds a raw chips*2^32 accumulator down to sub-chip
 * resolution (1/16 chip) with rollover at exactly 1023 chips, not
 * 1024 - the C/A code is 1023 chips long and a mod-2^k mask would
 * silently wrap at the wrong point. */
func FPToCodePhase(phaseFP uint64) float64 {
	subChips := int64(phaseFP>>(CodePhaseFracBits-4)) % CodeRolloverSubChips
	if subChips < 0 {
		subChips += CodeRolloverSubChips
	}
	return float64(subChips) / SubChipsPerChip
}

/* CarrierFreqToFP converts a carrier frequency (Hz) into the
 * half-cycles*2^24-per-sample NCO register units used by carr_freq_fp. */
func CarrierFreqToFP(freqHz float64) int32 {
	return int32(math.Round(freqHz * NapCarrierFreqUnitsPerHz))
}

/* CodeRateToFP converts a code phase rate (chips/s) into the
 * chips*2^32-per-sample NCO register units used by code_rate_fp. */
func CodeRateToFP(rateChipsPerSec float64) int32 {
	return int32(math.Round(rateChipsPerSec * NapCodePhaseRateUnitsPerHz))
}

/* nominalCodeRateFP is the code NCO register value with zero Doppler. */
var nominalCodeRateFP = GpsCaChippingRate * NapCodePhaseRateUnitsPerHz

/* PropagateCodePhase returns the expected early code phase (chips,
 * folded to [0, 1023) sub-chip resolution) after n_samples have
 * elapsed, given the carrier Doppler aiding the code NCO.
 *
 * NCO word is (1 + fdop/GPS_L1_HZ) * NOMINAL_NCO_RATE - i.e. the code
 * rate scales with the same fractional Doppler as the carrier.
 */
func PropagateCodePhase(phaseChips float64, carrierFreqHz float64, nSamples uint64) float32 {
	fdop := carrierFreqHz
	rateFP := uint64(math.Round((1.0 + fdop/GpsL1Hz) * nominalCodeRateFP))
	phaseFP := CodePhaseToFP(phaseChips)
	phaseFP += rateFP * nSamples
	return float32(FPToCodePhase(phaseFP))
}
