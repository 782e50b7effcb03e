/*------------------------------------------------------------------------------
* alias.go : false-phase-lock / half-cycle alias detector
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* cross/dot discriminator between the first and second halves of a
* long coherent integration: a genuine lock keeps the two halves'
* prompt phasors aligned, a false (half-chip or data-bit) lock does
* not, and the residual angle converts directly to a frequency error.
 */
package track

import "math"

/* AliasDetector implements SPEC_FULL.md §4.3's "first"/"second" pair. */
type AliasDetector struct {
	firstI, firstQ float64
	halfPeriodSec  float64
}

/* NewAliasDetector configures the detector for a long-coherent period
 * of intMs milliseconds; the comparison window is half of that. */
func NewAliasDetector(intMs int) *AliasDetector {
	return &AliasDetector{halfPeriodSec: float64(intMs) / 2 / 1000}
}

/* Retune updates the half-period when int_ms changes across a stage
 * transition. */
func (a *AliasDetector) Retune(intMs int) {
	a.halfPeriodSec = float64(intMs) / 2 / 1000
}

/* First records the first-half prompt snapshot, taken at
 * fetch_correlations time for the overwrite (short-half) branch. */
func (a *AliasDetector) First(i, q float64) {
	a.firstI, a.firstQ = i, q
}

/* FirstI exposes the stored first-half in-phase sample (used by the
 * channel's false-lock arithmetic in step 9). */
func (a *AliasDetector) FirstI() float64 { return a.firstI }

/* Second computes the frequency-error estimate between the stored
 * first half and the supplied second-half prompt sample. */
func (a *AliasDetector) Second(i, q float64) float64 {
	dot := a.firstI*i + a.firstQ*q
	cross := a.firstI*q - a.firstQ*i
	if dot == 0 && cross == 0 {
		return 0
	}
	angle := math.Atan2(cross, dot)
	if a.halfPeriodSec <= 0 {
		return 0
	}
	return angle / (2 * math.Pi * a.halfPeriodSec)
}
