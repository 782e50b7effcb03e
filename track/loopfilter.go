/*------------------------------------------------------------------------------
* loopfilter.go : aided code/carrier tracking loop (DLL + FLL-assisted PLL)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* discriminators and loop-filter recursion follow the classic digital
* tracking-loop structure (Kaplan & Hegarty, "Understanding GPS/GNSS");
* the direct Aw/W2 recursion form is adapted from the PLL/DLL update
* functions of the pack's SDR receiver reference implementation.
 */
package track

import "math"

/* Corr is one complex early/prompt/late correlator tap. */
type Corr struct {
	I, Q float64
}

/* LoopFilter is the aided DLL + FLL-assisted-PLL collaborator described
 * in SPEC_FULL.md §4.2. CarrFilt.Y and CodeFilt.Y are deliberately
 * exported: the false-lock corrector snaps CarrFilt.Y to a new carrier
 * frequency in place, and Drop (a testing aid) perturbs CodeFilt.Y, so
 * both one-pole integrators stay consistent after an externally forced
 * jump. */
type LoopFilter struct {
	CarrFreq float64 /* current carrier frequency estimate (Hz) */
	CodeFreq float64 /* current code rate error term (chips/s, relative to nominal) */

	CarrFilt struct {
		Y float64 /* carrier NCO integrator state */
	}
	CodeFilt struct {
		Y float64 /* code NCO integrator state */
	}

	prevCarrErr float64
	prevCodeErrVal float64
	prevDiscI      float64
	prevDiscQ      float64
	haveSample     bool

	carrToCode float64
	fllGain    float64

	codeAw, codeW2 float64
	carrAw, carrW2 float64
	codeK, carrK   float64

	loopFreqHz float64
}

/* loopCoeffs derives the classic 2nd-order proportional/integral
 * gains from noise bandwidth and damping ratio. */
func loopCoeffs(bw, zeta float64) (aw, w2 float64) {
	if bw <= 0 {
		return 0, 0
	}
	wn := bw * 8 * zeta / (4*zeta*zeta + 1)
	return 2 * zeta * wn, wn * wn
}

/* NewLoopFilter seeds the loop around an initial code error and
 * carrier frequency with stage-0 coefficients. */
func NewLoopFilter(loopFreqHz, codeErrInit, codeBW, codeZeta, codeK, carrToCode,
	carrFreqInit, carrBW, carrZeta, carrK, fllGain float64) *LoopFilter {
	lf := &LoopFilter{
		CarrFreq:   carrFreqInit,
		carrToCode: carrToCode,
		fllGain:    fllGain,
		codeK:      codeK,
		carrK:      carrK,
		loopFreqHz: loopFreqHz,
	}
	lf.codeAw, lf.codeW2 = loopCoeffs(codeBW, codeZeta)
	lf.carrAw, lf.carrW2 = loopCoeffs(carrBW, carrZeta)
	lf.CarrFilt.Y = carrFreqInit
	lf.CodeFilt.Y = codeErrInit
	lf.CodeFreq = lf.CarrFreq/lf.carrToCode + lf.CodeFilt.Y
	return lf
}

/* Retune keeps integrator state (CodeFilt.Y, CarrFilt.Y, prevCarrErr)
 * but replaces the loop coefficients - used at the S0->S1 stage
 * transition. */
func (lf *LoopFilter) Retune(loopFreqHz, codeBW, codeZeta, codeK, carrToCode,
	carrBW, carrZeta, carrK, fllGain float64) {
	lf.codeAw, lf.codeW2 = loopCoeffs(codeBW, codeZeta)
	lf.carrAw, lf.carrW2 = loopCoeffs(carrBW, carrZeta)
	lf.codeK = codeK
	lf.carrK = carrK
	lf.carrToCode = carrToCode
	lf.fllGain = fllGain
	lf.loopFreqHz = loopFreqHz
}

/* Update advances the loop given correlations ordered [Late, Prompt,
 * Early] (the aided filter's specified tap order) and recomputes
 * CarrFreq/CodeFreq. */
func (lf *LoopFilter) Update(cs [3]Corr) {
	dt := 1.0
	if lf.loopFreqHz > 0 {
		dt = 1.0 / lf.loopFreqHz
	}
	late, prompt, early := cs[0], cs[1], cs[2]

	/* Costas phase discriminator, FLL cross discriminator on the prompt tap */
	phaseErr := 0.0
	if prompt.I != 0 || prompt.Q != 0 {
		phaseErr = math.Atan2(prompt.Q, prompt.I) / (2 * math.Pi)
	}
	freqErr := 0.0
	if lf.haveSample && (lf.prevDiscI != 0 || lf.prevDiscQ != 0) {
		dot := lf.prevDiscI*prompt.I + lf.prevDiscQ*prompt.Q
		cross := lf.prevDiscI*prompt.Q - lf.prevDiscQ*prompt.I
		if dot != 0 || cross != 0 {
			freqErr = math.Atan2(cross, dot) / (2 * math.Pi * dt)
		}
	}
	lf.prevDiscI, lf.prevDiscQ = prompt.I, prompt.Q
	lf.haveSample = true

	phaseErr *= lf.carrK
	freqErr *= lf.fllGain

	lf.CarrFilt.Y += lf.carrAw*(phaseErr-lf.prevCarrErr) + lf.carrW2*dt*phaseErr + dt*freqErr
	lf.prevCarrErr = phaseErr
	lf.CarrFreq = lf.CarrFilt.Y

	/* non-coherent early-minus-late code envelope discriminator */
	eMag := math.Hypot(early.I, early.Q)
	lMag := math.Hypot(late.I, late.Q)
	codeErr := 0.0
	if eMag+lMag > 0 {
		codeErr = 0.5 * (eMag - lMag) / (eMag + lMag)
	}
	codeErr *= lf.codeK

	lf.CodeFilt.Y += lf.codeAw*(codeErr-lf.prevCodeErr()) + lf.codeW2*dt*codeErr
	lf.setPrevCodeErr(codeErr)
	lf.CodeFreq = lf.CodeFilt.Y + lf.CarrFreq/lf.carrToCode
}

/* prevCodeErr/setPrevCodeErr keep the DLL's differentiator history;
 * split out so Update stays readable. */
func (lf *LoopFilter) prevCodeErr() float64     { return lf.prevCodeErrVal }
func (lf *LoopFilter) setPrevCodeErr(v float64) { lf.prevCodeErrVal = v }
