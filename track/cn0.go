/*------------------------------------------------------------------------------
* cn0.go : carrier-to-noise density (C/N0) estimator
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* moment-based (M2M4) C/N0 estimator: the first and second moments of
* instantaneous prompt correlator power separate signal power from
* noise power without needing a dedicated noise-only channel.
 */
package track

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const cn0WindowLen = 20

/* CN0Estimator tracks C/N0 from successive prompt (I, Q) accumulator
 * samples normalized to one millisecond. */
type CN0Estimator struct {
	loopFreqHz float64
	pow        [cn0WindowLen]float64
	idx        int
	filled     int
}

/* NewCN0Estimator seeds the estimator for a loop running at loopFreqHz
 * updates/sec, biased toward an initial dBHz estimate. */
func NewCN0Estimator(loopFreqHz, initDBHz float64) *CN0Estimator {
	e := &CN0Estimator{loopFreqHz: loopFreqHz}
	e.Reseed(initDBHz)
	return e
}

/* Reseed re-biases the window around a known-good estimate, used when
 * the channel changes coherent-integration stage. The window is filled
 * with a two-level pattern (not a constant) chosen so its own M2M4
 * moments reproduce the requested dBHz: a constant-power window always
 * yields pn==0 and an unusable infinite SNR. */
func (e *CN0Estimator) Reseed(dbHz float64) {
	pd := math.Pow(10, dbHz/10) / e.loopFreqHz
	const pn = 1.0
	m1 := pd + pn
	variance := 2*pd*pn + pn*pn
	delta := math.Sqrt(variance)
	hi, lo := m1+delta, m1-delta
	if lo < 0 {
		lo = 0
	}
	for i := range e.pow {
		if i%2 == 0 {
			e.pow[i] = hi
		} else {
			e.pow[i] = lo
		}
	}
	e.idx, e.filled = 0, cn0WindowLen
}

/* Update folds in one epoch of normalized prompt correlator power and
 * returns the current C/N0 estimate in dBHz. */
func (e *CN0Estimator) Update(i, q float64) float64 {
	e.pow[e.idx] = i*i + q*q
	e.idx = (e.idx + 1) % cn0WindowLen
	if e.filled < cn0WindowLen {
		e.filled++
	}

	win := e.pow[:e.filled]
	m1 := stat.Mean(win, nil)
	var m2 float64
	for _, p := range win {
		m2 += p * p
	}
	m2 /= float64(len(win))

	pd := 2*m1*m1 - m2
	if pd < 0 {
		pd = 0
	}
	pd = math.Sqrt(pd)
	pn := m1 - pd
	if pn < 1e-9 {
		pn = 1e-9
	}
	snr := pd / pn
	if snr < 1e-9 {
		snr = 1e-9
	}
	return 10*math.Log10(snr) + 10*math.Log10(e.loopFreqHz)
}
