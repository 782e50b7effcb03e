/*------------------------------------------------------------------------------
* measurement.go : observation export (§4.1.3)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
 */
package track

/* Measurement is the observation record handed to the navigation
 * pipeline by ExportMeasurement. */
type Measurement struct {
	Prn               int
	LockCounter       uint16
	CodePhaseChips    float64
	CodePhaseRate     float64
	CarrierFreq       float64
	CarrierPhaseCycle float64
	TowMs             int
	ReceiverTime      float64
	SNR               float32
}
