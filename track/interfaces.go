/*------------------------------------------------------------------------------
* interfaces.go : external collaborator contracts (§6)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
 */
package track

/* NavBitSync is the navigation-message bit/frame synchronizer
 * collaborator (SPEC_FULL.md §4.3). A concrete GPS L1 C/A
 * implementation lives in internal/navbit; full message-field
 * decoding is out of scope here. */
type NavBitSync interface {
	/* Update feeds one prompt in-phase accumulator sample (the sum over
	 * the whole coherent integration, not divided by intMs) and the
	 * coherent-integration period in ms; it returns a decoded time-of-week in ms, or 0 if
	 * no subframe boundary was found this update. */
	Update(promptI float64, intMs int) int

	BitPhase() int
	BitPhaseRef() int
	Polarity() BitPolarity

	/* SetPolarityUnknown is called on a suspected cycle slip
	 * (mark_ambiguous) to force downstream re-resolution of bit
	 * polarity. */
	SetPolarityUnknown()
}

/* CorrelatorDevice is the NAP FPGA correlator peripheral collaborator
 * (SPEC_FULL.md §6). A concrete serial-linked implementation lives in
 * internal/serialdevice; tests use an in-memory fake. */
type CorrelatorDevice interface {
	CodeWr(channel int, prn int)
	InitWr(channel int, prn int, codePhase uint64, carrierPhase int64)
	UpdateWr(channel int, carrFreqFP int32, codeRateFP int32, lengthCode int, flags uint32)
	CorrRd(channel int) (sampleCount uint64, corrs [3]Corr)
	TimingStrobe(sampleCount uint64)

	/* FirmwareVersion reports the NAP image's semantic version, used
	 * by the firmware-compatibility gate (SPEC_FULL.md §10.7). */
	FirmwareVersion() string
}

/* TelemetrySink is the wire-level telemetry transport collaborator
 * (SPEC_FULL.md §6). Concrete implementations live in
 * internal/wstelemetry, internal/mqtttelemetry and internal/iqrtp. */
type TelemetrySink interface {
	SendTrackingState(TrackingState)
	SendTrackingIQ(TrackingIQ)
}

/* TrackingState is the always-emitted, fixed-shape per-cycle summary
 * of every channel. */
type TrackingState struct {
	Channels []ChannelSummary
}

/* ChannelSummary is one row of a TrackingState message. */
type ChannelSummary struct {
	State ChannelState
	Sid   int /* signal id on the wire; identity-mapped from PRN today */
	CN0   float32
}

/* TrackingIQ is the optional per-channel raw correlator telemetry
 * message. */
type TrackingIQ struct {
	Channel int
	Sid     int
	Corrs   [3]Corr /* Early, Prompt, Late */
}
