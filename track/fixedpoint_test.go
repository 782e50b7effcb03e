package track_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"trackcore/track"
)

func TestPropagateCodePhase_ZeroSamplesIsIdentity(t *testing.T) {
	assert := assert.New(t)

	got := track.PropagateCodePhase(512.4375, 1000.0, 0)
	assert.InDelta(512.4375, float64(got), 1.0/track.SubChipsPerChip)
}

func TestPropagateCodePhase_RolloverAt1023NotAt1024(t *testing.T) {
	assert := assert.New(t)

	/* with zero Doppler the code rate is exactly the nominal chipping
	 * rate; pick a sample count that pushes 1022.9 chips past the
	 * 1023-chip rollover boundary */
	samplesFor1Chip := uint64(math.Round(track.SampleFreqHz / track.GpsCaChippingRate))
	got := track.PropagateCodePhase(1022.9, 0, samplesFor1Chip)

	assert.True(got >= 0 && got < 1.0, "expected fold into [0,1), got %v", got)
}

func TestCodePhaseFPRoundTrip(t *testing.T) {
	assert := assert.New(t)

	fp := track.CodePhaseToFP(3.0625)
	assert.InDelta(3.0625, track.FPToCodePhase(fp), 1.0/track.SubChipsPerChip)
}
