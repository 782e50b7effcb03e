package track_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trackcore/track"
)

func TestCN0Estimator_StrongSteadySignalReportsHighCN0(t *testing.T) {
	assert := assert.New(t)

	e := track.NewCN0Estimator(1000, 30)
	var got float64
	for i := 0; i < 25; i++ {
		got = e.Update(1.0, 0)
	}
	assert.Greater(got, 30.0)
}

func TestCN0Estimator_AlternatingDropoutReportsLowCN0(t *testing.T) {
	assert := assert.New(t)

	/* power bounces between 0 and 4 every epoch: no steady carrier
	 * component survives averaging, so the moment estimator should
	 * read this as mostly noise */
	e := track.NewCN0Estimator(1000, 30)
	var got float64
	for i := 0; i < 22; i++ {
		if i%2 == 0 {
			got = e.Update(0, 0)
		} else {
			got = e.Update(2, 0)
		}
	}
	assert.Less(got, 0.0)
}

func TestCN0Estimator_ReseedBiasesTowardGivenEstimate(t *testing.T) {
	assert := assert.New(t)

	e := track.NewCN0Estimator(200, 20)
	e.Reseed(45)
	got := e.Update(1.0, 0)
	assert.InDelta(45.0, got, 15.0)
}
