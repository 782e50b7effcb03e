package wstelemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trackcore/internal/wstelemetry"
	"trackcore/track"
)

func TestNewSink_NoClientsDoesNotPanicOnSend(t *testing.T) {
	assert := assert.New(t)

	sink, err := wstelemetry.NewSink("sess-1", true)
	assert.NoError(err)

	assert.NotPanics(func() {
		sink.SendTrackingState(track.TrackingState{Channels: []track.ChannelSummary{{State: track.Running, Sid: 3, CN0: 42}}})
		sink.SendTrackingIQ(track.TrackingIQ{Channel: 0, Sid: 3})
	})
}

func TestNewSink_CompressionDisabledStillWorks(t *testing.T) {
	assert := assert.New(t)

	sink, err := wstelemetry.NewSink("sess-2", false)
	assert.NoError(err)
	assert.NotPanics(func() {
		sink.SendTrackingIQ(track.TrackingIQ{})
	})
}
