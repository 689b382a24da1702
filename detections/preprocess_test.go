package detections

import (
	"testing"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessorFill(t *testing.T) {
	const channelSize = SideLength * SideLength
	tile := models.Tile{Width: 2, Height: 2, Pix: []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 51, 102, 153, 255,
	}}

	for _, parallel := range []bool{false, true} {
		p := &Preprocessor{numWorkers: 4, parallel: parallel}
		dst := make([]float32, Channels*channelSize)
		for i := range dst {
			dst[i] = -1
		}

		p.Fill(tile, dst)

		assert.Equal(t, float32(1), dst[0], "red of (0,0)")
		assert.Equal(t, float32(1), dst[channelSize+1], "green of (1,0)")
		assert.Equal(t, float32(1), dst[2*channelSize+SideLength], "blue of (0,1)")
		assert.InDelta(t, 0.2, dst[SideLength+1], 1e-6)
		assert.InDelta(t, 0.4, dst[channelSize+SideLength+1], 1e-6)
		assert.InDelta(t, 0.6, dst[2*channelSize+SideLength+1], 1e-6)

		assert.Zero(t, dst[2], "padding right of the tile")
		assert.Zero(t, dst[2*SideLength], "padding below the tile")
		assert.Zero(t, dst[channelSize-1])
	}
}
