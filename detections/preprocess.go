package detections

import (
	"runtime"
	"sync"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"golang.org/x/sys/cpu"
)

var useParallel = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD

// Preprocessor converts RGBA tiles into the planar, 0..1 scaled float layout
// the detector consumes. Tiles smaller than SideLength are zero padded at the
// bottom and right edges.
type Preprocessor struct {
	numWorkers int
	parallel   bool
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		numWorkers: runtime.GOMAXPROCS(0),
		parallel:   useParallel,
	}
}

// Fill writes tile into dst, which must hold Channels*SideLength*SideLength values.
func (p *Preprocessor) Fill(tile models.Tile, dst []float32) {
	clear(dst)

	height := min(tile.Height, SideLength)
	if p.parallel && p.numWorkers > 1 {
		p.fillParallel(tile, dst, height)
		return
	}
	fillRows(tile, dst, 0, height)
}

func (p *Preprocessor) fillParallel(tile models.Tile, dst []float32, height int) {
	rowsPerWorker := (height + p.numWorkers - 1) / p.numWorkers

	var wg sync.WaitGroup
	for start := 0; start < height; start += rowsPerWorker {
		end := min(start+rowsPerWorker, height)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fillRows(tile, dst, start, end)
		}(start, end)
	}
	wg.Wait()
}

func fillRows(tile models.Tile, dst []float32, startRow, endRow int) {
	const channelSize = SideLength * SideLength
	width := min(tile.Width, SideLength)
	stride := tile.Width * BytesPerPixel

	for y := startRow; y < endRow; y++ {
		src := tile.Pix[y*stride:]
		offset := y * SideLength
		for x := 0; x < width; x++ {
			i := offset + x
			px := src[x*BytesPerPixel:]
			dst[i] = float32(px[0]) / 255.0
			dst[channelSize+i] = float32(px[1]) / 255.0
			dst[channelSize*2+i] = float32(px[2]) / 255.0
		}
	}
}
