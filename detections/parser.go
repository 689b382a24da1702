package detections

import (
	"github.com/Tutortoise/sentinel-detection-service/models"
)

var labelCategories = map[string]models.Category{
	"person":     models.CategoryHuman,
	"car":        models.CategoryCar,
	"motorbike":  models.CategoryMotorbike,
	"truck":      models.CategoryTruck,
	"bicycle":    models.CategoryBicycle,
	UnknownLabel: models.CategoryUnknown,
}

// CategoryForLabel maps a detector label to its semantic category.
func CategoryForLabel(label string) models.Category {
	if c, ok := labelCategories[label]; ok {
		return c
	}
	return models.CategoryOther
}

// Parser decodes raw detector output into bounding boxes.
type Parser struct {
	FilterByMinConfidence bool
	MinConfidence         float32
}

func NewParser() *Parser {
	return &Parser{
		FilterByMinConfidence: true,
		MinConfidence:         MinConfidence,
	}
}

// Parse walks the fixed detection slots of output and returns the boxes that
// survive the confidence filter, shifted by the tile offset. A buffer that
// ends mid-record stops the walk at the last complete record.
func (p *Parser) Parse(output []float32, inputWidth, inputHeight int, classNames map[int]string, offsetX, offsetY int) []models.BoundingBox {
	boxes := make([]models.BoundingBox, 0, 16)

	for i := 0; i < MaxDetectionsPerInput; i++ {
		start := i * ValuesPerBoundingBox
		if start+ValuesPerBoundingBox > len(output) {
			break
		}
		record := output[start : start+ValuesPerBoundingBox]

		score := record[scoreIdx]
		if p.FilterByMinConfidence && score < p.MinConfidence {
			continue
		}

		label, ok := classNames[int(record[labelIdx])]
		if !ok {
			label = UnknownLabel
		}

		boxes = append(boxes, models.BoundingBox{
			InputWidth:   inputWidth,
			InputHeight:  inputHeight,
			TopLeftX:     int(record[topLeftXIdx]) + offsetX,
			TopLeftY:     int(record[topLeftYIdx]) + offsetY,
			BottomRightX: int(record[bottomRightXIdx]) + offsetX,
			BottomRightY: int(record[bottomRightYIdx]) + offsetY,
			Score:        score,
			Label:        label,
			Category:     CategoryForLabel(label),
		})
	}

	return boxes
}
