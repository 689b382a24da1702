package detections

import (
	"testing"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var testClasses = map[int]string{0: "person", 1: "bicycle", 2: "car", 3: "motorbike", 7: "truck", 15: "cat"}

func record(x0, y0, x1, y1, score, class float32) []float32 {
	return []float32{x0, y0, x1, y1, score, class}
}

func output(records ...[]float32) []float32 {
	out := make([]float32, OutputLength)
	for i, r := range records {
		copy(out[i*ValuesPerBoundingBox:], r)
	}
	return out
}

func TestParse(t *testing.T) {
	p := NewParser()

	t.Run("filters low confidence and keeps slot order", func(t *testing.T) {
		out := output(
			record(1, 2, 30, 40, 0.9, 0),
			record(5, 5, 10, 10, 0.1, 2),
			record(50, 60, 70, 80, 0.25, 15),
		)

		got := p.Parse(out, 640, 480, testClasses, 0, 0)
		want := []models.BoundingBox{
			{InputWidth: 640, InputHeight: 480, TopLeftX: 1, TopLeftY: 2, BottomRightX: 30, BottomRightY: 40, Score: 0.9, Label: "person", Category: models.CategoryHuman},
			{InputWidth: 640, InputHeight: 480, TopLeftX: 50, TopLeftY: 60, BottomRightX: 70, BottomRightY: 80, Score: 0.25, Label: "cat", Category: models.CategoryOther},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
		}
		for _, b := range got {
			assert.GreaterOrEqual(t, b.Score, float32(MinConfidence))
		}
	})

	t.Run("disabled filter keeps every slot", func(t *testing.T) {
		unfiltered := &Parser{FilterByMinConfidence: false}
		got := unfiltered.Parse(output(record(1, 1, 2, 2, 0.01, 0)), 10, 10, testClasses, 0, 0)
		assert.Len(t, got, MaxDetectionsPerInput)
	})

	t.Run("applies tile offset", func(t *testing.T) {
		got := p.Parse(output(record(10, 20, 30, 40, 0.8, 2)), 1280, 1280, testClasses, 100, 50)
		if assert.Len(t, got, 1) {
			assert.Equal(t, [4]int{110, 70, 130, 90}, [4]int{got[0].TopLeftX, got[0].TopLeftY, got[0].BottomRightX, got[0].BottomRightY})
		}
	})

	t.Run("unknown class index", func(t *testing.T) {
		got := p.Parse(output(record(0, 0, 1, 1, 0.5, 99)), 10, 10, testClasses, 0, 0)
		if assert.Len(t, got, 1) {
			assert.Equal(t, UnknownLabel, got[0].Label)
			assert.Equal(t, models.CategoryUnknown, got[0].Category)
		}
	})

	t.Run("truncated buffer stops at the last full record", func(t *testing.T) {
		full := record(0, 0, 1, 1, 0.5, 0)
		out := append(append([]float32{}, full...), 3, 3, 4)

		got := p.Parse(out, 10, 10, testClasses, 0, 0)
		assert.Len(t, got, 1)

		assert.Empty(t, p.Parse([]float32{1, 2, 3}, 10, 10, testClasses, 0, 0))
		assert.Empty(t, p.Parse(nil, 10, 10, testClasses, 0, 0))
	})
}

func TestCategoryForLabel(t *testing.T) {
	tests := map[string]models.Category{
		"person":     models.CategoryHuman,
		"car":        models.CategoryCar,
		"motorbike":  models.CategoryMotorbike,
		"truck":      models.CategoryTruck,
		"bicycle":    models.CategoryBicycle,
		UnknownLabel: models.CategoryUnknown,
		"giraffe":    models.CategoryOther,
		"":           models.CategoryOther,
	}
	for label, want := range tests {
		assert.Equal(t, want, CategoryForLabel(label), label)
	}
}
