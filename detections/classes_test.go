package detections

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClassNames(t *testing.T) {
	t.Run("skips blank lines without consuming an index", func(t *testing.T) {
		classes, err := LoadClassNames(strings.NewReader("person\n\n  bicycle  \r\n\ncar\n"))
		require.NoError(t, err)
		assert.Equal(t, map[int]string{0: "person", 1: "bicycle", 2: "car"}, classes)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := LoadClassNames(strings.NewReader("\n \n"))
		assert.ErrorIs(t, err, errNoClasses)
	})
}
