package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New(false).GetLevel())
	assert.Equal(t, logrus.DebugLevel, New(true).GetLevel())
}
