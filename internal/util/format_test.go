package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "0s", FormatDuration(-time.Second))
	assert.Equal(t, "500µs", FormatDuration(500*time.Microsecond))
	assert.Equal(t, "1.234s", FormatDuration(1234567*time.Microsecond))
}

func TestFormatExecutionTime(t *testing.T) {
	assert.Equal(t, "-", FormatExecutionTime(nil))
	ms := int64(1500)
	assert.Equal(t, "1.5s", FormatExecutionTime(&ms))
}
