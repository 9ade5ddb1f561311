package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeStyle(t *testing.T) {
	assert.Equal(t, ColorGreen, OutcomeStyle("found").GetForeground())
	assert.Equal(t, ColorGreen, OutcomeStyle("COMPLETED").GetForeground())
	assert.Equal(t, ColorYellow, OutcomeStyle("not found").GetForeground())
	assert.Equal(t, ColorYellow, OutcomeStyle("STARTED").GetForeground())
	assert.Equal(t, ColorRed, OutcomeStyle("connection failed").GetForeground())
	assert.Equal(t, ColorGray, OutcomeStyle("whatever").GetForeground())
}
