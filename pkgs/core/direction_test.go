package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionBaselineRoundTrip(t *testing.T) {
	assert.Equal(t, Forward, DirectionFromBaselineByte(Forward.ToBaselineByte()))
	assert.Equal(t, Backward, DirectionFromBaselineByte(Backward.ToBaselineByte()))
}

func TestDirectionAdvancedRoundTrip(t *testing.T) {
	assert.Equal(t, Forward, DirectionFromAdvancedByte(Forward.ToAdvancedByte()))
	assert.Equal(t, Backward, DirectionFromAdvancedByte(Backward.ToAdvancedByte()))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "backward", Backward.String())
}
