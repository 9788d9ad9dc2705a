package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_RejectsBadArguments(t *testing.T) {
	assert.ErrorContains(t, run(nil, "sideways", nil), "unknown command")
	assert.ErrorContains(t, run(nil, "force", nil), "requires a version")
	assert.ErrorContains(t, run(nil, "force", []string{"abc"}), "invalid version")
}
