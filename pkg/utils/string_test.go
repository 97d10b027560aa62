package utils_test

import (
	"testing"

	"github.com/projectamerika/mayflower/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "short string untouched", input: "hello", max: 10, expected: "hello"},
		{name: "exact length untouched", input: "hello", max: 5, expected: "hello"},
		{name: "long string gets ellipsis", input: "hello world", max: 8, expected: "hello..."},
		{name: "multibyte runes counted once", input: "ééééé", max: 4, expected: "é..."},
		{name: "tiny limit has no ellipsis", input: "hello", max: 2, expected: "he"},
		{name: "zero limit", input: "hello", max: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, utils.TruncateString(tt.input, tt.max))
		})
	}
}

func TestCompressAllWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "spam in chat", utils.CompressAllWhitespace("  spam\n\tin   chat "))
	assert.Empty(t, utils.CompressAllWhitespace(" \n "))
}
