package validators

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "trims", input: "  ORD123  ", maxLen: 100, want: "ORD123"},
		{name: "ascii cut", input: "abcdef", maxLen: 3, want: "abc"},
		{name: "short kept", input: "abc", maxLen: 3, want: "abc"},
		{name: "no limit", input: " abc ", maxLen: 0, want: "abc"},
		{name: "cjk cut on rune boundary", input: "王小明先生", maxLen: 3, want: "王小明"},
		{name: "mixed", input: "陳a美b", maxLen: 2, want: "陳a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeString(tt.input, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSanitizeStringLongCJKKeyword(t *testing.T) {
	got := SanitizeString(strings.Repeat("收件人", 50), 100)
	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}
