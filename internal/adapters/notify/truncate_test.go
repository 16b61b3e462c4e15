package notify

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "RSI 78 overbought", 90, "RSI 78 overbought"},
		{"ascii", "abcdefghij", 8, "abcde..."},
		{"multibyte", "precio −2.1% ≥ límite", 10, "precio ..."},
		{"accents kept whole", "posición ñandú", 12, "posición ..."},
		{"tiny max", "abcdef", 2, "ab"},
		{"zero max", "abcdef", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
