package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLogMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "admin@example.com", "admin@example.com"},
		{"newline injection", "bob\n[Admin] forged", "bob [Admin] forged"},
		{"control chars", "a\x00b\x1bc", "abc"},
		{"unicode", "标签 cats", "标签 cats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeLogMessage(tt.in))
		})
	}
}

func TestSanitizeLogEmail_Truncates(t *testing.T) {
	long := strings.Repeat("a", 100) + "@example.com"
	got := SanitizeLogEmail(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, 67)
}
