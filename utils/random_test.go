package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 不可用密码与 JWT 密钥都依赖 URL 安全且不重复的随机串
func TestGenerateRandomToken(t *testing.T) {
	seen := make(map[string]bool)
	for _, n := range []int{30, 32} {
		token, err := GenerateRandomToken(n)
		require.NoError(t, err)
		assert.Len(t, token, base64.URLEncoding.EncodedLen(n))
		assert.NotContains(t, token, "$", "must not clash with the password hash separator")

		decoded, err := base64.URLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, decoded, n)

		assert.False(t, seen[token])
		seen[token] = true
	}
}
