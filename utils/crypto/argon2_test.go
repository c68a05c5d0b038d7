package cryptopackage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateFromPassword_Format 测试哈希格式
func TestGenerateFromPassword_Format(t *testing.T) {
	hash, err := GenerateFromPassword("mysecretpassword123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	assert.Contains(t, hash, "m=65536,t=3,p=4")
	assert.Len(t, strings.Split(hash, "$"), 6)
}

// TestGenerateFromPassword_DifferentHashes 相同密码产生不同哈希
func TestGenerateFromPassword_DifferentHashes(t *testing.T) {
	hash1, err := GenerateFromPassword("samepassword123")
	require.NoError(t, err)
	hash2, err := GenerateFromPassword("samepassword123")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

// TestPasswordHashRoundTrip 测试完整流程
func TestPasswordHashRoundTrip(t *testing.T) {
	passwords := []string{
		"short",
		"medium length password",
		"a very long password with many characters and symbols !@#$%^&*()",
		"密码测试",
		"🔐🔑🔒",
	}

	for _, password := range passwords {
		hash, err := GenerateFromPassword(password)
		require.NoError(t, err, "password: %s", password)

		match, err := ComparePasswordAndHash(password, hash)
		require.NoError(t, err, "password: %s", password)
		assert.True(t, match, "password: %s", password)

		match, err = ComparePasswordAndHash(password+"wrong", hash)
		require.NoError(t, err, "password: %s", password)
		assert.False(t, match, "password: %s", password)
	}
}

// TestComparePasswordAndHash_InvalidFormat 测试无效哈希格式
func TestComparePasswordAndHash_InvalidFormat(t *testing.T) {
	invalidHashes := []string{
		"",
		"invalid",
		"!unusable",
		"$argon2i$v=19$m=65536,t=2,p=4$salt$hash",
		"$argon2id$v=19$m=65536,t=2,p=4$",
		"$argon2id$vx=19$m=65536,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$invalid_params$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=4$!!!invalid!!!$!!!invalid!!!",
		"$argon2id$v=16$m=65536,t=2,p=4$c2FsdA$aGFzaA",
	}

	for _, hash := range invalidHashes {
		match, err := ComparePasswordAndHash("password", hash)
		assert.Error(t, err, "hash: %s", hash)
		assert.False(t, match, "hash: %s", hash)
	}
}

// TestParamsChange 修改参数后旧哈希仍可校验
func TestParamsChange(t *testing.T) {
	old, err := GenerateFromPassword("rotate-me")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(old))

	SetParams(Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	t.Cleanup(func() { SetParams(DefaultParams) })

	assert.True(t, NeedsRehash(old))

	match, err := ComparePasswordAndHash("rotate-me", old)
	require.NoError(t, err)
	assert.True(t, match)

	fresh, err := GenerateFromPassword("rotate-me")
	require.NoError(t, err)
	assert.Contains(t, fresh, "m=1024,t=1,p=1")
	assert.False(t, NeedsRehash(fresh))
	assert.True(t, NeedsRehash("garbage"))
}

// BenchmarkGenerateFromPassword 基准测试密码哈希生成
func BenchmarkGenerateFromPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := GenerateFromPassword("benchmarkpassword123"); err != nil {
			b.Fatal(err)
		}
	}
}
