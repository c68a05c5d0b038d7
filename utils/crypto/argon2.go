package cryptopackage

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Params Argon2id 成本参数
type Params struct {
	// Memory 以 KiB 为单位
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams 交互式登录场景的推荐参数 (64 MB, 3 次迭代)
var DefaultParams = Params{
	Memory:      65536,
	Iterations:  3,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

var (
	paramsMu      sync.RWMutex
	currentParams = DefaultParams
)

// ErrInvalidHash 哈希格式无法解析
var ErrInvalidHash = errors.New("invalid Argon2id hash format")

// SetParams 替换新哈希使用的参数，已存储的哈希仍按自身参数校验
func SetParams(p Params) {
	paramsMu.Lock()
	defer paramsMu.Unlock()
	currentParams = p
}

// CurrentParams 返回当前参数
func CurrentParams() Params {
	paramsMu.RLock()
	defer paramsMu.RUnlock()
	return currentParams
}

// GenerateFromPassword 使用 Argon2id 算法哈希密码
// 返回 $argon2id$v=19$m=...,t=...,p=...$salt$hash 格式，可直接入库
func GenerateFromPassword(password string) (string, error) {
	p := CurrentParams()

	salt := make([]byte, p.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// decodeHash 解析编码后的哈希
func decodeHash(encodedHash string) (Params, []byte, []byte, error) {
	var p Params

	// 期望格式: "", "argon2id", "v=...", "m=...,t=...,p=...", "salt", "hash"
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("invalid Argon2id version format: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("incompatible Argon2id version %d", version)
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("invalid Argon2id cost parameters format: %w", err)
	}
	p.Parallelism = uint8(parallelism)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("failed to decode hash: %w", err)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(hash))

	return p, salt, hash, nil
}

// ComparePasswordAndHash 比较明文密码和 Argon2id 哈希值
func ComparePasswordAndHash(password, encodedHash string) (bool, error) {
	p, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	// constant-time 比较
	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// NeedsRehash 哈希参数与当前参数不一致时返回 true
func NeedsRehash(encodedHash string) bool {
	p, _, _, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}
	cur := CurrentParams()
	return p.Memory != cur.Memory || p.Iterations != cur.Iterations ||
		p.Parallelism != cur.Parallelism || p.KeyLength != cur.KeyLength
}
