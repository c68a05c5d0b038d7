// Package password 密码强度策略
package password

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/utils"
	"github.com/pmezard/go-difflib/difflib"
)

// 违规代码
const (
	CodeTooShort        = "password_too_short"
	CodeTooCommon       = "password_too_common"
	CodeEntirelyNumeric = "password_entirely_numeric"
	CodeTooSimilar      = "password_too_similar"
)

//go:embed common-passwords.txt.gz
var commonPasswordsGz []byte

var (
	commonOnce      sync.Once
	commonPasswords map[string]struct{}
	nonWordPattern  = regexp.MustCompile(`\W+`)
)

// Violation 单条策略违规
type Violation struct {
	Code    string
	Message string
	Params  map[string]interface{}
}

func (v Violation) Error() string {
	return v.Message
}

// Validator 单个密码校验器
type Validator interface {
	Validate(password string, user *models.User) *Violation
	HelpText() string
}

// Policy 一组校验器
type Policy struct {
	validators []Validator
}

// NewPolicy 根据配置构建策略
func NewPolicy(cfg *config.Config) *Policy {
	p := &Policy{}
	if cfg.PasswordCheckSimilarity {
		p.validators = append(p.validators, &SimilarityValidator{MaxSimilarity: cfg.PasswordMaxSimilarity})
	}
	p.validators = append(p.validators, &MinLengthValidator{MinLength: cfg.PasswordMinLength})
	if cfg.PasswordCheckCommon {
		p.validators = append(p.validators, &CommonPasswordValidator{ListPath: cfg.PasswordCommonList})
	}
	if cfg.PasswordCheckNumeric {
		p.validators = append(p.validators, &NumericValidator{})
	}
	return p
}

// DefaultPolicy 与平台默认一致的四个校验器
func DefaultPolicy() *Policy {
	return &Policy{validators: []Validator{
		&SimilarityValidator{MaxSimilarity: 0.7},
		&MinLengthValidator{MinLength: 8},
		&CommonPasswordValidator{},
		&NumericValidator{},
	}}
}

// NewPolicyWith 使用自定义校验器
func NewPolicyWith(validators ...Validator) *Policy {
	return &Policy{validators: validators}
}

// Validate 返回全部违规，nil 表示通过；user 可为 nil
func (p *Policy) Validate(password string, user *models.User) []Violation {
	var out []Violation
	for _, v := range p.validators {
		if violation := v.Validate(password, user); violation != nil {
			out = append(out, *violation)
		}
	}
	return out
}

// HelpTexts 每个校验器的说明
func (p *Policy) HelpTexts() []string {
	texts := make([]string, 0, len(p.validators))
	for _, v := range p.validators {
		texts = append(texts, v.HelpText())
	}
	return texts
}

// MinLengthValidator 最小长度
type MinLengthValidator struct {
	MinLength int
}

func (v *MinLengthValidator) min() int {
	if v.MinLength <= 0 {
		return 8
	}
	return v.MinLength
}

func (v *MinLengthValidator) Validate(password string, _ *models.User) *Violation {
	if utf8.RuneCountInString(password) >= v.min() {
		return nil
	}
	return &Violation{
		Code:    CodeTooShort,
		Message: fmt.Sprintf("This password is too short. It must contain at least %d characters.", v.min()),
		Params:  map[string]interface{}{"Min": v.min()},
	}
}

func (v *MinLengthValidator) HelpText() string {
	return fmt.Sprintf("Your password must contain at least %d characters.", v.min())
}

// CommonPasswordValidator 常见密码列表
// ListPath 为空时使用内置列表，否则读取该文件（.gz 结尾按 gzip 解压），读取失败回退内置列表
type CommonPasswordValidator struct {
	ListPath string

	once      sync.Once
	passwords map[string]struct{}
}

// readPasswordList 每行一个密码，比较时不区分大小写
func readPasswordList(r io.Reader, gzipped bool) (map[string]struct{}, error) {
	if gzipped {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open password list: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	out := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out[strings.ToLower(line)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read password list: %w", err)
	}
	return out, nil
}

func loadCommonPasswords() {
	list, err := readPasswordList(bytes.NewReader(commonPasswordsGz), true)
	if err != nil {
		panic(err)
	}
	commonPasswords = list
}

func loadPasswordFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readPasswordList(f, strings.HasSuffix(path, ".gz"))
}

func (v *CommonPasswordValidator) list() map[string]struct{} {
	if v.ListPath != "" {
		v.once.Do(func() {
			list, err := loadPasswordFile(v.ListPath)
			if err != nil {
				utils.LogIfDevf("[Password] common password list %s: %v, using built-in list", v.ListPath, err)
				return
			}
			v.passwords = list
		})
		if v.passwords != nil {
			return v.passwords
		}
	}
	commonOnce.Do(loadCommonPasswords)
	return commonPasswords
}

func (v *CommonPasswordValidator) Validate(password string, _ *models.User) *Violation {
	if _, ok := v.list()[strings.ToLower(strings.TrimSpace(password))]; !ok {
		return nil
	}
	return &Violation{Code: CodeTooCommon, Message: "This password is too common."}
}

func (v *CommonPasswordValidator) HelpText() string {
	return "Your password can't be a commonly used password."
}

// NumericValidator 纯数字
type NumericValidator struct{}

func (v *NumericValidator) Validate(password string, _ *models.User) *Violation {
	if password == "" {
		return nil
	}
	for _, r := range password {
		if r < '0' || r > '9' {
			return nil
		}
	}
	return &Violation{Code: CodeEntirelyNumeric, Message: "This password is entirely numeric."}
}

func (v *NumericValidator) HelpText() string {
	return "Your password can't be entirely numeric."
}

// SimilarityValidator 与用户属性过于相似
type SimilarityValidator struct {
	MaxSimilarity float64
}

func (v *SimilarityValidator) max() float64 {
	if v.MaxSimilarity < 0.1 {
		return 0.7
	}
	return v.MaxSimilarity
}

// attributes 参与比较的用户属性及其展示名
func attributes(user *models.User) [][2]string {
	if user == nil {
		return nil
	}
	return [][2]string{{user.Email, "email address"}}
}

func (v *SimilarityValidator) Validate(password string, user *models.User) *Violation {
	password = strings.ToLower(password)
	for _, attr := range attributes(user) {
		value := strings.ToLower(attr[0])
		if value == "" {
			continue
		}
		parts := append(nonWordPattern.Split(value, -1), value)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(password, v.max(), part) {
				continue
			}
			if quickRatio(password, part) >= v.max() {
				return &Violation{
					Code:    CodeTooSimilar,
					Message: fmt.Sprintf("The password is too similar to the %s.", attr[1]),
					Params:  map[string]interface{}{"Field": attr[1]},
				}
			}
		}
	}
	return nil
}

func (v *SimilarityValidator) HelpText() string {
	return "Your password can't be too similar to your other personal information."
}

// exceedsLengthRatio 密码远长于属性值时跳过比较
func exceedsLengthRatio(password string, maxSimilarity float64, value string) bool {
	pwdLen := utf8.RuneCountInString(password)
	valueLen := utf8.RuneCountInString(value)
	bound := maxSimilarity / 2 * float64(pwdLen)
	return pwdLen >= 10*valueLen && float64(valueLen) < bound
}

// quickRatio 字符级 SequenceMatcher 相似度上界
func quickRatio(a, b string) float64 {
	m := difflib.NewMatcher(chars(a), chars(b))
	return m.QuickRatio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
