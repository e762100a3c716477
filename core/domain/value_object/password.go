package value_object

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password 管理员密码，配置里可以是明文或 bcrypt 哈希
type Password struct {
	value string
}

// NewPassword 配置值为空表示没有密码
func NewPassword(configured string) Password {
	return Password{value: configured}
}

// HashPassword 生成 bcrypt 哈希，用于写进配置
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Set 是否配置了密码
func (p Password) Set() bool {
	return p.value != ""
}

// Hashed 是否为 bcrypt 哈希
func (p Password) Hashed() bool {
	return strings.HasPrefix(p.value, "$2a$") || strings.HasPrefix(p.value, "$2b$") || strings.HasPrefix(p.value, "$2y$")
}

// Verify 验证密码，未配置时总是失败
func (p Password) Verify(plain string) bool {
	if !p.Set() {
		return false
	}
	if p.Hashed() {
		return bcrypt.CompareHashAndPassword([]byte(p.value), []byte(plain)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(p.value), []byte(plain)) == 1
}
