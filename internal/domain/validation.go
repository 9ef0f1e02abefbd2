package domain

import (
	"net/mail"
	"strings"
)

// 验证常量
const (
	// RFC 5322 邮箱地址长度限制
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度

	// 密码长度限制（bcrypt 只处理前 72 字节）
	MinPasswordLength = 8
	MaxPasswordLength = 72

	// 自定义域名最短长度
	MinDomainNameLength = 3
)

// NormalizeEmail 去除首尾空白并转为小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitEmail 拆分邮箱为本地部分与域名
func SplitEmail(email string) (local, domain string, ok bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return email[:at], email[at+1:], true
}

// ValidateEmail 校验邮箱格式，本地部分允许子地址（+）与点号
func ValidateEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}

	localPart, domain, ok := SplitEmail(email)
	if !ok || len(localPart) > MaxLocalPartLength {
		return false
	}

	// 检查不允许的特殊字符 ($, 空格等)
	for _, r := range localPart {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' || r == '+') {
			return false
		}
	}
	if strings.HasPrefix(localPart, ".") || strings.HasSuffix(localPart, ".") || strings.Contains(localPart, "..") {
		return false
	}

	if !ValidateDomain(domain) {
		return false
	}

	// 使用标准库进行最终校验
	_, err := mail.ParseAddress(email)
	return err == nil
}

// ValidateDomain 校验域名格式
func ValidateDomain(domain string) bool {
	if domain == "" || len(domain) > MaxDomainLength {
		return false
	}

	// 必须包含点
	if !strings.Contains(domain, ".") {
		return false
	}

	// 不能以点开头或结尾
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		// 只允许字母、数字和破折号
		for _, r := range label {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-') {
				return false
			}
		}
	}

	return true
}

// ValidatePassword 校验密码长度
func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}
