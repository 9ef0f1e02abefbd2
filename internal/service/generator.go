package service

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"k9aliases/backend/internal/domain"
)

const (
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Generator 生成别名地址：dotted.user+Description<sep><random>@domain
type Generator struct {
	intn func(n int) int
}

// NewGenerator 创建使用 crypto/rand 的生成器
func NewGenerator() *Generator {
	return &Generator{intn: cryptoIntn}
}

// GenerateOptions 生成参数
type GenerateOptions struct {
	Email       string
	Description string
	Length      int
	Separator   string
	Case        domain.AliasCase
}

// Alias 按给定身份与描述生成一个别名
func (g *Generator) Alias(opts GenerateOptions) (string, bool) {
	local, host, ok := domain.SplitEmail(opts.Email)
	if !ok {
		return "", false
	}
	length := opts.Length
	if length <= 0 {
		length = domain.DefaultAliasLength
	}
	sep := opts.Separator
	if !domain.ValidAliasSeparator(sep) {
		sep = domain.DefaultAliasSep
	}

	var b strings.Builder
	b.WriteString(g.addDots(local))
	b.WriteByte('+')
	b.WriteString(sanitizeDescription(opts.Description))
	b.WriteString(sep)
	b.WriteString(g.randomString(length, opts.Case))
	b.WriteByte('@')
	b.WriteString(host)
	return b.String(), true
}

// addDots 从第二个字符起以 1/2 概率插入点号，至少插入一个
func (g *Generator) addDots(username string) string {
	if len(username) <= 1 {
		return username
	}

	var b strings.Builder
	b.WriteByte(username[0])
	inserted := 0
	for i := 1; i < len(username); i++ {
		if g.intn(2) == 1 {
			b.WriteByte('.')
			inserted++
		}
		b.WriteByte(username[i])
	}
	if inserted > 0 {
		return b.String()
	}

	pos := g.intn(len(username)-1) + 1
	return username[:pos] + "." + username[pos:]
}

func (g *Generator) randomString(length int, c domain.AliasCase) string {
	var alphabet string
	switch c {
	case domain.AliasCaseLowercase:
		alphabet = lowerAlphabet
	case domain.AliasCaseUppercase:
		alphabet = upperAlphabet
	default:
		alphabet = lowerAlphabet + upperAlphabet
	}

	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphabet[g.intn(len(alphabet))]
	}
	return string(buf)
}

// sanitizeDescription 去掉特殊字符并转为驼峰单词，空结果返回 "Alias"
func sanitizeDescription(description string) string {
	cleaned := nonAlphanumeric.ReplaceAllString(description, "")

	var b strings.Builder
	for _, word := range strings.Fields(cleaned) {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(strings.ToLower(word[1:]))
	}
	if b.Len() == 0 {
		return "Alias"
	}
	return b.String()
}

func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return int(v.Int64())
}
