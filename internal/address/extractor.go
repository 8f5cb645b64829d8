package address

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// selfReferences 是指代当前用户账户的词。
var selfReferences = map[string]struct{}{
	"i":      {},
	"I":      {},
	"user":   {},
	"my":     {},
	"me":     {},
	"self":   {},
	"wallet": {},
}

// Validator 决定一个包含 "0x" 的片段是否被视为地址。
type Validator func(token string) bool

// Extractor 从文本中提取地址。
type Extractor struct {
	validate Validator
}

// Option 定义 Extractor 的可选配置。
type Option func(*Extractor)

// WithValidator 配置地址校验，未通过校验的片段会被丢弃。
func WithValidator(v Validator) Option {
	return func(e *Extractor) {
		e.validate = v
	}
}

// NewExtractor 创建地址提取器。默认不做任何校验。
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Extract 按出现顺序返回文本中的地址，不去重。
func (e *Extractor) Extract(text, defaultAddr string) []string {
	tokens := strings.Fields(text)
	found := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.Contains(token, "0x") {
			if e != nil && e.validate != nil && !e.validate(token) {
				continue
			}
			found = append(found, token)
			continue
		}
		if _, ok := selfReferences[token]; ok {
			found = append(found, defaultAddr)
		}
	}
	return found
}

// First 返回第一个地址；没有匹配时返回默认地址。
func (e *Extractor) First(text, defaultAddr string) string {
	if found := e.Extract(text, defaultAddr); len(found) > 0 {
		return found[0]
	}
	return defaultAddr
}

// Extract 使用不带校验的提取器。
func Extract(text, defaultAddr string) []string {
	return NewExtractor().Extract(text, defaultAddr)
}

// AptosValidator 要求 0x 前缀加 1 到 64 位十六进制字符。
func AptosValidator(token string) bool {
	if !strings.HasPrefix(token, "0x") {
		return false
	}
	digits := token[2:]
	if len(digits) == 0 || len(digits) > 64 {
		return false
	}
	for _, r := range digits {
		if !isHex(r) {
			return false
		}
	}
	return true
}

// EVMValidator 使用 go-ethereum 的地址格式校验。
func EVMValidator(token string) bool {
	return common.IsHexAddress(token)
}

// ValidatorByName 根据配置名称返回校验器，空值或 "none" 表示不校验。
func ValidatorByName(name string) (Validator, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, true
	case "aptos":
		return AptosValidator, true
	case "evm":
		return EVMValidator, true
	default:
		return nil, false
	}
}

func isHex(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}
