package conversation

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Window 限制渲染进提示词的历史长度。MaxTokens 为 0 表示不限制。
type Window struct {
	MaxTokens int
	Counter   TokenCounter
}

// TokenCounter 估算一段文本占用的预算。
type TokenCounter interface {
	Count(text string) int
}

// CharCounter 按字符（rune）计数。
type CharCounter struct{}

func (CharCounter) Count(text string) int { return utf8.RuneCountInString(text) }

// WordCounter 按空白分词计数。
type WordCounter struct{}

func (WordCounter) Count(text string) int { return len(strings.Fields(text)) }

// TikTokenCounter 使用 OpenAI 的 BPE 编码计数。
type TikTokenCounter struct {
	enc *tiktoken.Tiktoken
}

var (
	encodingMu    sync.Mutex
	encodingCache = map[string]*tiktoken.Tiktoken{}
)

// NewTikTokenCounter 加载指定编码，空字符串表示 cl100k_base。首次加载需要下载词表。
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if enc, ok := encodingCache[encoding]; ok {
		return &TikTokenCounter{enc: enc}, nil
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	encodingCache[encoding] = enc
	return &TikTokenCounter{enc: enc}, nil
}

func (c *TikTokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// CounterByName 根据配置名称构造计数器，支持 chars、words、tiktoken。
func CounterByName(name string) (TokenCounter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "chars", "char":
		return CharCounter{}, nil
	case "words", "word":
		return WordCounter{}, nil
	case "tiktoken", "tokens":
		return NewTikTokenCounter("")
	default:
		return nil, fmt.Errorf("unknown history counter %q", name)
	}
}
