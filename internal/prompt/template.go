package prompt

import (
	"fmt"
	"regexp"
	"strings"

	xerrors "MoveGPT/internal/errors"
)

// 模板占位符名称。
const (
	KeyHistory = "history"
	KeyContext = "context"
	KeyPrompt  = "prompt"
)

// ErrTemplate 用于 errors.Is 判断模板错误。
var ErrTemplate = xerrors.New(xerrors.CodeTemplate, "")

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type segment struct {
	literal     string
	placeholder string
}

// Template 是解析后的提示词模板。
type Template struct {
	name         string
	text         string
	segments     []segment
	placeholders []string
}

// Parse 解析模板文本，收集其中的占位符。
func Parse(name, text string) *Template {
	t := &Template{name: name, text: text}
	seen := make(map[string]struct{})
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			t.segments = append(t.segments, segment{literal: text[last:loc[0]]})
		}
		key := text[loc[2]:loc[3]]
		t.segments = append(t.segments, segment{placeholder: key})
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			t.placeholders = append(t.placeholders, key)
		}
		last = loc[1]
	}
	if last < len(text) {
		t.segments = append(t.segments, segment{literal: text[last:]})
	}
	return t
}

// Name 返回模板名称。
func (t *Template) Name() string { return t.name }

// Text 返回原始模板文本。
func (t *Template) Text() string { return t.text }

// Placeholders 按首次出现的顺序返回占位符。
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// Assemble 用给定的值填充全部占位符。缺少任一占位符时返回模板错误。
func (t *Template) Assemble(values map[string]string) (string, error) {
	if t == nil {
		return "", xerrors.New(xerrors.CodeTemplate, "模板未初始化")
	}
	for _, key := range t.placeholders {
		if _, ok := values[key]; !ok {
			return "", xerrors.New(xerrors.CodeTemplate,
				fmt.Sprintf("模板 %s 缺少占位符 %s", t.name, key),
				xerrors.WithMetadata("template", t.name),
				xerrors.WithMetadata("placeholder", key))
		}
	}
	var builder strings.Builder
	for _, seg := range t.segments {
		if seg.placeholder != "" {
			builder.WriteString(values[seg.placeholder])
			continue
		}
		builder.WriteString(seg.literal)
	}
	return builder.String(), nil
}

// AssembleTurn 以一轮对话的三个输入填充模板。
func (t *Template) AssembleTurn(history, context, question string) (string, error) {
	return t.Assemble(map[string]string{
		KeyHistory: history,
		KeyContext: context,
		KeyPrompt:  question,
	})
}

// Extract 从渲染结果中反解出占位符的取值。值中不能包含紧随其后的分隔文本。
func (t *Template) Extract(rendered string) (map[string]string, error) {
	var pattern strings.Builder
	pattern.WriteString(`(?s)^`)
	order := make([]string, 0, len(t.segments))
	for _, seg := range t.segments {
		if seg.placeholder == "" {
			pattern.WriteString(regexp.QuoteMeta(seg.literal))
			continue
		}
		pattern.WriteString(`(.*?)`)
		order = append(order, seg.placeholder)
	}
	pattern.WriteString(`$`)

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTemplate, err, "编译模板匹配表达式失败")
	}
	match := re.FindStringSubmatch(rendered)
	if match == nil {
		return nil, xerrors.New(xerrors.CodeTemplate,
			fmt.Sprintf("文本与模板 %s 不匹配", t.name),
			xerrors.WithMetadata("template", t.name))
	}
	values := make(map[string]string, len(t.placeholders))
	for i, key := range order {
		value := match[i+1]
		if prev, ok := values[key]; ok && prev != value {
			return nil, xerrors.New(xerrors.CodeTemplate,
				fmt.Sprintf("占位符 %s 的取值不一致", key),
				xerrors.WithMetadata("placeholder", key))
		}
		values[key] = value
	}
	return values, nil
}
