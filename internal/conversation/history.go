package conversation

import (
	"strings"
)

// Role 标识发言方。
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Label 返回渲染历史时使用的前缀。
func (r Role) Label() string {
	if r == RoleAssistant {
		return "MoveGPT"
	}
	return "Human"
}

// Utterance 是一条不可变的发言。
type Utterance struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func (u Utterance) String() string {
	return u.Role.Label() + ": " + u.Text
}

// History 是按插入顺序保存的对话记录。History 本身不加锁，由 Session 串行化访问。
type History struct {
	utterances []Utterance
}

// Append 追加一条发言。
func (h *History) Append(role Role, text string) {
	h.utterances = append(h.utterances, Utterance{Role: role, Text: text})
}

// Len 返回发言条数。
func (h *History) Len() int {
	return len(h.utterances)
}

// Utterances 返回历史的副本。
func (h *History) Utterances() []Utterance {
	out := make([]Utterance, len(h.utterances))
	copy(out, h.utterances)
	return out
}

// Render 把全部历史渲染为以换行分隔的文本。
func (h *History) Render() string {
	return render(h.utterances)
}

// RenderWindow 在预算内渲染最近的历史，超出预算时从最早的发言开始丢弃。
func (h *History) RenderWindow(w Window) string {
	if w.MaxTokens <= 0 {
		return h.Render()
	}
	counter := w.Counter
	if counter == nil {
		counter = CharCounter{}
	}

	start := 0
	total := 0
	lines := make([]int, len(h.utterances))
	for i, u := range h.utterances {
		lines[i] = counter.Count(u.String())
		total += lines[i]
	}
	// 行间换行符计入预算。
	total += max(len(h.utterances)-1, 0) * counter.Count("\n")
	for start < len(h.utterances) && total > w.MaxTokens {
		total -= lines[start]
		if start < len(h.utterances)-1 {
			total -= counter.Count("\n")
		}
		start++
	}
	return render(h.utterances[start:])
}

func render(utterances []Utterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		parts = append(parts, u.String())
	}
	return strings.Join(parts, "\n")
}
