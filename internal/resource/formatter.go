package resource

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// DefaultDecimals 是未配置精度时使用的小数位数。
const DefaultDecimals = 8

// MaxDecimals 是接受的最大精度，超出范围的精度被忽略。
const MaxDecimals = 36

// maxAmountDigits 限制金额字符串的长度，u128 最多 39 位。
const maxAmountDigits = 80

// ValidDecimals 判断精度是否在 [0, MaxDecimals] 范围内。
func ValidDecimals(d int) bool {
	return d >= 0 && d <= MaxDecimals
}

// Formatter 把资源列表转换为文本。
type Formatter struct {
	// Decimals 按币种类型配置精度。键可以是完整类型，也可以是类型中的片段。
	Decimals map[string]int
	// DefaultDecimals 为 0 时使用 DefaultDecimals。
	DefaultDecimals int
}

// NewFormatter 创建格式化器。
func NewFormatter(decimals map[string]int, defaultDecimals int) *Formatter {
	return &Formatter{Decimals: decimals, DefaultDecimals: defaultDecimals}
}

// Format 每条资源输出一个文本块，块之间以空行分隔。
func (f *Formatter) Format(records []Record) string {
	blocks := make([]string, 0, len(records))
	for _, record := range records {
		blocks = append(blocks, f.formatRecord(record))
	}
	return strings.Join(blocks, "\n\n")
}

func (f *Formatter) formatRecord(record Record) string {
	var builder strings.Builder
	builder.WriteString("type: ")
	builder.WriteString(record.Type)
	if !strings.Contains(record.Type, "coin") {
		return builder.String()
	}
	coin, ok := record.Data["coin"].(map[string]any)
	if !ok {
		return builder.String()
	}
	builder.WriteString("\nname: ")
	builder.WriteString(stringify(coin["name"]))
	builder.WriteString("\namount: ")
	builder.WriteString(scaleAmount(coin["value"], f.decimalsFor(record.Type, coin)))
	return builder.String()
}

func (f *Formatter) decimalsFor(coinType string, coin map[string]any) int {
	if f != nil && len(f.Decimals) > 0 {
		if d, ok := f.Decimals[coinType]; ok && ValidDecimals(d) {
			return d
		}
		keys := make([]string, 0, len(f.Decimals))
		for key := range f.Decimals {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if d := f.Decimals[key]; key != "" && strings.Contains(coinType, key) && ValidDecimals(d) {
				return d
			}
		}
	}
	if d, ok := toInt(coin["decimals"]); ok && ValidDecimals(d) {
		return d
	}
	if f != nil && f.DefaultDecimals > 0 && ValidDecimals(f.DefaultDecimals) {
		return f.DefaultDecimals
	}
	return DefaultDecimals
}

// scaleAmount 计算 value / 10^decimals，并输出最短的十进制表示。
func scaleAmount(value any, decimals int) string {
	amount, ok := toRat(value)
	if !ok {
		return stringify(value)
	}
	if !ValidDecimals(decimals) {
		decimals = DefaultDecimals
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	amount.Quo(amount, new(big.Rat).SetInt(scale))

	text := amount.FloatString(decimals + 2)
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, ".")
	}
	if text == "-0" {
		text = "0"
	}
	return text
}

func toRat(value any) (*big.Rat, bool) {
	switch v := value.(type) {
	case string:
		return parseAmount(v)
	case json.Number:
		return parseAmount(v.String())
	case float64:
		r := new(big.Rat)
		if r.SetFloat64(v) == nil {
			return nil, false
		}
		return r, true
	case int:
		return new(big.Rat).SetInt64(int64(v)), true
	case int64:
		return new(big.Rat).SetInt64(v), true
	case uint64:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(v)), true
	case *big.Int:
		if v == nil {
			return nil, false
		}
		return new(big.Rat).SetInt(v), true
	default:
		return nil, false
	}
}

// parseAmount 只接受普通十进制写法，拒绝指数形式与超长输入。
func parseAmount(text string) (*big.Rat, bool) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxAmountDigits || strings.ContainsAny(text, "eE/") {
		return nil, false
	}
	return new(big.Rat).SetString(text)
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// FormatTransactions 输出交易调用的入口函数，以及可选的类型参数与实参。
func FormatTransactions(txs []Transaction) string {
	blocks := make([]string, 0, len(txs))
	for _, tx := range txs {
		function := strings.TrimSpace(tx.Payload.Function)
		if function == "" {
			continue
		}
		var builder strings.Builder
		parts := strings.SplitN(function, "::", 3)
		if len(parts) == 3 {
			fmt.Fprintf(&builder, "address: %s\nmodule: %s\nfunction: %s", parts[0], parts[1], parts[2])
		} else {
			fmt.Fprintf(&builder, "function: %s", function)
		}
		if len(tx.Payload.TypeArguments) > 0 {
			fmt.Fprintf(&builder, "\ntype_arguments: %s", strings.Join(tx.Payload.TypeArguments, ", "))
		}
		if len(tx.Payload.Arguments) > 0 {
			args := make([]string, 0, len(tx.Payload.Arguments))
			for _, arg := range tx.Payload.Arguments {
				args = append(args, stringify(arg))
			}
			fmt.Fprintf(&builder, "\narguments: %s", strings.Join(args, ", "))
		}
		blocks = append(blocks, builder.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatModules 每个暴露函数输出一行 module::function::(params)。
func FormatModules(modules []Module) string {
	lines := make([]string, 0, len(modules))
	for _, module := range modules {
		if module.ABI == nil {
			continue
		}
		for _, fn := range module.ABI.ExposedFunctions {
			lines = append(lines, fmt.Sprintf("%s::%s::(%s)", module.ABI.Name, fn.Name, strings.Join(fn.Params, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatTokens 每个 NFT 输出名称、所属集合、创建者与数量，块之间以空行分隔。
func FormatTokens(tokens []Token) string {
	blocks := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lines := []string{"name: " + token.Name}
		if token.CollectionName != "" {
			lines = append(lines, "collection: "+token.CollectionName)
		}
		if token.CreatorAddress != "" {
			lines = append(lines, "creator: "+token.CreatorAddress)
		}
		if amount := stringify(token.Amount); amount != "" {
			lines = append(lines, "amount: "+amount)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
