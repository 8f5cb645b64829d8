package resource

// Record 是账户下的一条链上资源。
type Record struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Transaction 是账户最近提交的交易中与提示词相关的部分。
type Transaction struct {
	Hash    string  `json:"hash"`
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Payload 描述入口函数调用。
type Payload struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// Module 是账户下发布的 Move 模块。
type Module struct {
	ABI *ModuleABI `json:"abi"`
}

// ModuleABI 只保留对外暴露的函数签名。
type ModuleABI struct {
	Address          string     `json:"address"`
	Name             string     `json:"name"`
	ExposedFunctions []Function `json:"exposed_functions"`
}

// Function 是模块暴露的函数。
type Function struct {
	Name    string   `json:"name"`
	IsEntry bool     `json:"is_entry"`
	Params  []string `json:"params"`
}

// Token 是账户持有的一个 NFT。
type Token struct {
	Name           string `json:"name"`
	CollectionName string `json:"collection_name"`
	CreatorAddress string `json:"creator_address"`
	OwnerAddress   string `json:"owner_address"`
	Amount         any    `json:"amount"`
}
