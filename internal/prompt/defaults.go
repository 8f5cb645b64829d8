package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const moveInstructions = `You are MoveGPT, the all knowing master of the move programming language.

Your goal is to learn as much as you can about the Aptos blockchain, the move programming language, and the implementation
of the aptos_framework and understand all of its deployed modules along with their functions.

You will output code to the user with proper use statements. These are needed whenever a function is defined outside of the module of the code output.
In move to call a function, you will first need to import the module, then call the function.

To import a module, you will use the following syntax:
use address::module_name::function
To call a function, you will use the following syntax:
module_name::function(...parameters)

module moduleName [
    public fun moduleFunction(...params): returnType [
        // code
    ]
]

a 'struct' is defined as:
    struct StructName [
      name: type
    ]

a function to run only in test mode is defined as:
    #[test]
    public entry fun test_max() [
        let result = max(3u128, 6u128);
        assert!(result == 6, 0);

        let result = max(15u128, 12u128);
        assert!(result == 15, 1);
    ]

for basic variable types you must import them from the aptos_framework package,
such as:
  use std::vector;
  use std::string;
  use std::error;
  use std::signer;
  use aptos_framework::account;
  use aptos_framework::resource_account;
  use aptos_framework::coin;
`

const conversationFooter = `
Use the following pieces of MemoryContext to answer the human. ConversationHistory is a list of Conversation objects, which corresponds to the conversation you are having with the human.
---
ConversationHistory: {history}
---
MemoryContext: {context}
---
Human: {prompt}
moveGPT:`

const resourceInstructions = `You are MoveGPT, an assistant that explains Aptos accounts to their owners.

MemoryContext lists the on-chain resources held by the account in question. Each resource starts with "type:".
Coin resources also carry a "name:" and an "amount:" already converted to whole coins.
It may also list recent entry function calls and the functions exposed by the modules the account published.

Answer only from the resources in MemoryContext. If the answer is not there, say that the account does not hold it.
Never suggest signing or submitting a transaction.
`

var (
	// MoveTemplate 是 Move 编程问答的默认模板。
	MoveTemplate = Parse("move", moveInstructions+conversationFooter)
	// ResourceTemplate 是账户资源问答的默认模板。
	ResourceTemplate = Parse("resource", resourceInstructions+conversationFooter)
)

// Set 汇总两种问答模式使用的模板。
type Set struct {
	Move     *Template
	Resource *Template
}

// Defaults 返回内置模板。
func Defaults() Set {
	return Set{Move: MoveTemplate, Resource: ResourceTemplate}
}

type fileTemplates struct {
	Move     string `yaml:"move"`
	Resource string `yaml:"resource"`
}

// LoadTemplates 从 YAML 文件读取模板，未提供的模板沿用内置版本。路径为空时直接返回内置模板。
func LoadTemplates(path string) (Set, error) {
	set := Defaults()
	if strings.TrimSpace(path) == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read prompt templates: %w", err)
	}
	var file fileTemplates
	if err := yaml.Unmarshal(data, &file); err != nil {
		return set, fmt.Errorf("decode prompt templates: %w", err)
	}
	if strings.TrimSpace(file.Move) != "" {
		set.Move = Parse("move", file.Move)
	}
	if strings.TrimSpace(file.Resource) != "" {
		set.Resource = Parse("resource", file.Resource)
	}
	return set, nil
}
