package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "MoveGPT/internal/errors"
)

func TestParsePlaceholders(t *testing.T) {
	tpl := Parse("t", "{history}|{context}|{prompt}|{history}")
	assert.Equal(t, []string{"history", "context", "prompt"}, tpl.Placeholders())
	assert.Equal(t, []string{"history", "context", "prompt"}, MoveTemplate.Placeholders())
	assert.Equal(t, []string{"history", "context", "prompt"}, ResourceTemplate.Placeholders())
}

func TestAssemble(t *testing.T) {
	out, err := MoveTemplate.AssembleTurn("Human: hi\nMoveGPT: hello", "Context:\nmodules", "write a coin")
	require.NoError(t, err)
	assert.Contains(t, out, "ConversationHistory: Human: hi\nMoveGPT: hello\n---")
	assert.Contains(t, out, "MemoryContext: Context:\nmodules\n---")
	assert.Contains(t, out, "Human: write a coin\nmoveGPT:")
}

func TestAssembleMissingPlaceholder(t *testing.T) {
	_, err := MoveTemplate.Assemble(map[string]string{"history": "", "prompt": "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplate))
	assert.Equal(t, xerrors.CodeTemplate, xerrors.CodeOf(err))

	e, ok := xerrors.From(err)
	require.True(t, ok)
	assert.Equal(t, "context", e.Metadata()["placeholder"])
}

func TestAssembleEmptyValuesAllowed(t *testing.T) {
	out, err := Parse("t", "[{history}]").Assemble(map[string]string{"history": ""})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRoundTrip(t *testing.T) {
	values := map[string]string{
		"history": "Human: hi\nMoveGPT: hello",
		"context": "Context:\nmodule 0x1::coin",
		"prompt":  "how do I mint?",
	}
	for _, tpl := range []*Template{MoveTemplate, ResourceTemplate} {
		rendered, err := tpl.Assemble(values)
		require.NoError(t, err)
		got, err := tpl.Extract(rendered)
		require.NoError(t, err)
		assert.Equal(t, values, got, tpl.Name())
	}
}

func TestExtractMismatch(t *testing.T) {
	_, err := MoveTemplate.Extract("nothing like the template")
	assert.ErrorIs(t, err, ErrTemplate)

	_, err = Parse("t", "{a}-{a}").Extract("x-y")
	assert.ErrorIs(t, err, ErrTemplate)
}

func TestLoadTemplates(t *testing.T) {
	set, err := LoadTemplates("")
	require.NoError(t, err)
	assert.Same(t, MoveTemplate, set.Move)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resource: |\n  R {history} {context} {prompt}\n"), 0o600))

	set, err = LoadTemplates(path)
	require.NoError(t, err)
	assert.Same(t, MoveTemplate, set.Move)
	out, err := set.Resource.AssembleTurn("h", "c", "p")
	require.NoError(t, err)
	assert.Equal(t, "R h c p\n", out)

	_, err = LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
