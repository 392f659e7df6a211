package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard_builder/sanitize"
)

func TestNewLLM(t *testing.T) {
	_, err := NewLLM(nil)
	assert.Error(t, err)

	_, err = NewLLM(&LLMSettings{Provider: "bogus"})
	assert.ErrorContains(t, err, "not supported")

	_, err = NewLLM(&LLMSettings{Provider: ProviderOpenAI, Model: "gpt-4.1"})
	assert.ErrorContains(t, err, "api key")

	_, err = NewLLM(&LLMSettings{Provider: ProviderDeepSeek, Model: "deepseek-chat", APIKey: "k"})
	assert.ErrorContains(t, err, "base_url")

	c, err := NewLLM(&LLMSettings{Provider: ProviderOpenAI, Model: "gpt-4.1", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, c)
}

func TestMockLLM_ProducesValidModule(t *testing.T) {
	raw, err := MockLLM{}.Complete(context.Background(), BuildModulePrompt("Burn <rate>", "", "", true))
	require.NoError(t, err)

	payload, err := ParseResponse(raw)
	require.NoError(t, err)
	mod, err := ValidateModule(payload)
	require.NoError(t, err)

	assert.Equal(t, "Burn <rate>", mod.Title)
	assert.Contains(t, mod.HTML, "Burn &lt;rate&gt;")
	assert.Contains(t, sanitize.ModuleHTML(mod.HTML), `width="80" height="20"`, "chart geometry survives the allow-list")
}
