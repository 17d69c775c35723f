package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderOpenAI, config.Provider)
	assert.Equal(t, "gpt-4o-mini", config.GetModel(TierLite))
	assert.Equal(t, "gpt-4o-mini", config.GetModel(TierStandard))
	assert.Equal(t, "gpt-4o", config.GetModel(TierAdvanced))
}

func TestDefaultGeminiConfig(t *testing.T) {
	config := DefaultGeminiConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
}

func TestConfigFor(t *testing.T) {
	assert.Equal(t, ProviderGemini, ConfigFor(ProviderGemini).Provider)
	assert.Equal(t, ProviderOpenAI, ConfigFor(ProviderOpenAI).Provider)
	assert.Equal(t, ProviderOpenAI, ConfigFor("other").Provider)
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{
		Provider: ProviderOpenAI,
		Models:   map[ModelTier]string{},
	}

	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	config.BaseURL = "http://gateway.local/v1"
	newConfig := config.WithModel(TierStandard, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gpt-4o-mini", config.GetModel(TierStandard))

	assert.Equal(t, "custom-model", newConfig.GetModel(TierStandard))
	assert.Equal(t, "gpt-4o", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, config.BaseURL, newConfig.BaseURL)
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{input: "openai", want: ProviderOpenAI},
		{input: " Gemini ", want: ProviderGemini},
		{input: "", want: ProviderOpenAI},
		{input: "anthropic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultOpenAIConfig(), "")
	assert.Error(t, err)

	_, err = NewClient(context.Background(), DefaultGeminiConfig(), "")
	assert.Error(t, err)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "other"}, "key")
	assert.Error(t, err)
}

func TestNewClient_OpenAI(t *testing.T) {
	client, err := NewClient(context.Background(), nil, "sk-test")
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "gpt-4o-mini", client.GetModel(TierStandard))
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{Text: "Subject: Chess"}

	resp, err := mock.Complete(context.Background(), Request{UserPrompt: "hello", MaxOutputTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Subject: Chess", resp.Text)
	require.Len(t, mock.Requests(), 1)
	assert.Equal(t, 300, mock.Requests()[0].MaxOutputTokens)

	mock.Err = errors.New("boom")
	_, err = mock.Complete(context.Background(), Request{})
	assert.EqualError(t, err, "boom")

	require.NoError(t, mock.Close())
	assert.True(t, mock.Closed())
}

func TestMockClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&MockClient{Text: "x"}).Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
