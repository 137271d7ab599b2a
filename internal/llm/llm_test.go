package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"vacciassist/internal/domain"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	reply    *llms.ContentResponse
	err      error
	wait     bool
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func text(m llms.MessageContent) string {
	return m.Parts[0].(llms.TextContent).Text
}

func TestCompleteSendsSystemAndQuestion(t *testing.T) {
	model := &fakeModel{reply: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Two doses."}}}}
	c := NewCompleter(model, 0.1, 0)

	out, err := c.Complete(context.Background(), "Use only: {context}", "Vaccine X needs two doses.", "How many doses?")
	require.NoError(t, err)
	assert.Equal(t, "Two doses.", out)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, "Use only: Vaccine X needs two doses.", text(model.messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, "How many doses?", text(model.messages[1]))
	assert.InDelta(t, 0.1, model.opts.Temperature, 1e-9)
}

func TestCompleteBackendError(t *testing.T) {
	model := &fakeModel{err: errors.New("429 rate limited")}

	_, err := NewCompleter(model, 0, 0).Complete(context.Background(), "p", "", "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompletion))
}

func TestCompleteNoChoices(t *testing.T) {
	model := &fakeModel{reply: &llms.ContentResponse{}}

	_, err := NewCompleter(model, 0, 0).Complete(context.Background(), "p", "", "q")
	assert.True(t, errors.Is(err, domain.ErrCompletion))
}

func TestCompleteTimeout(t *testing.T) {
	model := &fakeModel{wait: true}

	_, err := NewCompleter(model, 0, 10*time.Millisecond).Complete(context.Background(), "p", "", "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompletion))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewModelUnknownProvider(t *testing.T) {
	_, err := NewModel(Config{Provider: "bard"})
	assert.Error(t, err)
	_, err = NewEmbeddingClient(Config{Provider: "bard"})
	assert.Error(t, err)
}

func TestNewModelOllama(t *testing.T) {
	m, err := NewModel(Config{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestNewModelOpenAIWithKey(t *testing.T) {
	m, err := NewModel(Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
