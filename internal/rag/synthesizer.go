package rag

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// DefaultChatModel is the generation model used unless configured otherwise.
const DefaultChatModel = openai.ChatModelGPT4o

// promptTemplate instructs the model to answer strictly from the supplied
// context and to admit when the context is insufficient.
const promptTemplate = `You are a helpful assistant answering questions about tabletop role-playing game (TTRPG) rulebooks.
Answer the following question using only the context provided. If the context does not contain enough information to answer, say you don't know.

Context:
%s

Question: %s

Answer:`

// Generator is the opaque remote generation function.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer formats the fixed prompt from question and context and
// forwards it to the generator. The generator's output is returned
// verbatim: no retries, no streaming.
type Synthesizer struct {
	gen Generator
}

func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Answer builds the prompt and runs the generation call. Failures wrap
// ErrGeneration so the request boundary can report a service error rather
// than a silent empty answer.
func (s *Synthesizer) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, contextBlock, question)

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return text, nil
}

// OpenAIGenerator runs generation through an OpenAI chat completion.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator wraps an OpenAI client for answer generation. An empty
// model selects DefaultChatModel.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
