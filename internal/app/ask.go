package app

import (
	"context"
	"strings"

	"neuralchat/internal/index"
)

// fallbackPhrase is the exact wording the model is instructed to emit when
// the retrieved context cannot answer the question.
const fallbackPhrase = "answer not available in context"

const promptPreamble = `Your alias is NeuralChat. Your task is to provide a thorough response based on the given context, ensuring all relevant details are included.
If the requested information isn't available, simply state, "` + fallbackPhrase + `," then answer based on your understanding, connecting with the context.
Don't provide incorrect information.`

// Ask answers a question over the current persisted index: retrieve the
// top-k most similar chunks, compose a grounded prompt and return the
// model's raw response. All failures come back as plain errors whose
// messages are already user-facing; the boundary serializes them as-is.
func (a *App) Ask(ctx context.Context, question string) (string, error) {
	results, err := a.store.Search(ctx, question, a.cfg.TopK)
	if err != nil {
		return "", err
	}
	return a.llm.Chat(ctx, buildPrompt(results, question))
}

// buildPrompt concatenates the retrieved chunks, in ranked order, as the
// context block of the grounding prompt.
func buildPrompt(results []index.Result, question string) string {
	var buf strings.Builder
	buf.WriteString(promptPreamble)
	buf.WriteString("\n\nContext:\n")
	for _, r := range results {
		buf.WriteString(r.Content)
		buf.WriteString("\n")
	}
	buf.WriteString("\nQuestion:\n")
	buf.WriteString(question)
	buf.WriteString("\n\nAnswer:\n")
	return buf.String()
}
