package app

import (
	"strings"

	"knowledge-assistant/internal/model"
)

// NotInKnowledgeBase is the reply the generator is told to give when the
// context does not hold the answer.
const NotInKnowledgeBase = "The requested information is not available in the current knowledge base."

const promptHeader = `Role: Enterprise SOP & Policy Knowledge Assistant

You help employees find information in internal enterprise documents such as
standard operating procedures, HR policies, technical manuals, safety
guidelines and compliance documents. The excerpts below were retrieved by
semantic search; answer strictly from them.

Instructions:

1. Use ONLY the information available in the context section.
2. Do NOT fabricate, assume, or introduce external knowledge.
3. If the answer is not clearly available in the context, respond with:
   "` + NotInKnowledgeBase + `"
4. Keep a professional and formal tone.
5. Be concise and structured; use bullet points where they help.
6. Do not mention AI, model limitations, or system internals.
`

func buildPrompt(question string, chunks []model.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\nContext:\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}
