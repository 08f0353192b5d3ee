package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"assistant-backend/pkg/ai"
)

// MaxAnalysisChars bounds text-analysis input to keep prompts inside the
// model's context budget.
const MaxAnalysisChars = 8000

var documentBlockPattern = regexp.MustCompile(`(?s)---START OF DOCUMENT---\s*(.*?)\s*---END OF DOCUMENT---`)

func truncateForAnalysis(text string) string {
	if len(text) <= MaxAnalysisChars {
		return text
	}
	return cutRunes(text, MaxAnalysisChars) + "\n\n[Note: Text was truncated for processing]"
}

// SummarizeTool condenses text into a structured summary.
type SummarizeTool struct {
	llm ai.LanguageModel
}

func NewSummarizeTool(llm ai.LanguageModel) *SummarizeTool { return &SummarizeTool{llm: llm} }

func (t *SummarizeTool) Name() string { return "summarize_text" }

func (t *SummarizeTool) Description() string {
	return "Summarize text content into structured key points. Input is the FULL text " +
		"to summarize (articles, reports, uploaded documents), not a filename."
}

func (t *SummarizeTool) ReturnDirect() bool { return false }

func (t *SummarizeTool) Execute(ctx context.Context, userID, input string) (string, error) {
	prompt := fmt.Sprintf(`Analyze and summarize the following text in a clear, structured format.

Text to summarize:
%s

Provide a summary with this structure:

Main Topic:
[One sentence describing the overall subject]

Key Points:
- [Main point 1]
- [Main point 2]
- [Continue with important points - max 6 points]

Key Takeaways:
- [Important insight 1]
- [Important insight 2]

Keep it concise and focused on the most important information.`, truncateForAnalysis(input))

	summary, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("summarization failed")
		return "I encountered an error while summarizing the text. Please try again with shorter text.", nil
	}
	return strings.TrimSpace(summary), nil
}

// KeyPointsTool extracts the main topics from text.
type KeyPointsTool struct {
	llm ai.LanguageModel
}

func NewKeyPointsTool(llm ai.LanguageModel) *KeyPointsTool { return &KeyPointsTool{llm: llm} }

func (t *KeyPointsTool) Name() string { return "extract_key_points" }

func (t *KeyPointsTool) Description() string {
	return "Extract the main topics and key points from text content. Input is the full text."
}

func (t *KeyPointsTool) ReturnDirect() bool { return false }

func (t *KeyPointsTool) Execute(ctx context.Context, userID, input string) (string, error) {
	prompt := fmt.Sprintf(`Extract the main topics and key points from the following text.

Text:
%s

List the key points as short bullet lines, grouped by topic where that helps. No introduction, no conclusion.`, truncateForAnalysis(input))

	points, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("key point extraction failed")
		return "I encountered an error extracting key points. Please try again.", nil
	}
	return strings.TrimSpace(points), nil
}

// ExplainTool explains a concept in plain terms.
type ExplainTool struct {
	llm ai.LanguageModel
}

func NewExplainTool(llm ai.LanguageModel) *ExplainTool { return &ExplainTool{llm: llm} }

func (t *ExplainTool) Name() string { return "explain_concept" }

func (t *ExplainTool) Description() string {
	return "Explain a concept in simple terms with examples. Input is the concept or question, " +
		"e.g. 'What is photosynthesis?'."
}

func (t *ExplainTool) ReturnDirect() bool { return false }

func (t *ExplainTool) Execute(ctx context.Context, userID, input string) (string, error) {
	prompt := fmt.Sprintf(`You are a friendly and knowledgeable study partner. Explain the following concept in a clear, easy-to-understand way.

Concept to explain: %s

Provide your explanation in this format:

Simple Explanation:
[Explain in simple terms, like explaining to a friend]

Key Points to Remember:
- [Important point 1]
- [Important point 2]

Example:
[Provide a practical example or analogy if helpful]

Keep it conversational, clear, and helpful.`, truncateForAnalysis(input))

	explanation, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("concept explanation failed")
		return "I had trouble explaining that concept. Could you rephrase your question?", nil
	}
	return strings.TrimSpace(explanation), nil
}

// CompareTool contrasts two concepts.
type CompareTool struct {
	llm ai.LanguageModel
}

func NewCompareTool(llm ai.LanguageModel) *CompareTool { return &CompareTool{llm: llm} }

func (t *CompareTool) Name() string { return "compare_concepts" }

func (t *CompareTool) Description() string {
	return "Compare and contrast two concepts or topics. Input names both, " +
		"e.g. 'compare TCP and UDP'."
}

func (t *CompareTool) ReturnDirect() bool { return false }

func (t *CompareTool) Execute(ctx context.Context, userID, input string) (string, error) {
	prompt := fmt.Sprintf(`Compare and contrast the concepts named in this request: %s

Format:

[Concept A]:
[Brief description]

[Concept B]:
[Brief description]

Key Differences:
- [Difference 1]
- [Difference 2]

Similarities:
- [Similarity 1]

When to use each:
- [scenario for each]

Keep it clear and focused on the differences.`, truncateForAnalysis(input))

	comparison, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("concept comparison failed")
		return "I had trouble comparing those concepts. Please try again.", nil
	}
	return strings.TrimSpace(comparison), nil
}

// DocumentQATool answers a question about an uploaded document. The input
// carries both the question and the document text between
// ---START OF DOCUMENT--- / ---END OF DOCUMENT--- markers.
type DocumentQATool struct {
	llm ai.LanguageModel
}

func NewDocumentQATool(llm ai.LanguageModel) *DocumentQATool { return &DocumentQATool{llm: llm} }

func (t *DocumentQATool) Name() string { return "answer_document_question" }

func (t *DocumentQATool) Description() string {
	return "Answer a specific question about an uploaded document. Input must contain both the " +
		"question and the document text between ---START OF DOCUMENT--- and ---END OF DOCUMENT--- markers."
}

func (t *DocumentQATool) ReturnDirect() bool { return false }

func (t *DocumentQATool) Execute(ctx context.Context, userID, input string) (string, error) {
	m := documentBlockPattern.FindStringSubmatch(input)
	if m == nil {
		return "I couldn't find the document content. Please upload the document again.", nil
	}
	document := truncateForAnalysis(m[1])

	question := strings.TrimSpace(strings.SplitN(input, "---START OF DOCUMENT---", 2)[0])
	if question == "" || len(question) > 200 {
		question = "What is this document about?"
	}

	prompt := fmt.Sprintf(`You are helping a user understand their document. Answer their specific question based ONLY on the document content provided.

DOCUMENT CONTENT:
%s

USER QUESTION: %s

Provide a clear, direct answer. Quote or reference specific parts of the document when helpful. If the information isn't in the document, say so clearly.`, document, question)

	answer, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("document question failed")
		return "I had trouble finding that information in the document. Could you rephrase your question?", nil
	}
	return strings.TrimSpace(answer), nil
}
