package llm

import (
	_ "embed"
	"strings"
)

//go:embed prompts/analyze_v1.txt
var analyzePromptV1 string

const documentPlaceholder = "{{DOCUMENT_TEXT}}"

// PromptVersion identifies the analysis prompt template in use.
const PromptVersion = "v1"

// BuildAnalysisPrompt embeds the extracted document text into the fixed
// analysis template. The text is embedded verbatim, exactly once, with no
// truncation; the template carries the required output schema.
func BuildAnalysisPrompt(documentText string) string {
	return strings.Replace(analyzePromptV1, documentPlaceholder, documentText, 1)
}

// PromptTemplate returns the raw analysis template text.
func PromptTemplate() string {
	return analyzePromptV1
}
