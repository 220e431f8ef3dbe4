// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// analysisPromptTmpl is the prompt sent to the AI backend for each item.
// The requested field names must stay aligned with the Analysis JSON tags.
// Per prd005-analysis R2.1.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`You are a research paper analyst. Analyze the following paper and provide a comprehensive analysis.

**Title**: {{.Title}}
**Authors**: {{.Authors}}
**Date**: {{.Date}}
**Abstract**: {{.Abstract}}
{{- if .FullText}}

**Full Text (from markdown)**:
{{.FullText}}
{{- end}}

Provide a structured analysis in JSON format with the following fields:

1. summary: a one-sentence summary of the paper (max 50 words, same language as the title)
2. brief_analysis: a concise 2-3 sentence analysis highlighting the core contribution and significance (max 100 words)
3. detailed_analysis: a comprehensive analysis (300-500 words) covering the research problem and motivation, the proposed approach, key innovations, experimental results, and significance
4. contributions: list of main contributions (3-5 concise bullet points)
5. methodology: brief description of the methodology used (1-2 sentences)
6. key_findings: list of key findings or results (3-5 items)
7. limitations: list of limitations mentioned or apparent (1-3 items)
8. future_work: potential future research directions (1-3 items)
9. tags: list of relevant tags or keywords (5-10 items)
10. relevance_score: the paper's relevance to the research topic (1-10)

Respond with valid JSON only, no markdown formatting.
`))

// maxFullTextChars caps the converted-text portion of the prompt so a long
// paper cannot blow the model's context window.
const maxFullTextChars = 15000

type promptData struct {
	Title    string
	Authors  string
	Date     string
	Abstract string
	FullText string
}

// BuildPrompt renders the analysis prompt for one item. Full text is
// truncated to maxFullTextChars runes; when absent the prompt carries
// metadata and abstract only (R2.2, R2.3).
func BuildPrompt(it types.Item, fullText string) (string, error) {
	data := promptData{
		Title:    valueOr(it.Title, "Unknown"),
		Authors:  strings.Join(it.Authors, ", "),
		Date:     valueOr(it.Date, "Unknown"),
		Abstract: valueOr(it.Abstract, "Not available"),
		FullText: fullText,
	}
	if r := []rune(data.FullText); len(r) > maxFullTextChars {
		data.FullText = string(r[:maxFullTextChars])
	}

	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func valueOr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
