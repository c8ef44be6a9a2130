package summarizer

import (
	"fmt"
	"strings"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

const mapPromptTemplate = `Based *only* on the following text snippet from a scientific article, write a very concise summary focusing on the key information presented:

"%s"

CONCISE SUMMARY:`

const combinePromptTemplate = `You are an expert research assistant. You have been provided with several summaries of sections from a scientific article. Synthesize them into one comprehensive, well-structured summary of the entire article.

Section summaries:
"%s"

Write a detailed summary of EXACTLY 5 short paragraphs covering:
1. The main research question or objective
2. The methodology used
3. The key findings and results
4. The significance of the work
5. Implications and possible future work

Then identify the 5-7 most important key concepts or terms from the article.

Format your response EXACTLY as follows:
FINAL SUMMARY:
[your five-paragraph summary]

KEY CONCEPTS:
- Concept 1
- Concept 2
- Concept 3
- Concept 4
- Concept 5`

func renderMapPrompt(content string) string {
	return fmt.Sprintf(mapPromptTemplate, content)
}

func renderCombinePrompt(joined string) string {
	return fmt.Sprintf(combinePromptTemplate, joined)
}

// PrepareText concatenates the present document fields in fixed order,
// separated by blank lines.
func PrepareText(doc domain.Document) string {
	parts := make([]string, 0, 3)
	if strings.TrimSpace(doc.Title) != "" {
		parts = append(parts, "Title: "+doc.Title)
	}
	if strings.TrimSpace(doc.Abstract) != "" {
		parts = append(parts, "Abstract: "+doc.Abstract)
	}
	if strings.TrimSpace(doc.FullText) != "" {
		parts = append(parts, "Full Text:\n"+doc.FullText)
	}
	return strings.Join(parts, "\n\n")
}
