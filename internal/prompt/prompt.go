// Package prompt assembles the final generation prompt for each answering mode.
package prompt

import (
	"fmt"
	"strings"

	"github.com/garyellow/uni-assistant-go/internal/rag"
)

// Kind selects one of the answer templates.
type Kind int

const (
	KindTutor Kind = iota
	KindUniversity
	KindWeb
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindUniversity:
		return "university"
	case KindWeb:
		return "web"
	case KindDocument:
		return "document"
	default:
		return "tutor"
	}
}

// Assembled is a ready-to-send prompt pair.
type Assembled struct {
	System string
	User   string
}

const universitySystem = `You are a specialized university information assistant with access to the institution's knowledge base.

INSTRUCTIONS:
- Answer the question comprehensively using ONLY information from the provided context
- Structure your response with clear headings and organized sections
- Include specific details, dates, requirements, and procedures relevant to the question
- When referencing forms or applications, include how to access them
- Specify relevant departments, offices, or contact information when applicable
- If the context doesn't fully answer the question, clearly state what information is available and what's missing, suggesting where the student might find complete information
- Maintain a helpful, informative tone throughout your response`

const webSystem = `You are a web research specialist providing accurate, up-to-date information.

INSTRUCTIONS:
- Synthesize a comprehensive answer based ONLY on the provided search results
- Structure your response with clear headings and logical organization
- Include relevant facts, figures, and details from the search results
- Cite sources for specific information using [Source: X] notation
- When information from different sources conflicts, acknowledge this and present both perspectives
- If the search results don't adequately answer the question, clearly state what information is missing and provide the partial information available
- Maintain a balanced, informative tone and format your response for readability`

const documentSystem = `You are a highly skilled academic assistant helping a student understand the content of their documents.

INSTRUCTIONS:
- Answer the student's question using the provided documents; if they do not contain the information, say so and then answer from your own knowledge
- Provide a comprehensive, well-structured response
- Use headings and sections to organize your response when appropriate
- Include relevant details, quotes, data, or examples from the documents
- When referencing specific content, indicate which document or section it came from
- Maintain academic rigor while ensuring clarity and accessibility`

const tutorSystem = `You are a highly knowledgeable university professor with expertise across multiple disciplines.

INSTRUCTIONS:
- Provide comprehensive, academically rigorous explanations
- Break down complex topics into clear, understandable components
- Use specific examples and analogies to illustrate concepts
- Structure your response with appropriate headings and subheadings
- Include relevant equations, theories, or models when applicable
- Address common misconceptions related to the topic
- When appropriate, suggest further reading or related concepts
- Use academic language while remaining accessible`

// Assemble fills the template for kind with blob and query. It never
// measures length; callers cap context size upstream.
func Assemble(kind Kind, blob rag.Blob, query string) Assembled {
	switch kind {
	case KindUniversity:
		return Assembled{
			System: universitySystem,
			User:   section("CONTEXT INFORMATION", freeText(blob)) + section("STUDENT QUESTION", query),
		}
	case KindWeb:
		return Assembled{
			System: webSystem,
			User:   section("SEARCH RESULTS", numbered(blob, "Source")) + section("USER QUESTION", query),
		}
	case KindDocument:
		return Assembled{
			System: documentSystem,
			User:   section("DOCUMENT CONTENT", numbered(blob, "Document")) + section("STUDENT QUESTION", query),
		}
	default:
		return Assembled{
			System: tutorSystem,
			User:   section("STUDENT QUESTION", query),
		}
	}
}

func section(title, body string) string {
	return title + ":\n" + strings.TrimSpace(body) + "\n\n"
}

// freeText joins passage texts without labels.
func freeText(blob rag.Blob) string {
	texts := make([]string, 0, len(blob))
	for _, p := range blob {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n")
}

// numbered labels each passage as "[i] <label>: source".
func numbered(blob rag.Blob, label string) string {
	var b strings.Builder
	for i, p := range blob {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s: %s\n%s", i+1, label, p.Source, p.Text)
	}
	return b.String()
}
