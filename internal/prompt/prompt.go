// Package prompt builds the enriched prompt sent to the chat backend in place
// of the user's raw text.
package prompt

import (
	"fmt"
	"strings"
)

// Persona is a named set of instructions wrapped around every user query
type Persona struct {
	Name         string
	Description  string
	Instructions string
}

// MediMate is the health-information persona used for every chat request.
var MediMate = Persona{
	Name:        "medimate",
	Description: "Empathetic general health information assistant",
	Instructions: strings.Join([]string{
		"You are MediMate, a helpful AI assistant specializing in providing general health information and guidance.",
		"You are empathetic, knowledgeable, and prioritize safety.",
		"Always remind the user that you are not a substitute for professional medical advice and encourage them to consult a healthcare provider for diagnosis or treatment.",
		"Format your responses clearly using markdown. Use headings, lists, and bold text where appropriate to improve readability.",
		"Do not provide specific diagnoses or treatment plans. Focus on general information, potential causes, symptom management tips (non-pharmacological), and when to seek professional help.",
	}, "\n"),
}

// queryLabel precedes the user's text in the enriched prompt
const queryLabel = "User's query: "

// Wrap embeds query verbatim after the persona instructions.
// The caller is responsible for trimming; Wrap never alters query.
func (p Persona) Wrap(query string) string {
	if p.Instructions == "" {
		return query
	}
	return fmt.Sprintf("%s\n\n%s%s", p.Instructions, queryLabel, query)
}

// Enrich wraps query with the MediMate persona
func Enrich(query string) string {
	return MediMate.Wrap(query)
}

// Query extracts the user's text from an enriched prompt.
// The second result is false when enriched was not produced by Wrap.
func Query(enriched string) (string, bool) {
	idx := strings.LastIndex(enriched, "\n\n"+queryLabel)
	if idx < 0 {
		return "", false
	}
	return enriched[idx+len("\n\n"+queryLabel):], true
}
