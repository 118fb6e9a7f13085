// Package models contains data types and constants for the MediMate chat backend.
package models

import "time"

// Branding
const (
	AppName   = "MediMate"
	BinName   = "medimate"
	BrandMark = "⚕"
)

// Backend endpoint
const (
	DefaultBackendURL = "http://localhost:3000"
	ChatPath          = "/api/chat"

	// SessionCookieName is the cookie the backend uses to identify a signed-in user
	SessionCookieName = "__session"
)

// DefaultRequestTimeout bounds a single chat request
const DefaultRequestTimeout = 60 * time.Second

// DefaultFailureMessage is reported when the backend fails without an error field
const DefaultFailureMessage = "Failed to get response"

// User-facing copy
const (
	DisclaimerText = "Note: MediMate provides general health information only. " +
		"Always consult a healthcare professional for diagnosis or treatment."
	WelcomeTitle    = "Welcome to MediMate"
	WelcomeSubtitle = "Your AI health assistant. How can I help you today?\n" +
		"Describe your symptoms or ask a general health question."
	ExamplesHeading  = "You can ask things like:"
	BusyLabel        = "MediMate is analyzing..."
	InputPlaceholder = "Describe your health concern or ask a question..."
	PrivacyFooter    = "HIPAA Compliant | Your conversations are private and secure. " +
		"MediMate is for informational purposes only."
)

// ExampleQuestions are shown on the empty-state screen
var ExampleQuestions = []string{
	"What are common causes of headaches?",
	"Tell me about managing stress.",
	"Explain the benefits of a balanced diet.",
}

// DefaultHeaders returns the default headers for chat requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type":    "application/json",
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	}
}
