package models

// ChatRequest is the body sent to the chat endpoint
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the decoded body returned by the chat endpoint.
// Response is set on success, Error optionally on failure.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Text returns the assistant reply
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	return r.Response
}
