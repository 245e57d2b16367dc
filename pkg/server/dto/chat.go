package dto

// ChatRequest is the body for POST /chat and POST /chat/stream.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	// Location lets a client answer a location_needed follow-up without
	// rephrasing the whole question.
	Location string `json:"location,omitempty"`
}

// SourceRef is a citation attached to an answer.
type SourceRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ChatResponse is the reply for POST /chat.
type ChatResponse struct {
	Answer        string      `json:"answer"`
	Sources       []SourceRef `json:"sources"`
	QueryType     string      `json:"query_type"`
	NeedsLocation bool        `json:"needs_location,omitempty"`
}
