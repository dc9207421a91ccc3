package ai

// Digest is the structured summary returned by a Summarizer.
type Digest struct {
	// Headline is a one-sentence overview.
	Headline string `json:"headline"`

	// Highlights are notable facts, most important first.
	Highlights []string `json:"highlights"`

	// Risks name routes or trends that need attention (full routes, missing prices, late pickups).
	Risks []string `json:"risks"`

	// Source is "gemini" or "rules".
	Source string `json:"source"`
}
