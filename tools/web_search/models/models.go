package models

// Result is one raw search hit before normalization into evidence.
type Result struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	RawContent string `json:"raw_content,omitempty"`
}
