package request

type SubmitProjectRequest struct {
	Name         string   `json:"name"`
	Seeds        []string `json:"seeds"`
	Geo          string   `json:"geo"`
	Language     string   `json:"language"`
	ContentFocus string   `json:"content_focus"` // "informational", "commercial", "transactional", "local"
	Resume       bool     `json:"resume"`
	Force        bool     `json:"force"`
}
