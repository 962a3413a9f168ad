package model

// AnswerEnvelope is what /ask returns.
type AnswerEnvelope struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	ResponseTime float64  `json:"response_time"`
	Sources      []string `json:"sources"`
}

// DocumentSummary describes one indexed source as seen by a role.
type DocumentSummary struct {
	Source     string     `json:"source"`
	Department Department `json:"department"`
	Chunks     int        `json:"chunks"`
}
