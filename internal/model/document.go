package model

// Department is the coarse access tag carried by every document and chunk.
type Department string

const (
	DepartmentHR          Department = "HR"
	DepartmentEngineering Department = "Engineering"
)

// Valid reports whether d is one of the two known departments.
func (d Department) Valid() bool {
	return d == DepartmentHR || d == DepartmentEngineering
}

// Metadata is copied from a document onto each of its chunks.
type Metadata struct {
	Source     string     `json:"source"`
	Department Department `json:"department"`
}

type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is the retrieval unit: a contiguous slice of a document's content.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
