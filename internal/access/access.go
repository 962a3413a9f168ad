// Package access holds the role rules that decide which departments a
// caller may read, and the classifier that tags documents at ingestion.
package access

import (
	"path/filepath"
	"strings"

	"knowledge-assistant/internal/model"
)

// RoleAdmin sees every department.
const RoleAdmin = "Admin"

// Visible reports whether role may see content tagged with dept.
// Comparison is literal; unknown roles see nothing.
func Visible(role string, dept model.Department) bool {
	return role == RoleAdmin || string(dept) == role
}

// VisibleDepartments lists the departments role can read.
func VisibleDepartments(role string) []model.Department {
	all := []model.Department{model.DepartmentHR, model.DepartmentEngineering}
	out := make([]model.Department, 0, len(all))
	for _, d := range all {
		if Visible(role, d) {
			out = append(out, d)
		}
	}
	return out
}

// Classifier assigns a department to a document once, at ingestion.
type Classifier interface {
	Classify(filename, content string) model.Department
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(filename, content string) model.Department

func (f ClassifierFunc) Classify(filename, content string) model.Department {
	return f(filename, content)
}

// FilenameClassifier tags a document HR when its base name contains "hr"
// (any case) and Engineering otherwise.
type FilenameClassifier struct{}

func (FilenameClassifier) Classify(filename, _ string) model.Department {
	if strings.Contains(strings.ToLower(filepath.Base(filename)), "hr") {
		return model.DepartmentHR
	}
	return model.DepartmentEngineering
}
