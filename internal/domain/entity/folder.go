package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Folder is a node of the lecture tree. A nil ParentID marks a root of its namespace.
type Folder struct {
	ID        uuid.UUID
	Namespace string // Exam or namespace the tree belongs to, e.g. "SAT" or "IELTS".
	Name      string
	Subtitle  string
	Badge     string
	SortOrder int
	ParentID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// SiblingScope returns the scope key within which the folder name must be unique.
func (f *Folder) SiblingScope() string {
	return SiblingScope(f.Namespace, f.ParentID)
}

// SiblingScope builds the uniqueness scope for a folder name.
// Roots are scoped by namespace, children by their parent.
func SiblingScope(namespace string, parentID *uuid.UUID) string {
	if parentID == nil {
		return "root:" + NormalizeNamespace(namespace)
	}

	return "parent:" + parentID.String()
}

// NormalizeNamespace canonicalizes a namespace label, e.g. " sat " becomes "SAT".
func NormalizeNamespace(namespace string) string {
	return strings.ToUpper(strings.TrimSpace(namespace))
}
