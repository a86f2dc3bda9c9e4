// Package thing holds the Thing record and the CRUD service wrapping a
// document repository.
package thing

// Thing is the stored record. ID is caller-assigned and never changes after
// creation; the remaining fields are payload the service does not inspect.
type Thing struct {
	ID     string            `json:"id"`
	Name   string            `json:"name,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// GetID returns the record identifier.
func (t Thing) GetID() string {
	return t.ID
}
