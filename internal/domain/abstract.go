package domain

import "strings"

// AbstractRecord is a core entity describing one harvested feed entry.
// DOI is the natural key; the feed occasionally emits malformed records
// without one, so it is modeled as optional.
type AbstractRecord struct {
	DOI      *string `json:"doi,omitempty" bson:"doi,omitempty"`
	Title    string  `json:"title" bson:"title"`
	Abstract string  `json:"abstract" bson:"abstract"`
	Date     string  `json:"date" bson:"date"`
	Authors  string  `json:"authors,omitempty" bson:"authors,omitempty"`
	Category string  `json:"category,omitempty" bson:"category,omitempty"`
	Version  string  `json:"version,omitempty" bson:"version,omitempty"`
	Server   string  `json:"server,omitempty" bson:"server,omitempty"`
	Index    *int    `json:"index,omitempty" bson:"index,omitempty"`
}

// HasDOI reports whether the record carries a usable natural key.
func (r AbstractRecord) HasDOI() bool {
	return r.DOI != nil && strings.TrimSpace(*r.DOI) != ""
}

// InsertOutcome is the result of an insert-if-absent against the catalog.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyExists
)

// String makes log output readable.
func (o InsertOutcome) String() string {
	if o == AlreadyExists {
		return "already_exists"
	}
	return "inserted"
}

// GenerationParams carries the sampling settings for one reducer run.
type GenerationParams struct {
	MaxNewTokens      int
	Temperature       float64
	RepetitionPenalty float64
}
