package summary

import (
	"fmt"
	"strings"

	"LiteratureHarvester/internal/domain"
)

const (
	// queryTag is the fixed citation for facts drawn from the query
	// abstract itself rather than from a retrieved document.
	queryTag = "[Original Query]"

	placeholderTitle = "Untitled"
	placeholderDOI   = "no DOI"
)

const promptTemplate = `Given the following running literature summary, update the summary with the new abstract I give you.
If the summary is empty, initialize the summary with a summary of the abstract.
If the summary is not empty, keep the knowledge of the prior summary to the extent possible, but update the summary given the content of the new abstract.

Write the updated summary as one paragraph with exactly this structure: an introductory sentence; then one clause per fact, each fact followed by its citation in the form [Title, DOI]; then a closing sentence that begins with "In conclusion", "Overall" or "In summary".
Cite facts that come from the original query abstract with the literal tag %s instead of a title and DOI.
Facts carried over from the prior summary keep their existing citations; do not add a second %s tag to them.

Summary: %s
New abstract: %s
Citation for the new abstract: [%s, %s]
Original query abstract: %s
`

// buildPrompt renders the generation prompt for one fold step.
func buildPrompt(runningSummary string, doc domain.AbstractRecord, queryAbstract string) string {
	title, doi := citation(doc)
	return fmt.Sprintf(promptTemplate,
		queryTag, queryTag,
		runningSummary,
		doc.Abstract,
		title, doi,
		queryAbstract,
	)
}

// citation degrades missing fields to placeholders instead of failing the
// whole reduction.
func citation(doc domain.AbstractRecord) (title, doi string) {
	title = strings.TrimSpace(doc.Title)
	if title == "" {
		title = placeholderTitle
	}
	if doc.HasDOI() {
		doi = strings.TrimSpace(*doc.DOI)
	} else {
		doi = placeholderDOI
	}
	return title, doi
}
