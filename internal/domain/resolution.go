package domain

// Outcome is the terminal result of one /baselink interaction. Every outcome
// maps to exactly one distinct reply.
type Outcome string

const (
	OutcomeFound           Outcome = "found"
	OutcomeNoText          Outcome = "no_text"
	OutcomeNoLink          Outcome = "no_link"
	OutcomeExtractionError Outcome = "extraction_error"
	OutcomeSearchError     Outcome = "search_error"
	OutcomeInvalidInput    Outcome = "invalid_input"
)

func (o Outcome) String() string {
	return string(o)
}

// Resolution carries the outcome plus whatever the reply needs: the link for
// OutcomeFound, the failure for the error outcomes.
type Resolution struct {
	Outcome Outcome
	Link    string
	Query   string
	Err     error
}
