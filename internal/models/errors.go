package models

// DomainError is a business failure with a machine-readable code.
// Two domain errors match under errors.Is when their codes match, so
// callers can derive variants with WithMessage and still compare against
// the sentinel values below.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Code + ": " + e.Message
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithMessage keeps the code and replaces the human-readable part.
func (e *DomainError) WithMessage(msg string) *DomainError {
	return &DomainError{Code: e.Code, Message: msg}
}

var (
	ErrTeamExists  = &DomainError{Code: "TEAM_EXISTS", Message: "team_name already exists"}
	ErrPRExists    = &DomainError{Code: "PR_EXISTS", Message: "PR id already exists"}
	ErrPRMerged    = &DomainError{Code: "PR_MERGED", Message: "cannot reassign on merged PR"}
	ErrNotAssigned = &DomainError{Code: "NOT_ASSIGNED", Message: "reviewer is not assigned to this PR"}
	ErrNoCandidate = &DomainError{Code: "NO_CANDIDATE", Message: "no active replacement candidate in team"}
	ErrNotFound    = &DomainError{Code: "NOT_FOUND", Message: "resource not found"}
)

type ErrorResponse struct {
	Error DomainError `json:"error"`
}
