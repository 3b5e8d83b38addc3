package models

type AddTeamRequest struct {
	Name    string       `json:"team_name"`
	Members []TeamMember `json:"members"`
}

type SetUserStatusRequest struct {
	ID       string `json:"user_id"`
	IsActive bool   `json:"is_active"`
}

type MassDeactivateRequest struct {
	UserIDs []string `json:"user_ids"`
}

type CreatePRRequest struct {
	ID       string `json:"pull_request_id"`
	Name     string `json:"pull_request_name"`
	AuthorID string `json:"author_id"`
}

type MergePRRequest struct {
	ID string `json:"pull_request_id"`
}

type ReassignPRReviewerRequest struct {
	PullRequestID string `json:"pull_request_id"`
	OldReviewerID string `json:"old_user_id"`
}
