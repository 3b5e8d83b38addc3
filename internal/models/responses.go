package models

type AddTeamResponse struct {
	Team Team `json:"team"`
}

type SetUserStatusResponse struct {
	User User `json:"user"`
}

type MassDeactivateResponse struct {
	DeactivatedCount int `json:"deactivated_count"`
}

type GetUserReviewsResponse struct {
	UserID       string             `json:"user_id"`
	PullRequests []PullRequestShort `json:"pull_requests"`
}

type CreatePRResponse struct {
	PullRequest PullRequest `json:"pr"`
}

type MergePRResponse struct {
	PullRequest PullRequest `json:"pr"`
}

type ReassignPRReviewerResponse struct {
	PullRequest PullRequest `json:"pr"`
	ReplacedBy  string      `json:"replaced_by"`
}

type StatsResponse struct {
	TeamsCount int `json:"teams_count"`
	UsersCount int `json:"users_count"`
	PRsCount   int `json:"prs_count"`
}
