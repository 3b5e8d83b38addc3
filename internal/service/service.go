// Package service holds the reviewer assignment engine. Every mutating
// operation runs as exactly one store transaction: on any error the whole
// transaction rolls back and the error is reported to the caller.
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"prmanager/internal/models"
	"prmanager/internal/selector"
)

// reviewersPerPR caps the initial reviewer sample on PR creation.
const reviewersPerPR = 2

type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	TeamExists(ctx context.Context, tx pgx.Tx, teamName string) (bool, error)
	InsertTeam(ctx context.Context, tx pgx.Tx, teamName string) error
	UpsertTeamMember(ctx context.Context, tx pgx.Tx, member models.TeamMember, teamName string) error
	SelectTeam(ctx context.Context, tx pgx.Tx, teamName string) ([]models.TeamMember, error)

	SelectUser(ctx context.Context, tx pgx.Tx, userID string) (models.User, error)
	UpdateUserStatus(ctx context.Context, tx pgx.Tx, userID string, isActive bool) (models.User, error)
	DeactivateUsers(ctx context.Context, tx pgx.Tx, userIDs []string) ([]string, error)
	SelectUserReviews(ctx context.Context, tx pgx.Tx, reviewerID string) ([]models.PullRequestShort, error)
	SelectOpenReviews(ctx context.Context, tx pgx.Tx, reviewerID string) ([]models.PullRequestShort, error)

	PullRequestExists(ctx context.Context, tx pgx.Tx, prID string) (bool, error)
	SelectPullRequest(ctx context.Context, tx pgx.Tx, prID string, forUpdate bool) (*models.PullRequest, error)
	InsertPullRequest(ctx context.Context, tx pgx.Tx, pullRequest models.CreatePRRequest) (time.Time, error)
	MergePullRequest(ctx context.Context, tx pgx.Tx, prID string) (*models.PullRequest, error)
	SelectPullRequestReviewers(ctx context.Context, tx pgx.Tx, prID string) ([]string, error)
	SelectReviewCandidates(ctx context.Context, tx pgx.Tx, teamName string, exclude []string) ([]string, error)
	InsertReviewer(ctx context.Context, tx pgx.Tx, prID, reviewerID string) error
	DeleteReviewer(ctx context.Context, tx pgx.Tx, prID, reviewerID string) error

	SelectStats(ctx context.Context) (models.StatsResponse, error)
	SelectUserStats(ctx context.Context) (*models.UserStatsResponse, error)
	SelectPullRequestStats(ctx context.Context) (*models.PullRequestsStatsResponse, error)
	SelectReviewerStats(ctx context.Context) (*models.ReviewersStatsResponse, error)
}

type Service struct {
	repository Repository
	picker     *selector.Selector
}

func NewService(repository Repository, picker *selector.Selector) *Service {
	return &Service{
		repository: repository,
		picker:     picker,
	}
}

// inTx runs fn inside a single transaction, committing on success and
// rolling back on any error.
func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.repository.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			zap.L().Error("transaction rollback failed", zap.Error(rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Service) AddTeam(ctx context.Context, team models.AddTeamRequest) (*models.Team, error) {
	if team.Name == "" {
		return nil, models.ErrNotFound.WithMessage("empty team_name")
	}
	if len(team.Members) == 0 {
		return nil, models.ErrNotFound.WithMessage("empty members")
	}

	var created models.Team
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		exists, err := s.repository.TeamExists(ctx, tx, team.Name)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrTeamExists
		}

		if err = s.repository.InsertTeam(ctx, tx, team.Name); err != nil {
			return err
		}

		for _, member := range team.Members {
			if member.ID == "" {
				return models.ErrNotFound.WithMessage("empty user_id")
			}

			if err = s.repository.UpsertTeamMember(ctx, tx, member, team.Name); err != nil {
				return err
			}
		}

		members, err := s.repository.SelectTeam(ctx, tx, team.Name)
		if err != nil {
			return err
		}

		created = models.Team{Name: team.Name, Members: members}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("team created",
		zap.String("team_name", created.Name),
		zap.Int("members", len(created.Members)),
	)

	return &created, nil
}

func (s *Service) GetTeam(ctx context.Context, teamName string) (*models.Team, error) {
	if teamName == "" {
		return nil, models.ErrNotFound.WithMessage("empty team_name")
	}

	exists, err := s.repository.TeamExists(ctx, nil, teamName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrNotFound.WithMessage("team not found")
	}

	members, err := s.repository.SelectTeam(ctx, nil, teamName)
	if err != nil {
		return nil, err
	}

	return &models.Team{Name: teamName, Members: members}, nil
}

// SetUserStatus toggles a single user's activity. Review assignments are
// untouched; only the mass deactivation path reassigns reviewers.
func (s *Service) SetUserStatus(ctx context.Context, req models.SetUserStatusRequest) (models.User, error) {
	if req.ID == "" {
		return models.User{}, models.ErrNotFound.WithMessage("empty user_id")
	}

	user, err := s.repository.UpdateUserStatus(ctx, nil, req.ID, req.IsActive)
	if err != nil {
		return models.User{}, err
	}

	zap.L().Info("user status updated",
		zap.String("user_id", user.ID),
		zap.Bool("is_active", user.IsActive),
	)

	return user, nil
}

func (s *Service) GetUserReviews(ctx context.Context, userID string) ([]models.PullRequestShort, error) {
	if userID == "" {
		return nil, models.ErrNotFound.WithMessage("empty user_id")
	}

	return s.repository.SelectUserReviews(ctx, nil, userID)
}

func (s *Service) CreatePullRequest(ctx context.Context, req models.CreatePRRequest) (*models.PullRequest, error) {
	if req.ID == "" {
		return nil, models.ErrNotFound.WithMessage("empty pull_request_id")
	}
	if req.AuthorID == "" {
		return nil, models.ErrNotFound.WithMessage("empty author_id")
	}

	var created models.PullRequest
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		exists, err := s.repository.PullRequestExists(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrPRExists
		}

		author, err := s.repository.SelectUser(ctx, tx, req.AuthorID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound.WithMessage("author not found")
			}
			return err
		}

		candidates, err := s.repository.SelectReviewCandidates(ctx, tx, author.TeamName, []string{author.ID})
		if err != nil {
			return err
		}

		reviewers := s.picker.SampleUpTo(candidates, reviewersPerPR)

		createdAt, err := s.repository.InsertPullRequest(ctx, tx, req)
		if err != nil {
			return err
		}

		for _, reviewerID := range reviewers {
			if err = s.repository.InsertReviewer(ctx, tx, req.ID, reviewerID); err != nil {
				return err
			}
		}

		sort.Strings(reviewers)
		if reviewers == nil {
			reviewers = make([]string, 0)
		}

		created = models.PullRequest{
			ID:                req.ID,
			Name:              req.Name,
			AuthorID:          req.AuthorID,
			Status:            models.StatusOpen,
			AssignedReviewers: reviewers,
			CreatedAt:         &createdAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("pull request created",
		zap.String("pull_request_id", created.ID),
		zap.String("author_id", created.AuthorID),
		zap.Strings("reviewers", created.AssignedReviewers),
	)

	return &created, nil
}

// MergePullRequest is idempotent: merging twice keeps the first merged_at
// and never touches the reviewer set.
func (s *Service) MergePullRequest(ctx context.Context, prID string) (*models.PullRequest, error) {
	if prID == "" {
		return nil, models.ErrNotFound.WithMessage("empty pull_request_id")
	}

	var merged *models.PullRequest
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		pr, err := s.repository.MergePullRequest(ctx, tx, prID)
		if err != nil {
			return err
		}

		reviewers, err := s.repository.SelectPullRequestReviewers(ctx, tx, prID)
		if err != nil {
			return err
		}

		pr.AssignedReviewers = reviewers
		merged = pr
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("pull request merged", zap.String("pull_request_id", prID))

	return merged, nil
}

func (s *Service) ReassignPullRequestReviewer(ctx context.Context, req models.ReassignPRReviewerRequest) (*models.PullRequest, string, error) {
	if req.PullRequestID == "" || req.OldReviewerID == "" {
		return nil, "", models.ErrNotFound.WithMessage("empty pull_request_id or old_user_id")
	}

	var (
		updated    *models.PullRequest
		replacedBy string
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		// The row lock serializes concurrent reassignments on the same PR,
		// so the reviewer set read below cannot go stale before the write.
		pr, err := s.repository.SelectPullRequest(ctx, tx, req.PullRequestID, true)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound.WithMessage("PR not found")
			}
			return err
		}
		if pr.Status == models.StatusMerged {
			return models.ErrPRMerged
		}

		reviewers, err := s.repository.SelectPullRequestReviewers(ctx, tx, req.PullRequestID)
		if err != nil {
			return err
		}

		assigned := false
		for _, id := range reviewers {
			if id == req.OldReviewerID {
				assigned = true
				break
			}
		}
		if !assigned {
			return models.ErrNotAssigned
		}

		oldReviewer, err := s.repository.SelectUser(ctx, tx, req.OldReviewerID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound.WithMessage("user not found")
			}
			return err
		}

		// Exclude the author and every current reviewer, the departing one
		// included, so the replacement is always a genuinely new reviewer.
		exclude := append([]string{pr.AuthorID}, reviewers...)
		candidates, err := s.repository.SelectReviewCandidates(ctx, tx, oldReviewer.TeamName, exclude)
		if err != nil {
			return err
		}

		newReviewerID, ok := s.picker.PickOne(candidates)
		if !ok {
			return models.ErrNoCandidate
		}

		if err = s.repository.DeleteReviewer(ctx, tx, req.PullRequestID, req.OldReviewerID); err != nil {
			return err
		}
		if err = s.repository.InsertReviewer(ctx, tx, req.PullRequestID, newReviewerID); err != nil {
			return err
		}

		for i, id := range reviewers {
			if id == req.OldReviewerID {
				reviewers[i] = newReviewerID
			}
		}
		sort.Strings(reviewers)

		pr.AssignedReviewers = reviewers
		updated = pr
		replacedBy = newReviewerID
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	zap.L().Info("reviewer reassigned",
		zap.String("pull_request_id", req.PullRequestID),
		zap.String("old_reviewer", req.OldReviewerID),
		zap.String("new_reviewer", replacedBy),
	)

	return updated, replacedBy, nil
}

// MassDeactivate flips every listed user inactive and walks their OPEN
// reviews: each assignment is handed to a random eligible teammate, or
// dropped when the team has nobody left. Unknown ids are skipped. The whole
// cascade commits as one transaction.
func (s *Service) MassDeactivate(ctx context.Context, userIDs []string) (int, error) {
	var deactivated []string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		deactivated, err = s.repository.DeactivateUsers(ctx, tx, userIDs)
		if err != nil {
			return err
		}

		for _, userID := range deactivated {
			if err = s.reassignOpenReviews(ctx, tx, userID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("users deactivated",
		zap.Int("requested", len(userIDs)),
		zap.Int("deactivated", len(deactivated)),
	)

	return len(deactivated), nil
}

func (s *Service) reassignOpenReviews(ctx context.Context, tx pgx.Tx, userID string) error {
	user, err := s.repository.SelectUser(ctx, tx, userID)
	if err != nil {
		return err
	}

	pullRequests, err := s.repository.SelectOpenReviews(ctx, tx, userID)
	if err != nil {
		return err
	}

	for _, pr := range pullRequests {
		reviewers, err := s.repository.SelectPullRequestReviewers(ctx, tx, pr.ID)
		if err != nil {
			return err
		}

		exclude := append([]string{pr.AuthorID}, reviewers...)
		candidates, err := s.repository.SelectReviewCandidates(ctx, tx, user.TeamName, exclude)
		if err != nil {
			return err
		}

		if err = s.repository.DeleteReviewer(ctx, tx, pr.ID, userID); err != nil {
			return err
		}

		// Reviewer scarcity never blocks deactivation: with no candidate
		// the PR simply keeps one reviewer fewer.
		newReviewerID, ok := s.picker.PickOne(candidates)
		if !ok {
			continue
		}

		if err = s.repository.InsertReviewer(ctx, tx, pr.ID, newReviewerID); err != nil {
			return err
		}
	}

	return nil
}
