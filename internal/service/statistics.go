package service

import (
	"context"

	"prmanager/internal/models"
)

func (s *Service) GetStats(ctx context.Context) (models.StatsResponse, error) {
	return s.repository.SelectStats(ctx)
}

func (s *Service) GetUsersStatistics(ctx context.Context) (*models.UserStatsResponse, error) {
	return s.repository.SelectUserStats(ctx)
}

func (s *Service) GetPullRequestStatistics(ctx context.Context) (*models.PullRequestsStatsResponse, error) {
	return s.repository.SelectPullRequestStats(ctx)
}

func (s *Service) GetReviewersStatistics(ctx context.Context) (*models.ReviewersStatsResponse, error) {
	return s.repository.SelectReviewerStats(ctx)
}
