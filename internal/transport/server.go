package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"prmanager/internal/config"
	"prmanager/internal/models"
)

type PRService interface {
	AddTeam(ctx context.Context, team models.AddTeamRequest) (*models.Team, error)
	GetTeam(ctx context.Context, teamName string) (*models.Team, error)
	SetUserStatus(ctx context.Context, req models.SetUserStatusRequest) (models.User, error)
	GetUserReviews(ctx context.Context, userID string) ([]models.PullRequestShort, error)
	MassDeactivate(ctx context.Context, userIDs []string) (int, error)
	CreatePullRequest(ctx context.Context, req models.CreatePRRequest) (*models.PullRequest, error)
	MergePullRequest(ctx context.Context, prID string) (*models.PullRequest, error)
	ReassignPullRequestReviewer(ctx context.Context, req models.ReassignPRReviewerRequest) (*models.PullRequest, string, error)
	GetStats(ctx context.Context) (models.StatsResponse, error)
	GetUsersStatistics(ctx context.Context) (*models.UserStatsResponse, error)
	GetPullRequestStatistics(ctx context.Context) (*models.PullRequestsStatsResponse, error)
	GetReviewersStatistics(ctx context.Context) (*models.ReviewersStatsResponse, error)
}

type server struct {
	mux     *http.ServeMux
	service PRService
}

func StartServer(cfg *config.Config, service PRService) *http.Server {
	mux := http.NewServeMux()

	const defaultTimeout = 5 * time.Second
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: defaultTimeout,
	}

	srv := &server{
		mux:     mux,
		service: service,
	}

	srv.registerHandlers()

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("failed to start server", zap.Error(err))
		}
	}()

	return httpServer
}

func (s *server) registerHandlers() {
	s.mux.Handle("GET /ping", s.wrap(s.PingHandler))

	s.mux.Handle("POST /team/add", s.wrap(s.AddTeamHandler))
	s.mux.Handle("GET /team/get", s.wrap(s.GetTeamHandler))

	s.mux.Handle("POST /users/setIsActive", s.wrap(s.SetUserStatusHandler))
	s.mux.Handle("GET /users/getReview", s.wrap(s.GetUserReviewsHandler))
	s.mux.Handle("POST /users/massDeactivate", s.wrap(s.MassDeactivateHandler))

	s.mux.Handle("POST /pullRequest/create", s.wrap(s.CreatePullRequestHandler))
	s.mux.Handle("POST /pullRequest/merge", s.wrap(s.MergePullRequestHandler))
	s.mux.Handle("POST /pullRequest/reassign", s.wrap(s.ReassignPullRequestReviewerHandler))

	s.mux.Handle("GET /stats", s.wrap(s.GetStatsHandler))
	s.mux.Handle("GET /statistics/users", s.wrap(s.GetUsersStatisticsHandler))
	s.mux.Handle("GET /statistics/pullRequests", s.wrap(s.GetPullRequestStatisticsHandler))
	s.mux.Handle("GET /statistics/reviewers", s.wrap(s.GetReviewersStatisticHandler))
}

func (s *server) wrap(h http.HandlerFunc) http.Handler {
	return requestIDMiddleware(logsMiddleware(recoveryMiddleware(h)))
}
