package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"prmanager/internal/models"
)

var errInternal = models.DomainError{
	Code:    "INTERNAL_ERROR",
	Message: "internal server error",
}

func (s *server) respondWithJSON(w http.ResponseWriter, code int, resp any) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Error("failed to encode JSON for response", zap.Error(err))
	}
}

func (s *server) respondWithError(w http.ResponseWriter, code int, details models.DomainError) {
	s.respondWithJSON(w, code, models.ErrorResponse{Error: details})
}

// respondWithDomainError maps a service error to the wire: known business
// failures keep their code and get a matching status, anything else is
// reported as an internal error without storage details.
func (s *server) respondWithDomainError(w http.ResponseWriter, err error) {
	var details *models.DomainError
	if !errors.As(err, &details) {
		zap.L().Error("internal error", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, errInternal)
		return
	}

	var status int
	switch {
	case errors.Is(err, models.ErrTeamExists):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrPRExists),
		errors.Is(err, models.ErrPRMerged),
		errors.Is(err, models.ErrNotAssigned),
		errors.Is(err, models.ErrNoCandidate):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	s.respondWithError(w, status, *details)
}

func (s *server) respondInvalidJSON(w http.ResponseWriter, err error) {
	s.respondWithError(w, http.StatusBadRequest, models.DomainError{
		Code:    "INVALID_JSON",
		Message: fmt.Sprintf("failed to decode json: %v", err),
	})
}

func (s *server) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		zap.L().Error("failed to write ping response", zap.Error(err))
	}
}

func (s *server) AddTeamHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.AddTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondInvalidJSON(w, err)
		return
	}

	team, err := s.service.AddTeam(r.Context(), req)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, models.AddTeamResponse{Team: *team})
}

func (s *server) GetTeamHandler(w http.ResponseWriter, r *http.Request) {
	teamName := r.URL.Query().Get("team_name")
	if teamName == "" {
		s.respondWithError(w, http.StatusBadRequest, *models.ErrNotFound.WithMessage("missing team_name"))
		return
	}

	team, err := s.service.GetTeam(r.Context(), teamName)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, *team)
}

func (s *server) SetUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.SetUserStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondInvalidJSON(w, err)
		return
	}

	user, err := s.service.SetUserStatus(r.Context(), req)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.SetUserStatusResponse{User: user})
}

func (s *server) GetUserReviewsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondWithError(w, http.StatusBadRequest, *models.ErrNotFound.WithMessage("missing user_id"))
		return
	}

	pullRequests, err := s.service.GetUserReviews(r.Context(), userID)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.GetUserReviewsResponse{
		UserID:       userID,
		PullRequests: pullRequests,
	})
}

func (s *server) MassDeactivateHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.MassDeactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondInvalidJSON(w, err)
		return
	}

	count, err := s.service.MassDeactivate(r.Context(), req.UserIDs)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.MassDeactivateResponse{DeactivatedCount: count})
}

func (s *server) CreatePullRequestHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.CreatePRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondInvalidJSON(w, err)
		return
	}

	pullRequest, err := s.service.CreatePullRequest(r.Context(), req)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, models.CreatePRResponse{PullRequest: *pullRequest})
}

func (s *server) MergePullRequestHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.MergePRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondInvalidJSON(w, err)
		return
	}

	pullRequest, err := s.service.MergePullRequest(r.Context(), req.ID)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.MergePRResponse{PullRequest: *pullRequest})
}

func (s *server) ReassignPullRequestReviewerHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.ReassignPRReviewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondInvalidJSON(w, err)
		return
	}

	pullRequest, replacedBy, err := s.service.ReassignPullRequestReviewer(r.Context(), req)
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.ReassignPRReviewerResponse{
		PullRequest: *pullRequest,
		ReplacedBy:  replacedBy,
	})
}
