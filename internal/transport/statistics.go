package transport

import (
	"net/http"
)

func (s *server) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats(r.Context())
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, stats)
}

func (s *server) GetUsersStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetUsersStatistics(r.Context())
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, stats)
}

func (s *server) GetPullRequestStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetPullRequestStatistics(r.Context())
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, stats)
}

func (s *server) GetReviewersStatisticHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetReviewersStatistics(r.Context())
	if err != nil {
		s.respondWithDomainError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, stats)
}
