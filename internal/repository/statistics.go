package repository

import (
	"context"

	"github.com/Masterminds/squirrel"

	"prmanager/internal/models"
)

// SelectStats gathers the global entity counters. Read-only, pool-level.
func (r *Repository) SelectStats(ctx context.Context) (models.StatsResponse, error) {
	var stats models.StatsResponse

	counts := []struct {
		table string
		dst   *int
	}{
		{"teams", &stats.TeamsCount},
		{"users", &stats.UsersCount},
		{"pull_requests", &stats.PRsCount},
	}

	for _, c := range counts {
		query, args, err := r.builder.
			Select("COUNT(*)").
			From(c.table).
			ToSql()

		if err != nil {
			return models.StatsResponse{}, wrapDBError(err, "SelectStats: build query")
		}

		if err = r.pool.QueryRow(ctx, query, args...).Scan(c.dst); err != nil {
			return models.StatsResponse{}, wrapDBError(err, "SelectStats: query row")
		}
	}

	return stats, nil
}

func (r *Repository) SelectUserStats(ctx context.Context) (*models.UserStatsResponse, error) {
	query, args, err := r.builder.
		Select(
			"COUNT(*) AS total",
			"COUNT(*) FILTER (WHERE is_active = true) AS active",
			"COUNT(*) FILTER (WHERE is_active = false) AS inactive",
		).
		From("users").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectUserStats: build query")
	}

	var total, active, inactive int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&total, &active, &inactive)
	if err != nil {
		return nil, wrapDBError(err, "SelectUserStats: query row")
	}

	teamQuery, teamArgs, err := r.builder.
		Select("team_name", "COUNT(*) AS users_count").
		From("users").
		GroupBy("team_name").
		OrderBy("team_name").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectUserStats: build team query")
	}

	rows, err := r.pool.Query(ctx, teamQuery, teamArgs...)
	if err != nil {
		return nil, wrapDBError(err, "SelectUserStats: execute team query")
	}
	defer rows.Close()

	var teams []models.TeamUsersCount
	for rows.Next() {
		var team models.TeamUsersCount
		if err = rows.Scan(&team.TeamName, &team.Users); err != nil {
			return nil, wrapDBError(err, "SelectUserStats: scan team row")
		}

		teams = append(teams, team)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "SelectUserStats: team rows")
	}

	return &models.UserStatsResponse{
		TotalUsers:    total,
		ActiveUsers:   active,
		InactiveUsers: inactive,
		UsersByTeam:   teams,
	}, nil
}

func (r *Repository) SelectPullRequestStats(ctx context.Context) (*models.PullRequestsStatsResponse, error) {
	query, args, err := r.builder.
		Select(
			"COUNT(*) AS total",
			"COUNT(*) FILTER (WHERE pr_status = 'OPEN') AS open",
			"COUNT(*) FILTER (WHERE pr_status = 'MERGED') AS merged",
		).
		From("pull_requests").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectPullRequestStats: build query")
	}

	var total, open, merged int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&total, &open, &merged)
	if err != nil {
		return nil, wrapDBError(err, "SelectPullRequestStats: query row")
	}

	return &models.PullRequestsStatsResponse{
		TotalPRs:  total,
		OpenPRs:   open,
		MergedPRs: merged,
	}, nil
}

func (r *Repository) SelectReviewerStats(ctx context.Context) (*models.ReviewersStatsResponse, error) {
	const topLimit = 10

	query, args, err := r.builder.
		Select(
			"u.id",
			"u.user_name",
			"COUNT(prr.reviewer_id) AS review_count",
		).
		From("users u").
		LeftJoin("pr_reviewers prr ON u.id = prr.reviewer_id").
		Where(squirrel.Eq{"u.is_active": true}).
		GroupBy("u.id", "u.user_name").
		OrderBy("review_count DESC", "u.id").
		Limit(topLimit).
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectReviewerStats: build query")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "SelectReviewerStats: execute query")
	}
	defer rows.Close()

	var topReviewers []models.ReviewerCount
	for rows.Next() {
		var reviewer models.ReviewerCount
		if err = rows.Scan(&reviewer.ID, &reviewer.Username, &reviewer.ReviewCount); err != nil {
			return nil, wrapDBError(err, "SelectReviewerStats: scan row")
		}

		if reviewer.ReviewCount > 0 {
			topReviewers = append(topReviewers, reviewer)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "SelectReviewerStats: rows")
	}

	idleQuery, idleArgs, err := r.builder.
		Select("u.id").
		From("users u").
		LeftJoin("pr_reviewers prr ON u.id = prr.reviewer_id").
		Where(squirrel.Eq{
			"u.is_active":     true,
			"prr.reviewer_id": nil,
		}).
		OrderBy("u.id").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectReviewerStats: build idle query")
	}

	idleRows, err := r.pool.Query(ctx, idleQuery, idleArgs...)
	if err != nil {
		return nil, wrapDBError(err, "SelectReviewerStats: execute idle query")
	}
	defer idleRows.Close()

	var withoutReviews []string
	for idleRows.Next() {
		var id string
		if err = idleRows.Scan(&id); err != nil {
			return nil, wrapDBError(err, "SelectReviewerStats: scan idle row")
		}

		withoutReviews = append(withoutReviews, id)
	}

	if err = idleRows.Err(); err != nil {
		return nil, wrapDBError(err, "SelectReviewerStats: idle rows")
	}

	return &models.ReviewersStatsResponse{
		TopReviewers:       topReviewers,
		UsersWithoutReview: withoutReviews,
	}, nil
}
