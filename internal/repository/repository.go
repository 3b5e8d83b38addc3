// Package repository is the transactional storage gateway over PostgreSQL.
// Business failures surface as *models.DomainError values, everything else
// is wrapped so the service layer can tell business errors from outages.
package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"prmanager/internal/models"
)

type PostgresCfg struct {
	Host     string `env:"POSTGRES_HOST"     env-default:"postgres"`
	Port     string `env:"POSTGRES_PORT"     env-default:"5432"`
	User     string `env:"POSTGRES_USER"     env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName   string `env:"POSTGRES_DB"       env-default:"postgres"`
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx the queries need, so every
// method can run either on the pool or inside an open transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewRepository(cfg PostgresCfg) (*Repository, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	dataSource := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		cfg.User, cfg.Password, addr, cfg.DBName)

	pool, err := pgxpool.New(context.Background(), dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create new pool: %w", err)
	}

	if err = pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := Repository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	return &repo, nil
}

func (r *Repository) CloseConnection() {
	r.pool.Close()
}

func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrapDBError(err, "BeginTx")
	}

	return tx, nil
}

func wrapDBError(err error, context string) error {
	return fmt.Errorf("database: %s: %w", context, err)
}

// db routes a query to the open transaction when there is one.
func (r *Repository) db(tx pgx.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *Repository) TeamExists(ctx context.Context, tx pgx.Tx, teamName string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From("teams").
		Where(squirrel.Eq{"team_name": teamName}).
		ToSql()

	if err != nil {
		return false, wrapDBError(err, "TeamExists: build query")
	}

	var one int
	err = r.db(tx).QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapDBError(err, "TeamExists: query row")
	}

	return true, nil
}

func (r *Repository) InsertTeam(ctx context.Context, tx pgx.Tx, teamName string) error {
	query, args, err := r.builder.
		Insert("teams").
		Columns("team_name").
		Values(teamName).
		ToSql()

	if err != nil {
		return wrapDBError(err, "InsertTeam: build query")
	}

	_, err = r.db(tx).Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.ErrTeamExists
		}
		return wrapDBError(err, "InsertTeam: execute query")
	}

	return nil
}

// UpsertTeamMember creates the user or moves an existing one into teamName,
// refreshing username and activity. Membership upserts are idempotent per id.
func (r *Repository) UpsertTeamMember(ctx context.Context, tx pgx.Tx, member models.TeamMember, teamName string) error {
	query, args, err := r.builder.
		Insert("users").
		Columns("id", "user_name", "team_name", "is_active").
		Values(member.ID, member.Username, teamName, member.IsActive).
		Suffix("ON CONFLICT (id) DO UPDATE SET user_name = EXCLUDED.user_name, team_name = EXCLUDED.team_name, is_active = EXCLUDED.is_active").
		ToSql()

	if err != nil {
		return wrapDBError(err, "UpsertTeamMember: build query")
	}

	_, err = r.db(tx).Exec(ctx, query, args...)
	if err != nil {
		return wrapDBError(err, "UpsertTeamMember: execute query")
	}

	return nil
}

func (r *Repository) SelectTeam(ctx context.Context, tx pgx.Tx, teamName string) ([]models.TeamMember, error) {
	query, args, err := r.builder.
		Select("id", "user_name", "is_active").
		From("users").
		Where(squirrel.Eq{"team_name": teamName}).
		OrderBy("id").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectTeam: build query")
	}

	rows, err := r.db(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "SelectTeam: execute query")
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var member models.TeamMember
		if err = rows.Scan(&member.ID, &member.Username, &member.IsActive); err != nil {
			return nil, wrapDBError(err, "SelectTeam: scan row")
		}

		members = append(members, member)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "SelectTeam: rows")
	}

	return members, nil
}

func (r *Repository) SelectUser(ctx context.Context, tx pgx.Tx, userID string) (models.User, error) {
	query, args, err := r.builder.
		Select("id", "user_name", "team_name", "is_active").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()

	if err != nil {
		return models.User{}, wrapDBError(err, "SelectUser: build query")
	}

	var user models.User
	err = r.db(tx).QueryRow(ctx, query, args...).
		Scan(&user.ID, &user.Username, &user.TeamName, &user.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, wrapDBError(err, "SelectUser: query row")
	}

	return user, nil
}

func (r *Repository) UpdateUserStatus(ctx context.Context, tx pgx.Tx, userID string, isActive bool) (models.User, error) {
	query, args, err := r.builder.
		Update("users").
		Set("is_active", isActive).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING id, user_name, team_name, is_active").
		ToSql()

	if err != nil {
		return models.User{}, wrapDBError(err, "UpdateUserStatus: build query")
	}

	var user models.User
	err = r.db(tx).QueryRow(ctx, query, args...).
		Scan(&user.ID, &user.Username, &user.TeamName, &user.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, wrapDBError(err, "UpdateUserStatus: query row")
	}

	return user, nil
}

// DeactivateUsers flips is_active off for every listed id that exists and
// returns the ids actually deactivated; unknown ids are skipped.
func (r *Repository) DeactivateUsers(ctx context.Context, tx pgx.Tx, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := r.builder.
		Update("users").
		Set("is_active", false).
		Where(squirrel.Eq{"id": userIDs}).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "DeactivateUsers: build query")
	}

	rows, err := r.db(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "DeactivateUsers: execute query")
	}
	defer rows.Close()

	var deactivated []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, wrapDBError(err, "DeactivateUsers: scan row")
		}
		deactivated = append(deactivated, id)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "DeactivateUsers: rows")
	}

	return deactivated, nil
}

func (r *Repository) SelectUserReviews(ctx context.Context, tx pgx.Tx, reviewerID string) ([]models.PullRequestShort, error) {
	return r.selectReviews(ctx, tx, reviewerID, false)
}

// SelectOpenReviews lists only OPEN pull requests the user reviews, the set
// the deactivation cascade walks.
func (r *Repository) SelectOpenReviews(ctx context.Context, tx pgx.Tx, reviewerID string) ([]models.PullRequestShort, error) {
	return r.selectReviews(ctx, tx, reviewerID, true)
}

func (r *Repository) selectReviews(ctx context.Context, tx pgx.Tx, reviewerID string, openOnly bool) ([]models.PullRequestShort, error) {
	q := r.builder.
		Select("pr.id", "pr.pr_name", "pr.author_id", "pr.pr_status").
		From("pull_requests pr").
		Join("pr_reviewers prr ON pr.id = prr.pr_id").
		Where(squirrel.Eq{"prr.reviewer_id": reviewerID}).
		OrderBy("pr.id")

	if openOnly {
		q = q.Where(squirrel.Eq{"pr.pr_status": models.StatusOpen})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, wrapDBError(err, "selectReviews: build query")
	}

	rows, err := r.db(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "selectReviews: execute query")
	}
	defer rows.Close()

	pullRequests := make([]models.PullRequestShort, 0)
	for rows.Next() {
		var pr models.PullRequestShort
		if err = rows.Scan(&pr.ID, &pr.Name, &pr.AuthorID, &pr.Status); err != nil {
			return nil, wrapDBError(err, "selectReviews: scan row")
		}

		pullRequests = append(pullRequests, pr)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "selectReviews: rows")
	}

	return pullRequests, nil
}

func (r *Repository) PullRequestExists(ctx context.Context, tx pgx.Tx, prID string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From("pull_requests").
		Where(squirrel.Eq{"id": prID}).
		ToSql()

	if err != nil {
		return false, wrapDBError(err, "PullRequestExists: build query")
	}

	var one int
	err = r.db(tx).QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapDBError(err, "PullRequestExists: query row")
	}

	return true, nil
}

// SelectPullRequest loads the PR row without its reviewers. With forUpdate
// the row is locked so concurrent reassignments on the same PR serialize.
func (r *Repository) SelectPullRequest(ctx context.Context, tx pgx.Tx, prID string, forUpdate bool) (*models.PullRequest, error) {
	q := r.builder.
		Select("id", "pr_name", "author_id", "pr_status", "created_at", "merged_at").
		From("pull_requests").
		Where(squirrel.Eq{"id": prID})

	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, wrapDBError(err, "SelectPullRequest: build query")
	}

	var pr models.PullRequest
	err = r.db(tx).QueryRow(ctx, query, args...).
		Scan(&pr.ID, &pr.Name, &pr.AuthorID, &pr.Status, &pr.CreatedAt, &pr.MergedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "SelectPullRequest: query row")
	}

	return &pr, nil
}

func (r *Repository) InsertPullRequest(ctx context.Context, tx pgx.Tx, pullRequest models.CreatePRRequest) (time.Time, error) {
	query, args, err := r.builder.
		Insert("pull_requests").
		Columns("id", "pr_name", "author_id", "pr_status").
		Values(pullRequest.ID, pullRequest.Name, pullRequest.AuthorID, models.StatusOpen).
		Suffix("RETURNING created_at").
		ToSql()

	if err != nil {
		return time.Time{}, wrapDBError(err, "InsertPullRequest: build query")
	}

	var createdAt time.Time
	err = r.db(tx).QueryRow(ctx, query, args...).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return time.Time{}, models.ErrPRExists
			case pgForeignKeyViolation:
				return time.Time{}, models.ErrNotFound.WithMessage("author not found")
			}
		}
		return time.Time{}, wrapDBError(err, "InsertPullRequest: execute query")
	}

	return createdAt, nil
}

// MergePullRequest moves the PR to MERGED, stamping merged_at only on the
// first merge. Repeating the call leaves the original timestamp.
func (r *Repository) MergePullRequest(ctx context.Context, tx pgx.Tx, prID string) (*models.PullRequest, error) {
	query, args, err := r.builder.
		Update("pull_requests").
		Set("pr_status", models.StatusMerged).
		Set("merged_at", squirrel.Expr("COALESCE(merged_at, NOW())")).
		Where(squirrel.Eq{"id": prID}).
		Suffix("RETURNING id, pr_name, author_id, pr_status, created_at, merged_at").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "MergePullRequest: build query")
	}

	var pr models.PullRequest
	err = r.db(tx).QueryRow(ctx, query, args...).
		Scan(&pr.ID, &pr.Name, &pr.AuthorID, &pr.Status, &pr.CreatedAt, &pr.MergedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "MergePullRequest: query row")
	}

	return &pr, nil
}

func (r *Repository) SelectPullRequestReviewers(ctx context.Context, tx pgx.Tx, prID string) ([]string, error) {
	query, args, err := r.builder.
		Select("reviewer_id").
		From("pr_reviewers").
		Where(squirrel.Eq{"pr_id": prID}).
		OrderBy("reviewer_id").
		ToSql()

	if err != nil {
		return nil, wrapDBError(err, "SelectPullRequestReviewers: build query")
	}

	rows, err := r.db(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "SelectPullRequestReviewers: execute query")
	}
	defer rows.Close()

	reviewers := make([]string, 0)
	for rows.Next() {
		var reviewerID string
		if err = rows.Scan(&reviewerID); err != nil {
			return nil, wrapDBError(err, "SelectPullRequestReviewers: scan row")
		}

		reviewers = append(reviewers, reviewerID)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "SelectPullRequestReviewers: rows")
	}

	return reviewers, nil
}

// SelectReviewCandidates returns the ids of active members of teamName not
// listed in exclude, ordered by id. Sampling happens in the service layer.
func (r *Repository) SelectReviewCandidates(ctx context.Context, tx pgx.Tx, teamName string, exclude []string) ([]string, error) {
	q := r.builder.
		Select("id").
		From("users").
		Where(squirrel.Eq{
			"team_name": teamName,
			"is_active": true,
		}).
		OrderBy("id")

	if len(exclude) > 0 {
		q = q.Where(squirrel.NotEq{"id": exclude})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, wrapDBError(err, "SelectReviewCandidates: build query")
	}

	rows, err := r.db(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "SelectReviewCandidates: execute query")
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, wrapDBError(err, "SelectReviewCandidates: scan row")
		}
		candidates = append(candidates, id)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "SelectReviewCandidates: rows")
	}

	return candidates, nil
}

func (r *Repository) InsertReviewer(ctx context.Context, tx pgx.Tx, prID, reviewerID string) error {
	query, args, err := r.builder.
		Insert("pr_reviewers").
		Columns("pr_id", "reviewer_id").
		Values(prID, reviewerID).
		ToSql()

	if err != nil {
		return wrapDBError(err, "InsertReviewer: build query")
	}

	_, err = r.db(tx).Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return models.ErrNotFound
		}
		return wrapDBError(err, "InsertReviewer: execute query")
	}

	return nil
}

func (r *Repository) DeleteReviewer(ctx context.Context, tx pgx.Tx, prID, reviewerID string) error {
	query, args, err := r.builder.
		Delete("pr_reviewers").
		Where(squirrel.Eq{
			"pr_id":       prID,
			"reviewer_id": reviewerID,
		}).
		ToSql()

	if err != nil {
		return wrapDBError(err, "DeleteReviewer: build query")
	}

	_, err = r.db(tx).Exec(ctx, query, args...)
	if err != nil {
		return wrapDBError(err, "DeleteReviewer: execute query")
	}

	return nil
}
