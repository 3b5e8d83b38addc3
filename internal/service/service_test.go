package service_test

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"prmanager/internal/models"
	"prmanager/internal/selector"
	"prmanager/internal/service"
)

// fakeRepo keeps the whole store in maps. BeginTx snapshots the state and
// Rollback restores it unless the transaction committed, so the engine's
// one-transaction-per-operation behavior is observable in tests.
type fakeRepo struct {
	teams map[string]struct{}
	users map[string]models.User
	prs   map[string]*prRecord
}

type prRecord struct {
	name      string
	authorID  string
	status    models.PRStatus
	createdAt time.Time
	mergedAt  *time.Time
	reviewers []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		teams: make(map[string]struct{}),
		users: make(map[string]models.User),
		prs:   make(map[string]*prRecord),
	}
}

func (f *fakeRepo) snapshot() *fakeRepo {
	snap := newFakeRepo()
	for k := range f.teams {
		snap.teams[k] = struct{}{}
	}
	for k, v := range f.users {
		snap.users[k] = v
	}
	for k, v := range f.prs {
		rec := *v
		rec.reviewers = append([]string(nil), v.reviewers...)
		snap.prs[k] = &rec
	}
	return snap
}

func (f *fakeRepo) restore(snap *fakeRepo) {
	f.teams = snap.teams
	f.users = snap.users
	f.prs = snap.prs
}

type fakeTx struct {
	pgx.Tx

	repo      *fakeRepo
	snap      *fakeRepo
	committed bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.repo.restore(t.snap)
	return nil
}

func (f *fakeRepo) BeginTx(context.Context) (pgx.Tx, error) {
	return &fakeTx{repo: f, snap: f.snapshot()}, nil
}

func (f *fakeRepo) TeamExists(_ context.Context, _ pgx.Tx, teamName string) (bool, error) {
	_, ok := f.teams[teamName]
	return ok, nil
}

func (f *fakeRepo) InsertTeam(_ context.Context, _ pgx.Tx, teamName string) error {
	if _, ok := f.teams[teamName]; ok {
		return models.ErrTeamExists
	}
	f.teams[teamName] = struct{}{}
	return nil
}

func (f *fakeRepo) UpsertTeamMember(_ context.Context, _ pgx.Tx, member models.TeamMember, teamName string) error {
	f.users[member.ID] = models.User{
		ID:       member.ID,
		Username: member.Username,
		TeamName: teamName,
		IsActive: member.IsActive,
	}
	return nil
}

func (f *fakeRepo) SelectTeam(_ context.Context, _ pgx.Tx, teamName string) ([]models.TeamMember, error) {
	members := make([]models.TeamMember, 0)
	for _, u := range f.users {
		if u.TeamName == teamName {
			members = append(members, models.TeamMember{ID: u.ID, Username: u.Username, IsActive: u.IsActive})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (f *fakeRepo) SelectUser(_ context.Context, _ pgx.Tx, userID string) (models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) UpdateUserStatus(_ context.Context, _ pgx.Tx, userID string, isActive bool) (models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	u.IsActive = isActive
	f.users[userID] = u
	return u, nil
}

func (f *fakeRepo) DeactivateUsers(_ context.Context, _ pgx.Tx, userIDs []string) ([]string, error) {
	seen := make(map[string]bool)
	var deactivated []string
	for _, id := range userIDs {
		u, ok := f.users[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		u.IsActive = false
		f.users[id] = u
		deactivated = append(deactivated, id)
	}
	return deactivated, nil
}

func (f *fakeRepo) selectReviews(reviewerID string, openOnly bool) []models.PullRequestShort {
	reviews := make([]models.PullRequestShort, 0)
	for id, rec := range f.prs {
		if openOnly && rec.status != models.StatusOpen {
			continue
		}
		for _, r := range rec.reviewers {
			if r == reviewerID {
				reviews = append(reviews, models.PullRequestShort{
					ID: id, Name: rec.name, AuthorID: rec.authorID, Status: rec.status,
				})
				break
			}
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID < reviews[j].ID })
	return reviews
}

func (f *fakeRepo) SelectUserReviews(_ context.Context, _ pgx.Tx, reviewerID string) ([]models.PullRequestShort, error) {
	return f.selectReviews(reviewerID, false), nil
}

func (f *fakeRepo) SelectOpenReviews(_ context.Context, _ pgx.Tx, reviewerID string) ([]models.PullRequestShort, error) {
	return f.selectReviews(reviewerID, true), nil
}

func (f *fakeRepo) PullRequestExists(_ context.Context, _ pgx.Tx, prID string) (bool, error) {
	_, ok := f.prs[prID]
	return ok, nil
}

func (f *fakeRepo) SelectPullRequest(_ context.Context, _ pgx.Tx, prID string, _ bool) (*models.PullRequest, error) {
	rec, ok := f.prs[prID]
	if !ok {
		return nil, models.ErrNotFound
	}
	createdAt := rec.createdAt
	return &models.PullRequest{
		ID:        prID,
		Name:      rec.name,
		AuthorID:  rec.authorID,
		Status:    rec.status,
		CreatedAt: &createdAt,
		MergedAt:  rec.mergedAt,
	}, nil
}

func (f *fakeRepo) InsertPullRequest(_ context.Context, _ pgx.Tx, req models.CreatePRRequest) (time.Time, error) {
	if _, ok := f.prs[req.ID]; ok {
		return time.Time{}, models.ErrPRExists
	}
	if _, ok := f.users[req.AuthorID]; !ok {
		return time.Time{}, models.ErrNotFound.WithMessage("author not found")
	}
	now := time.Now()
	f.prs[req.ID] = &prRecord{
		name:      req.Name,
		authorID:  req.AuthorID,
		status:    models.StatusOpen,
		createdAt: now,
	}
	return now, nil
}

func (f *fakeRepo) MergePullRequest(_ context.Context, _ pgx.Tx, prID string) (*models.PullRequest, error) {
	rec, ok := f.prs[prID]
	if !ok {
		return nil, models.ErrNotFound
	}
	rec.status = models.StatusMerged
	if rec.mergedAt == nil {
		now := time.Now()
		rec.mergedAt = &now
	}
	createdAt := rec.createdAt
	return &models.PullRequest{
		ID:        prID,
		Name:      rec.name,
		AuthorID:  rec.authorID,
		Status:    rec.status,
		CreatedAt: &createdAt,
		MergedAt:  rec.mergedAt,
	}, nil
}

func (f *fakeRepo) SelectPullRequestReviewers(_ context.Context, _ pgx.Tx, prID string) ([]string, error) {
	rec, ok := f.prs[prID]
	if !ok {
		return nil, nil
	}
	reviewers := append([]string(nil), rec.reviewers...)
	sort.Strings(reviewers)
	return reviewers, nil
}

func (f *fakeRepo) SelectReviewCandidates(_ context.Context, _ pgx.Tx, teamName string, exclude []string) ([]string, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var candidates []string
	for _, u := range f.users {
		if u.TeamName == teamName && u.IsActive && !excluded[u.ID] {
			candidates = append(candidates, u.ID)
		}
	}
	sort.Strings(candidates)
	return candidates, nil
}

func (f *fakeRepo) InsertReviewer(_ context.Context, _ pgx.Tx, prID, reviewerID string) error {
	rec, ok := f.prs[prID]
	if !ok {
		return models.ErrNotFound
	}
	rec.reviewers = append(rec.reviewers, reviewerID)
	return nil
}

func (f *fakeRepo) DeleteReviewer(_ context.Context, _ pgx.Tx, prID, reviewerID string) error {
	rec, ok := f.prs[prID]
	if !ok {
		return nil
	}
	kept := rec.reviewers[:0]
	for _, r := range rec.reviewers {
		if r != reviewerID {
			kept = append(kept, r)
		}
	}
	rec.reviewers = kept
	return nil
}

func (f *fakeRepo) SelectStats(context.Context) (models.StatsResponse, error) {
	return models.StatsResponse{
		TeamsCount: len(f.teams),
		UsersCount: len(f.users),
		PRsCount:   len(f.prs),
	}, nil
}

func (f *fakeRepo) SelectUserStats(context.Context) (*models.UserStatsResponse, error) {
	stats := &models.UserStatsResponse{TotalUsers: len(f.users)}
	for _, u := range f.users {
		if u.IsActive {
			stats.ActiveUsers++
		} else {
			stats.InactiveUsers++
		}
	}
	return stats, nil
}

func (f *fakeRepo) SelectPullRequestStats(context.Context) (*models.PullRequestsStatsResponse, error) {
	stats := &models.PullRequestsStatsResponse{TotalPRs: len(f.prs)}
	for _, rec := range f.prs {
		if rec.status == models.StatusOpen {
			stats.OpenPRs++
		} else {
			stats.MergedPRs++
		}
	}
	return stats, nil
}

func (f *fakeRepo) SelectReviewerStats(context.Context) (*models.ReviewersStatsResponse, error) {
	return &models.ReviewersStatsResponse{}, nil
}

func newTestService(seed int64) (*service.Service, *fakeRepo) {
	repo := newFakeRepo()
	svc := service.NewService(repo, selector.New(rand.New(rand.NewSource(seed))))
	return svc, repo
}

func mustAddTeam(t *testing.T, svc *service.Service, name string, members ...models.TeamMember) {
	t.Helper()
	if _, err := svc.AddTeam(context.Background(), models.AddTeamRequest{Name: name, Members: members}); err != nil {
		t.Fatalf("AddTeam(%s): %v", name, err)
	}
}

func member(id string, active bool) models.TeamMember {
	return models.TeamMember{ID: id, Username: "user " + id, IsActive: active}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestAddTeamDuplicate(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha", member("u1", true))

	_, err := svc.AddTeam(context.Background(), models.AddTeamRequest{
		Name:    "alpha",
		Members: []models.TeamMember{member("u2", true)},
	})
	if !errors.Is(err, models.ErrTeamExists) {
		t.Fatalf("expected ErrTeamExists, got %v", err)
	}
}

func TestAddTeamUpsertMovesUser(t *testing.T) {
	svc, repo := newTestService(1)
	mustAddTeam(t, svc, "alpha", member("u1", true))
	mustAddTeam(t, svc, "beta", member("u1", false))

	u := repo.users["u1"]
	if u.TeamName != "beta" || u.IsActive {
		t.Fatalf("expected u1 moved to beta inactive, got %+v", u)
	}
}

func TestGetTeamUnknown(t *testing.T) {
	svc, _ := newTestService(1)

	_, err := svc.GetTeam(context.Background(), "ghost")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetUserStatus(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha", member("u1", true))

	user, err := svc.SetUserStatus(context.Background(), models.SetUserStatusRequest{ID: "u1", IsActive: false})
	if err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	if user.IsActive {
		t.Fatal("expected user to be inactive")
	}

	_, err = svc.SetUserStatus(context.Background(), models.SetUserStatusRequest{ID: "ghost", IsActive: true})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePRAssignsTwoDistinctTeammates(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true), member("uD", true))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-1", Name: "feature", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	if pr.Status != models.StatusOpen {
		t.Fatalf("expected OPEN, got %s", pr.Status)
	}
	if len(pr.AssignedReviewers) != 2 {
		t.Fatalf("expected 2 reviewers, got %v", pr.AssignedReviewers)
	}
	if pr.AssignedReviewers[0] == pr.AssignedReviewers[1] {
		t.Fatalf("duplicate reviewer: %v", pr.AssignedReviewers)
	}
	for _, r := range pr.AssignedReviewers {
		if r == "uA" {
			t.Fatal("author assigned as reviewer")
		}
		if !contains([]string{"uB", "uC", "uD"}, r) {
			t.Fatalf("reviewer %q outside the team", r)
		}
	}
	if pr.CreatedAt == nil {
		t.Fatal("expected createdAt to be set")
	}
}

func TestCreatePRCappedByAvailability(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "beta", member("uA", true), member("uB", true))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-2", Name: "fix", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	if len(pr.AssignedReviewers) != 1 || pr.AssignedReviewers[0] != "uB" {
		t.Fatalf("expected exactly [uB], got %v", pr.AssignedReviewers)
	}
}

func TestCreatePRNoCandidates(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "solo", member("uA", true), member("uB", false))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-3", Name: "lonely", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	if len(pr.AssignedReviewers) != 0 {
		t.Fatalf("expected no reviewers, got %v", pr.AssignedReviewers)
	}
}

func TestCreatePRDuplicateIDLeavesStateIntact(t *testing.T) {
	svc, repo := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true))

	first, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-4", Name: "original", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	_, err = svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-4", Name: "imposter", AuthorID: "uB",
	})
	if !errors.Is(err, models.ErrPRExists) {
		t.Fatalf("expected ErrPRExists, got %v", err)
	}

	rec := repo.prs["pr-4"]
	if rec.name != "original" || rec.authorID != "uA" {
		t.Fatalf("existing PR mutated: %+v", rec)
	}

	reviewers := append([]string(nil), rec.reviewers...)
	sort.Strings(reviewers)
	for i, r := range first.AssignedReviewers {
		if reviewers[i] != r {
			t.Fatalf("reviewer set mutated: %v vs %v", reviewers, first.AssignedReviewers)
		}
	}
}

func TestCreatePRUnknownAuthor(t *testing.T) {
	svc, _ := newTestService(1)

	_, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-5", Name: "orphan", AuthorID: "ghost",
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthorNeverReviewerAcrossSeeds(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		svc, _ := newTestService(seed)
		mustAddTeam(t, svc, "alpha",
			member("uA", true), member("uB", true), member("uC", true),
			member("uD", true), member("uE", true))

		pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
			ID: "pr-seed", Name: "n", AuthorID: "uC",
		})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}

		seen := make(map[string]bool)
		for _, r := range pr.AssignedReviewers {
			if r == "uC" {
				t.Fatalf("seed %d: author assigned as reviewer", seed)
			}
			if seen[r] {
				t.Fatalf("seed %d: duplicate reviewer %q", seed, r)
			}
			seen[r] = true
		}
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true))

	if _, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-6", Name: "m", AuthorID: "uA",
	}); err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	first, err := svc.MergePullRequest(context.Background(), "pr-6")
	if err != nil {
		t.Fatalf("MergePullRequest: %v", err)
	}
	if first.Status != models.StatusMerged || first.MergedAt == nil {
		t.Fatalf("expected MERGED with mergedAt, got %+v", first)
	}

	second, err := svc.MergePullRequest(context.Background(), "pr-6")
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if !second.MergedAt.Equal(*first.MergedAt) {
		t.Fatalf("mergedAt changed on second merge: %v vs %v", second.MergedAt, first.MergedAt)
	}
	if len(second.AssignedReviewers) != len(first.AssignedReviewers) {
		t.Fatalf("reviewer set changed on second merge: %v vs %v",
			second.AssignedReviewers, first.AssignedReviewers)
	}
}

func TestMergeUnknownPR(t *testing.T) {
	svc, _ := newTestService(1)

	_, err := svc.MergePullRequest(context.Background(), "ghost")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReassignReplacesWithFreshReviewer(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true), member("uD", true))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-7", Name: "r", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	old := pr.AssignedReviewers[0]
	remaining := pr.AssignedReviewers[1]

	updated, replacedBy, err := svc.ReassignPullRequestReviewer(context.Background(), models.ReassignPRReviewerRequest{
		PullRequestID: "pr-7", OldReviewerID: old,
	})
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}

	if replacedBy == old || replacedBy == remaining || replacedBy == "uA" {
		t.Fatalf("replacement %q collides with author or existing reviewers", replacedBy)
	}
	if len(updated.AssignedReviewers) != 2 {
		t.Fatalf("expected 2 reviewers after reassign, got %v", updated.AssignedReviewers)
	}
	if contains(updated.AssignedReviewers, old) {
		t.Fatalf("old reviewer still assigned: %v", updated.AssignedReviewers)
	}
	if !contains(updated.AssignedReviewers, replacedBy) {
		t.Fatalf("replacement missing from reviewer list: %v", updated.AssignedReviewers)
	}
}

func TestReassignOnMergedPR(t *testing.T) {
	svc, repo := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true), member("uD", true))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-8", Name: "m", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}
	if _, err = svc.MergePullRequest(context.Background(), "pr-8"); err != nil {
		t.Fatalf("MergePullRequest: %v", err)
	}

	before := append([]string(nil), repo.prs["pr-8"].reviewers...)

	_, _, err = svc.ReassignPullRequestReviewer(context.Background(), models.ReassignPRReviewerRequest{
		PullRequestID: "pr-8", OldReviewerID: pr.AssignedReviewers[0],
	})
	if !errors.Is(err, models.ErrPRMerged) {
		t.Fatalf("expected ErrPRMerged, got %v", err)
	}

	after := repo.prs["pr-8"].reviewers
	if len(after) != len(before) {
		t.Fatalf("reviewer set changed on failed reassign: %v vs %v", after, before)
	}
}

func TestReassignNotAssigned(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true), member("uD", true))

	if _, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-9", Name: "n", AuthorID: "uA",
	}); err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	_, _, err := svc.ReassignPullRequestReviewer(context.Background(), models.ReassignPRReviewerRequest{
		PullRequestID: "pr-9", OldReviewerID: "uA",
	})
	if !errors.Is(err, models.ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got %v", err)
	}
}

func TestReassignNoCandidate(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "tiny",
		member("uA", true), member("uB", true), member("uC", true))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-10", Name: "n", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}
	if len(pr.AssignedReviewers) != 2 {
		t.Fatalf("expected both teammates assigned, got %v", pr.AssignedReviewers)
	}

	_, _, err = svc.ReassignPullRequestReviewer(context.Background(), models.ReassignPRReviewerRequest{
		PullRequestID: "pr-10", OldReviewerID: pr.AssignedReviewers[0],
	})
	if !errors.Is(err, models.ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
}

func TestReassignUnknownPR(t *testing.T) {
	svc, _ := newTestService(1)

	_, _, err := svc.ReassignPullRequestReviewer(context.Background(), models.ReassignPRReviewerRequest{
		PullRequestID: "ghost", OldReviewerID: "uB",
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMassDeactivateReplacesReviewer(t *testing.T) {
	svc, repo := newTestService(1)
	mustAddTeam(t, svc, "alpha",
		member("uA", true), member("uB", true), member("uC", true), member("uD", true))

	pr, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-11", Name: "n", AuthorID: "uA",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	victim := pr.AssignedReviewers[0]
	co := pr.AssignedReviewers[1]

	count, err := svc.MassDeactivate(context.Background(), []string{victim})
	if err != nil {
		t.Fatalf("MassDeactivate: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deactivated, got %d", count)
	}

	reviewers := repo.prs["pr-11"].reviewers
	if len(reviewers) != 2 {
		t.Fatalf("expected reviewer count preserved, got %v", reviewers)
	}
	if contains(reviewers, victim) {
		t.Fatalf("deactivated user still assigned: %v", reviewers)
	}
	if !contains(reviewers, co) {
		t.Fatalf("co-reviewer dropped: %v", reviewers)
	}
	for _, r := range reviewers {
		if r == "uA" {
			t.Fatalf("author assigned by cascade: %v", reviewers)
		}
		if !repo.users[r].IsActive {
			t.Fatalf("inactive reviewer left on open PR: %v", reviewers)
		}
	}
}

func TestMassDeactivateWithoutCandidateDropsAssignment(t *testing.T) {
	svc, repo := newTestService(1)
	mustAddTeam(t, svc, "beta", member("uA", true), member("uB", true))

	if _, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-12", Name: "n", AuthorID: "uA",
	}); err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	count, err := svc.MassDeactivate(context.Background(), []string{"uB"})
	if err != nil {
		t.Fatalf("MassDeactivate: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected deactivated_count 1, got %d", count)
	}

	if got := repo.prs["pr-12"].reviewers; len(got) != 0 {
		t.Fatalf("expected reviewer removed without replacement, got %v", got)
	}
}

func TestMassDeactivateSkipsUnknownIDs(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha", member("uA", true))

	count, err := svc.MassDeactivate(context.Background(), []string{"ghost1", "uA", "ghost2"})
	if err != nil {
		t.Fatalf("MassDeactivate: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only existing user counted, got %d", count)
	}
}

func TestMassDeactivateIgnoresMergedPRs(t *testing.T) {
	svc, repo := newTestService(1)
	mustAddTeam(t, svc, "beta", member("uA", true), member("uB", true))

	if _, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-13", Name: "n", AuthorID: "uA",
	}); err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}
	if _, err := svc.MergePullRequest(context.Background(), "pr-13"); err != nil {
		t.Fatalf("MergePullRequest: %v", err)
	}

	if _, err := svc.MassDeactivate(context.Background(), []string{"uB"}); err != nil {
		t.Fatalf("MassDeactivate: %v", err)
	}

	if got := repo.prs["pr-13"].reviewers; !contains(got, "uB") {
		t.Fatalf("merged PR reviewer set changed by cascade: %v", got)
	}
}

func TestGetUserReviews(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "beta", member("uA", true), member("uB", true))

	if _, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-14", Name: "n", AuthorID: "uA",
	}); err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	reviews, err := svc.GetUserReviews(context.Background(), "uB")
	if err != nil {
		t.Fatalf("GetUserReviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].ID != "pr-14" {
		t.Fatalf("expected [pr-14], got %v", reviews)
	}

	empty, err := svc.GetUserReviews(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetUserReviews unknown user: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list for unknown user, got %v", empty)
	}
}

func TestGetStats(t *testing.T) {
	svc, _ := newTestService(1)
	mustAddTeam(t, svc, "alpha", member("uA", true), member("uB", true))

	if _, err := svc.CreatePullRequest(context.Background(), models.CreatePRRequest{
		ID: "pr-15", Name: "n", AuthorID: "uA",
	}); err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TeamsCount != 1 || stats.UsersCount != 2 || stats.PRsCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
