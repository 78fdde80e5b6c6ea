package services

import (
	"testing"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrestigeBadge(t *testing.T) {
	assert.Equal(t, BadgeNewbie, PrestigeBadge(nil))
	assert.Equal(t, BadgeNewbie, PrestigeBadge(&models.User{AccessCount: 9}))
	assert.Equal(t, BadgeRegular, PrestigeBadge(&models.User{AccessCount: 10}))
	assert.Equal(t, BadgeExpert, PrestigeBadge(&models.User{AccessCount: 100}))
	assert.Equal(t, BadgeMaster, PrestigeBadge(&models.User{AccessCount: 1000}))
	assert.Equal(t, BadgeFounder, PrestigeBadge(&models.User{IsPlatformAdmin: true}))
}

func TestPreviousWeek_StartsOnMonday(t *testing.T) {
	// Sunday 2026-06-14 23:00 ICT
	now := time.Date(2026, 6, 14, 16, 0, 0, 0, time.UTC)
	start, end := PreviousWeek(now, testLoc)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, testLoc), start)
	assert.Equal(t, time.Date(2026, 6, 8, 0, 0, 0, 0, testLoc), end)

	start, end = PreviousMonth(now, testLoc)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, testLoc), start)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, testLoc), end)
}

func TestCountCompletions_PreviousWeekWindow(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "windowed")
	// Wednesday 2026-06-10; the previous week is Mon 06-01 .. Mon 06-08 in ICT
	now := time.Date(2026, 6, 10, 5, 0, 0, 0, time.UTC)

	tuesday := time.Date(2026, 6, 2, 9, 0, 0, 0, testLoc)
	tooEarly := time.Date(2026, 5, 31, 9, 0, 0, 0, testLoc)
	for _, at := range []time.Time{tuesday, tooEarly} {
		done := at.UTC()
		require.NoError(t, db.Create(&models.Task{UserID: u.ID, Name: "t", IsDone: true, CompletedAt: &done}).Error)
	}

	start, end := PreviousWeek(now, testLoc)
	n, err := CountCompletions(db, u.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestComputeBadges_Order(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "achiever")
	require.NoError(t, db.Model(u).Update("access_count", 15).Error)
	u.AccessCount = 15
	now := time.Date(2026, 6, 10, 5, 0, 0, 0, time.UTC)

	_, err := CreateTeam(db, u.ID, "Mine")
	require.NoError(t, err)

	lastWeek := time.Date(2026, 6, 3, 5, 0, 0, 0, time.UTC)
	for i := 0; i < weeklyCompletionThreshold; i++ {
		done := lastWeek.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.Create(&models.Task{UserID: u.ID, Name: "w", IsDone: true, CompletedAt: &done}).Error)
	}
	// this week's completions do not count
	thisWeek := now.Add(-time.Hour)
	require.NoError(t, db.Create(&models.Task{UserID: u.ID, Name: "now", IsDone: true, CompletedAt: &thisWeek}).Error)

	vip := &models.BadgeDefinition{Name: "VIP"}
	old := &models.BadgeDefinition{Name: "Expired"}
	require.NoError(t, db.Create(vip).Error)
	require.NoError(t, db.Create(old).Error)
	past := now.Add(-time.Hour)
	require.NoError(t, db.Create(&models.UserBadgeAssignment{UserID: u.ID, BadgeID: vip.ID}).Error)
	require.NoError(t, db.Create(&models.UserBadgeAssignment{UserID: u.ID, BadgeID: old.ID, ExpiresAt: &past}).Error)

	badges := ComputeBadges(db, u, now, testLoc)
	assert.Equal(t, []string{BadgeRegular, BadgeTeamLeader, BadgeStarOfWeek, "VIP"}, badges)

	view := BadgesFor(db, u, now, testLoc)
	assert.Equal(t, BadgeRegular, view.Title)
}

func TestComputeTeamBadges_MVPNeedsCompany(t *testing.T) {
	db := newTestDB(t)
	lead := mkUser(t, db, "lead")
	mate := mkUser(t, db, "mate")
	require.NoError(t, db.Model(lead).Update("access_count", 50).Error)
	lead.AccessCount = 50

	team, err := CreateTeam(db, lead.ID, "Pair")
	require.NoError(t, err)
	assert.Equal(t, []string{BadgeTeamLeader}, ComputeTeamBadges(db, lead, team.ID))

	addMember(t, db, team.ID, mate.ID, models.RoleMember, time.Now())
	assert.Equal(t, []string{BadgeTeamLeader, BadgeTeamMVP}, ComputeTeamBadges(db, lead, team.ID))
	assert.Empty(t, ComputeTeamBadges(db, mate, team.ID))
}

func TestAssignBadge(t *testing.T) {
	db := newTestDB(t)
	admin := mkUser(t, db, "root")
	target := mkUser(t, db, "target")
	badge, err := CreateBadgeDefinition(db, BadgeInput{Name: strPtr("Helper")})
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	days := 3
	a, err := AssignBadge(db, admin.ID, "target@example.com", badge.ID, &days, now)
	require.NoError(t, err)
	assert.Equal(t, target.ID, a.UserID)
	require.NotNil(t, a.ExpiresAt)
	assert.True(t, now.AddDate(0, 0, 3).Equal(*a.ExpiresAt))

	zero := 0
	_, err = AssignBadge(db, admin.ID, "target", badge.ID, &zero, now)
	assert.Error(t, err)

	rows, err := ListAssignments(db, badge.ID, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Active)
	assert.Equal(t, "target", rows[0].Username)

	rows, err = ListAssignments(db, 0, now.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Active)

	require.NoError(t, DeleteBadgeDefinition(db, badge.ID))
	rows, err = ListAssignments(db, 0, now)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func strPtr(s string) *string { return &s }

func TestComputeBadges_MonthlyThreshold(t *testing.T) {
	db := newTestDB(t)
	star := mkUser(t, db, "monthly_star")
	almost := mkUser(t, db, "almost_star")
	now := time.Date(2026, 6, 10, 5, 0, 0, 0, time.UTC)
	may := time.Date(2026, 5, 5, 3, 0, 0, 0, time.UTC)

	for i := 0; i < monthlyCompletionThreshold; i++ {
		done := may.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.Create(&models.Task{UserID: star.ID, Name: "m", IsDone: true, CompletedAt: &done}).Error)
		if i > 0 {
			require.NoError(t, db.Create(&models.Task{UserID: almost.ID, Name: "m", IsDone: true, CompletedAt: &done}).Error)
		}
	}

	assert.Equal(t, []string{BadgeNewbie, BadgeStarOfMonth}, ComputeBadges(db, star, now, testLoc))
	assert.Equal(t, []string{BadgeNewbie}, ComputeBadges(db, almost, now, testLoc))
}

func TestComputeBadges_MVPCountedOnce(t *testing.T) {
	db := newTestDB(t)
	mvp := mkUser(t, db, "everywhere")
	require.NoError(t, db.Model(mvp).Update("access_count", 50).Error)
	mvp.AccessCount = 50
	now := time.Now()

	for _, name := range []string{"lead_one", "lead_two"} {
		lead := mkUser(t, db, name)
		team, err := CreateTeam(db, lead.ID, "Team "+name)
		require.NoError(t, err)
		addMember(t, db, team.ID, mvp.ID, models.RoleMember, now)
	}

	assert.Equal(t, []string{BadgeRegular, BadgeTeamMVP}, ComputeBadges(db, mvp, now, testLoc))
}

func TestComputeBadges_FailingStepContributesNothing(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "resilient")
	require.NoError(t, db.Model(u).Update("access_count", 15).Error)
	u.AccessCount = 15
	now := time.Now()

	vip := &models.BadgeDefinition{Name: "VIP"}
	require.NoError(t, db.Create(vip).Error)
	require.NoError(t, db.Create(&models.UserBadgeAssignment{UserID: u.ID, BadgeID: vip.ID}).Error)

	require.NoError(t, db.Migrator().DropTable(&models.Team{}))

	assert.Equal(t, []string{BadgeRegular, "VIP"}, ComputeBadges(db, u, now, testLoc))
}

func TestComputeBadges_PanicFallsBackToPrestige(t *testing.T) {
	db := newTestDB(t)
	assert.Equal(t, []string{BadgeNewbie}, ComputeBadges(db, nil, time.Now(), testLoc))
}
