package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func owners(t *testing.T, db *gorm.DB, teamID uint) []models.TeamMembership {
	t.Helper()
	var out []models.TeamMembership
	require.NoError(t, db.Where("team_id = ? AND role = ?", teamID, models.RoleOwner).Find(&out).Error)
	return out
}

func TestCreateTeam_CreatorIsOwner(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "olivia")

	team, err := CreateTeam(db, u.ID, "  Design  ")
	require.NoError(t, err)
	assert.Equal(t, "Design", team.Name)

	got := owners(t, db, team.ID)
	require.Len(t, got, 1)
	assert.Equal(t, u.ID, got[0].UserID)

	_, err = CreateTeam(db, u.ID, " ")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLeaveTeam_OwnerHandsOverToEarliestAdmin(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "owner1")
	early := mkUser(t, db, "member_early")
	admin := mkUser(t, db, "admin_late")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	team, err := CreateTeam(db, owner.ID, "Core")
	require.NoError(t, err)
	addMember(t, db, team.ID, early.ID, models.RoleMember, base.Add(time.Hour))
	addMember(t, db, team.ID, admin.ID, models.RoleAdmin, base.Add(2*time.Hour))

	res, err := LeaveTeam(db, team.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, res.TeamDeleted)
	require.NotNil(t, res.NewOwnerID)
	assert.Equal(t, admin.ID, *res.NewOwnerID)

	got := owners(t, db, team.ID)
	require.Len(t, got, 1)
	assert.Equal(t, admin.ID, got[0].UserID)

	var stored models.Team
	require.NoError(t, db.First(&stored, team.ID).Error)
	assert.Equal(t, admin.ID, stored.OwnerID)
}

func TestLeaveTeam_OwnerFallsBackToEarliestMember(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "owner2")
	first := mkUser(t, db, "first")
	second := mkUser(t, db, "second")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	team, err := CreateTeam(db, owner.ID, "Ops")
	require.NoError(t, err)
	addMember(t, db, team.ID, second.ID, models.RoleMember, base.Add(2*time.Hour))
	addMember(t, db, team.ID, first.ID, models.RoleMember, base.Add(time.Hour))

	res, err := LeaveTeam(db, team.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, res.NewOwnerID)
	assert.Equal(t, first.ID, *res.NewOwnerID)
}

func TestLeaveTeam_LastOwnerDeletesTeamButKeepsTasks(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "solo")
	team, err := CreateTeam(db, owner.ID, "Solo")
	require.NoError(t, err)
	task, err := CreateTeamTask(db, team.ID, owner.ID, TaskInput{Name: "team task"})
	require.NoError(t, err)

	res, err := LeaveTeam(db, team.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, res.TeamDeleted)

	var count int64
	require.NoError(t, db.Model(&models.Team{}).Where("id = ?", team.ID).Count(&count).Error)
	assert.Zero(t, count)

	var kept models.Task
	require.NoError(t, db.First(&kept, task.ID).Error)
	assert.Nil(t, kept.TeamID)
}

func TestLeaveTeam_NonMember(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "own")
	outsider := mkUser(t, db, "out")
	team, err := CreateTeam(db, owner.ID, "T")
	require.NoError(t, err)

	_, err = LeaveTeam(db, team.ID, outsider.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestChangeMemberRole_OwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "boss")
	admin := mkUser(t, db, "lead")
	member := mkUser(t, db, "dev")
	team, err := CreateTeam(db, owner.ID, "Eng")
	require.NoError(t, err)
	addMember(t, db, team.ID, admin.ID, models.RoleAdmin, time.Now())
	addMember(t, db, team.ID, member.ID, models.RoleMember, time.Now())

	err = ChangeMemberRole(db, team.ID, admin.ID, member.ID, models.RoleAdmin)
	assert.True(t, errors.Is(err, ErrForbidden))

	require.NoError(t, ChangeMemberRole(db, team.ID, owner.ID, member.ID, models.RoleAdmin))
	m, err := loadMembership(db, team.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, m.Role)

	err = ChangeMemberRole(db, team.ID, owner.ID, owner.ID, models.RoleMember)
	assert.Error(t, err)
	assert.Len(t, owners(t, db, team.ID), 1)
}

func TestRateMember_UpsertsAndRanks(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "rater")
	member := mkUser(t, db, "ratee")
	team, err := CreateTeam(db, owner.ID, "Sales")
	require.NoError(t, err)
	addMember(t, db, team.ID, member.ID, models.RoleMember, time.Now())
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	_, err = RateMember(db, team.ID, owner.ID, member.ID, 3, "ok", now)
	require.NoError(t, err)
	_, err = RateMember(db, team.ID, owner.ID, member.ID, 5, "great", now.Add(time.Hour))
	require.NoError(t, err)

	var ratings []models.MemberRating
	require.NoError(t, db.Where("team_id = ?", team.ID).Find(&ratings).Error)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Score)
	assert.Equal(t, "great", ratings[0].Comment)

	var notes int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", member.ID, models.NotificationMemberRated).Count(&notes).Error)
	assert.Equal(t, int64(2), notes)

	board, err := Leaderboard(db, team.ID, member.ID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, member.ID, board[0].UserID)
	assert.Equal(t, 5.0, board[0].AvgScore)
	assert.Equal(t, "gold", board[0].RankColor)
	assert.Equal(t, "gray", board[1].RankColor)
}

func TestRateMember_Rules(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "o")
	member := mkUser(t, db, "m")
	team, err := CreateTeam(db, owner.ID, "X")
	require.NoError(t, err)
	addMember(t, db, team.ID, member.ID, models.RoleMember, time.Now())

	_, err = RateMember(db, team.ID, owner.ID, owner.ID, 4, "", time.Now())
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = RateMember(db, team.ID, owner.ID, member.ID, 6, "", time.Now())
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = RateMember(db, team.ID, member.ID, owner.ID, 4, "", time.Now())
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestRatingColor(t *testing.T) {
	assert.Equal(t, "gold", RatingColor(4.5))
	assert.Equal(t, "green", RatingColor(3.5))
	assert.Equal(t, "yellow", RatingColor(2.5))
	assert.Equal(t, "red", RatingColor(0.1))
	assert.Equal(t, "gray", RatingColor(0))
}

func TestInviteLink_JoinRequestFlow(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "lead1")
	joiner := mkUser(t, db, "joiner")
	team, err := CreateTeam(db, owner.ID, "Open")
	require.NoError(t, err)
	now := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	link, err := CreateInviteLink(db, team.ID, owner.ID, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), link.ExpiresAt)

	info, err := InviteLinkInfo(db, link.Token, now)
	require.NoError(t, err)
	assert.Equal(t, team.ID, info.ID)

	_, err = InviteLinkInfo(db, "missing", now)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = InviteLinkInfo(db, link.Token, now.Add(8*24*time.Hour))
	assert.True(t, errors.Is(err, ErrExpired))

	req, err := RequestJoin(db, link.Token, joiner.ID, now)
	require.NoError(t, err)
	_, err = RequestJoin(db, link.Token, joiner.ID, now)
	assert.True(t, errors.Is(err, ErrValidation))

	pending, err := ListJoinRequests(db, team.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, ResolveJoinRequest(db, team.ID, owner.ID, req.ID, true))
	m, err := loadMembership(db, team.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)

	err = ResolveJoinRequest(db, team.ID, owner.ID, req.ID, true)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDirectInvite_AcceptMarksNotificationRead(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "inviter")
	guest := mkUser(t, db, "guest")
	team, err := CreateTeam(db, owner.ID, "Guests")
	require.NoError(t, err)

	invite, invitee, err := InviteUser(db, team.ID, owner.ID, "guest")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, invitee.ID)

	got, err := AcceptInvite(db, invite.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)

	var unread int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND is_read = ?", guest.ID, models.NotificationTeamInvite, false).
		Count(&unread).Error)
	assert.Zero(t, unread)

	_, err = AcceptInvite(db, invite.ID, guest.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
