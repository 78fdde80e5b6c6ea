package admins

import (
	"testing"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/stretchr/testify/assert"
)

func TestUserResponse_LockedOnlyWhileInForce(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.False(t, userResponse(&models.User{}, now).Locked)

	expired := userResponse(&models.User{LockedUntil: &past}, now)
	assert.False(t, expired.Locked)
	assert.Nil(t, expired.LockedUntil)

	active := userResponse(&models.User{LockedUntil: &future}, now)
	assert.True(t, active.Locked)
	if assert.NotNil(t, active.LockedUntil) {
		assert.True(t, active.LockedUntil.Equal(future))
	}
}
