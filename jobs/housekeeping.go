package jobs

import (
	"fmt"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgeResult counts the rows removed by one housekeeping run.
type PurgeResult struct {
	RefreshTokens int64
	RevokedTokens int64
	InviteLinks   int64
}

// Purge deletes expired refresh tokens, expired revocation entries and
// invite links past their expiry. Pending join requests are kept.
func Purge(db *gorm.DB, now time.Time) (PurgeResult, error) {
	var res PurgeResult
	now = now.UTC()

	r := db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	if r.Error != nil {
		return res, fmt.Errorf("purge refresh tokens: %w", r.Error)
	}
	res.RefreshTokens = r.RowsAffected

	r = db.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if r.Error != nil {
		return res, fmt.Errorf("purge revoked tokens: %w", r.Error)
	}
	res.RevokedTokens = r.RowsAffected

	r = db.Where("invite_type = ? AND expires_at IS NOT NULL AND expires_at < ?", models.InviteTypeLink, now).
		Delete(&models.TeamInvite{})
	if r.Error != nil {
		return res, fmt.Errorf("purge invite links: %w", r.Error)
	}
	res.InviteLinks = r.RowsAffected
	return res, nil
}

// Housekeeper runs Purge on a cron schedule.
type Housekeeper struct {
	cron *cron.Cron
	db   *gorm.DB
}

func NewHousekeeper(db *gorm.DB, loc *time.Location) *Housekeeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Housekeeper{
		cron: cron.New(cron.WithLocation(loc)),
		db:   db,
	}
}

// Schedule registers the purge job. spec is a standard five-field cron
// expression or a descriptor such as "@every 1h".
func (h *Housekeeper) Schedule(spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = "@every 1h"
	}
	return h.cron.AddFunc(spec, h.run)
}

func (h *Housekeeper) run() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("housekeeping panicked", zap.Any("panic", r))
		}
	}()
	start := time.Now()
	res, err := Purge(h.db, start)
	if err != nil {
		zap.L().Error("housekeeping failed", zap.Error(err))
		return
	}
	zap.L().Info("housekeeping done",
		zap.Int64("refresh_tokens", res.RefreshTokens),
		zap.Int64("revoked_tokens", res.RevokedTokens),
		zap.Int64("invite_links", res.InviteLinks),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (h *Housekeeper) Start() {
	h.cron.Start()
}

// Stop waits for a running job to finish.
func (h *Housekeeper) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
}
