package services

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	lockoutThreshold  = 5
	minPasswordLength = 6
)

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_.]{3,80}$`)

// LockoutDuration is the lock applied after the given number of consecutive
// failures: none below the threshold, then 1, 5, 15 and 30 minutes.
func LockoutDuration(failures int) time.Duration {
	switch n := failures - lockoutThreshold; {
	case n < 0:
		return 0
	case n == 0:
		return time.Minute
	case n == 1:
		return 5 * time.Minute
	case n == 2:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// RegisterUser creates an account with a bcrypt password hash.
func RegisterUser(db *gorm.DB, username, email, password, fullName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if !reUsername.MatchString(username) {
		return nil, Invalid("username must be 3-80 letters, digits, dots or underscores")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, Invalid("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, Invalid("password must be at least 6 characters")
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, Conflict("email is already registered")
	}
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, Conflict("username is already taken")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		FullName: strings.TrimSpace(fullName),
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials by email or username. While the account is
// locked it returns *LockedError without looking at the password. Failures
// are counted on the user row so every instance sees the same lock.
func Authenticate(db *gorm.DB, identifier, password string, now time.Time) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var user models.User
	err := db.Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, &LockedError{RetryAfter: user.LockedUntil.Sub(now)}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		if err := recordFailedLogin(db, user.ID, now); err != nil {
			return nil, err
		}
		return nil, Unauthorized("invalid credentials")
	}

	err = db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"failed_logins": 0,
		"locked_until":  nil,
		"access_count":  gorm.Expr("access_count + 1"),
	}).Error
	if err != nil {
		return nil, err
	}
	user.FailedLogins = 0
	user.LockedUntil = nil
	user.AccessCount++
	return &user, nil
}

// recordFailedLogin increments the counter in the database so concurrent
// attempts are all counted, then locks by the resulting count.
func recordFailedLogin(db *gorm.DB, uid uint, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", uid).
			Update("failed_logins", gorm.Expr("failed_logins + 1")).Error; err != nil {
			return err
		}
		var fresh models.User
		if err := tx.Select("id", "failed_logins").First(&fresh, uid).Error; err != nil {
			return err
		}
		if d := LockoutDuration(fresh.FailedLogins); d > 0 {
			return tx.Model(&models.User{}).Where("id = ?", uid).Update("locked_until", now.UTC().Add(d)).Error
		}
		return nil
	})
}

// ChangePassword verifies the current password, stores the new one and
// leaves a password_changed notification.
func ChangePassword(db *gorm.DB, uid uint, current, next string) error {
	if len(next) < minPasswordLength {
		return Invalid("password must be at least 6 characters")
	}
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("user not found")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return Invalid("current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", uid).Update("password", string(hash)).Error; err != nil {
			return err
		}
		_, err := Notify(tx, NotificationInput{
			UserID:  uid,
			Type:    models.NotificationPasswordChanged,
			Title:   "Password changed",
			Message: "Your password was changed. If this was not you, reset it immediately.",
		})
		return err
	})
}

// ResetPassword sets a new password after a verified reset token, clears
// any lock and revokes every refresh token of the user.
func ResetPassword(db *gorm.DB, uid uint, next string) error {
	if len(next) < minPasswordLength {
		return Invalid("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", uid).Updates(map[string]interface{}{
			"password":      string(hash),
			"failed_logins": 0,
			"locked_until":  nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound("user not found")
		}
		if err := tx.Model(&models.RefreshToken{}).Where("user_id = ?", uid).Update("revoked", true).Error; err != nil {
			return err
		}
		_, err := Notify(tx, NotificationInput{
			UserID:  uid,
			Type:    models.NotificationPasswordChanged,
			Title:   "Password reset",
			Message: "Your password was reset and all sessions were signed out.",
		})
		return err
	})
}

// UpdateProfile changes full name and/or username.
func UpdateProfile(db *gorm.DB, uid uint, fullName, username *string) (*models.User, error) {
	updates := map[string]interface{}{}
	if fullName != nil {
		updates["full_name"] = strings.TrimSpace(*fullName)
	}
	if username != nil {
		u := strings.TrimSpace(*username)
		if !reUsername.MatchString(u) {
			return nil, Invalid("username must be 3-80 letters, digits, dots or underscores")
		}
		var count int64
		if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", u, uid).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, Conflict("username is already taken")
		}
		updates["username"] = u
	}
	if len(updates) > 0 {
		if err := db.Model(&models.User{}).Where("id = ?", uid).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return GetUser(db, uid)
}

// GetUser loads a user by id.
func GetUser(db *gorm.DB, uid uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}
