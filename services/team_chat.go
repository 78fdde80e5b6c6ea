package services

import (
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
)

const chatPageSize = 50

// ChatView is a chat message with its sender.
type ChatView struct {
	ID        uint      `json:"id"`
	TeamID    uint      `json:"team_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

func chatView(m *models.ChatMessage) ChatView {
	v := ChatView{ID: m.ID, TeamID: m.TeamID, UserID: m.UserID, Content: m.Content, ImageURL: m.ImageURL, CreatedAt: m.CreatedAt}
	if m.User != nil {
		v.Username = m.User.Username
		v.AvatarURL = m.User.AvatarURL
	}
	return v
}

// ListChat returns the latest 50 messages oldest first, or when afterID is
// set, every message newer than it.
func ListChat(db *gorm.DB, teamID, uid, afterID uint) ([]ChatView, error) {
	if _, err := RequireMembership(db, teamID, uid); err != nil {
		return nil, err
	}
	var rows []models.ChatMessage
	q := db.Preload("User").Where("team_id = ?", teamID)
	if afterID > 0 {
		if err := q.Where("id > ?", afterID).Order("id ASC").Limit(chatPageSize).Find(&rows).Error; err != nil {
			return nil, err
		}
	} else {
		if err := q.Order("id DESC").Limit(chatPageSize).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	out := make([]ChatView, 0, len(rows))
	for i := range rows {
		out = append(out, chatView(&rows[i]))
	}
	return out, nil
}

// PostChat stores a message. Text is required unless an image is attached.
func PostChat(db *gorm.DB, teamID, uid uint, content string, imageURL *string) (*ChatView, error) {
	if _, err := RequireMembership(db, teamID, uid); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" && imageURL == nil {
		return nil, Invalid("message content is required")
	}
	msg := &models.ChatMessage{TeamID: teamID, UserID: uid, Content: content, ImageURL: imageURL}
	if err := db.Create(msg).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").First(msg, msg.ID).Error; err != nil {
		return nil, err
	}
	v := chatView(msg)
	return &v, nil
}
