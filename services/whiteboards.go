package services

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/lvt17/planex-be/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WhiteboardPatch is a partial update; Data replaces the whole document.
type WhiteboardPatch struct {
	Name        *string
	Description *string
	Data        json.RawMessage
}

func checkBoardData(data json.RawMessage) (datatypes.JSON, error) {
	if len(data) == 0 {
		return datatypes.JSON("{}"), nil
	}
	if !json.Valid(data) {
		return nil, Invalid("data must be valid JSON")
	}
	return datatypes.JSON(data), nil
}

func CreateWhiteboard(db *gorm.DB, uid uint, name, description string, data json.RawMessage) (*models.Whiteboard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("name is required")
	}
	doc, err := checkBoardData(data)
	if err != nil {
		return nil, err
	}
	wb := &models.Whiteboard{UserID: uid, Name: name, Description: description, Data: doc}
	if err := db.Create(wb).Error; err != nil {
		return nil, err
	}
	return wb, nil
}

// ListWhiteboards returns the user's boards, most recently edited first.
func ListWhiteboards(db *gorm.DB, uid uint) ([]models.Whiteboard, error) {
	var out []models.Whiteboard
	err := db.Where("user_id = ?", uid).Order("updated_at DESC, id DESC").Find(&out).Error
	return out, err
}

func LoadWhiteboard(db *gorm.DB, id, uid uint) (*models.Whiteboard, error) {
	var wb models.Whiteboard
	if err := db.Where("id = ? AND user_id = ?", id, uid).First(&wb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("whiteboard not found")
		}
		return nil, err
	}
	return &wb, nil
}

func UpdateWhiteboard(db *gorm.DB, wb *models.Whiteboard, patch WhiteboardPatch) (*models.Whiteboard, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return nil, Invalid("name must not be empty")
		}
		updates["name"] = n
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Data != nil {
		doc, err := checkBoardData(patch.Data)
		if err != nil {
			return nil, err
		}
		updates["data"] = doc
	}
	if len(updates) > 0 {
		if err := db.Model(wb).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return LoadWhiteboard(db, wb.ID, wb.UserID)
}

func DeleteWhiteboard(db *gorm.DB, id, uid uint) error {
	res := db.Where("id = ? AND user_id = ?", id, uid).Delete(&models.Whiteboard{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFound("whiteboard not found")
	}
	return nil
}
