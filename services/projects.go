package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Deadline    *time.Time
}

type ProjectPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Deadline    *time.Time
	IsCompleted *bool
}

func validateProject(in ProjectInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", Invalid("name is required")
	}
	if in.Price.IsNegative() {
		return "", Invalid("price must not be negative")
	}
	return name, nil
}

// CreateProject creates a personal project.
func CreateProject(db *gorm.DB, uid uint, in ProjectInput) (*models.Project, error) {
	name, err := validateProject(in)
	if err != nil {
		return nil, err
	}
	p := &models.Project{Name: name, Description: in.Description, UserID: &uid, Price: in.Price.Round(2), Deadline: utcPtr(in.Deadline)}
	if err := db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns the user's personal projects, newest first.
func ListProjects(db *gorm.DB, uid uint) ([]models.Project, error) {
	var out []models.Project
	err := db.Where("user_id = ? AND team_id IS NULL", uid).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// LoadOwnProject loads a personal project of uid.
func LoadOwnProject(db *gorm.DB, id, uid uint) (*models.Project, error) {
	var p models.Project
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("project not found")
		}
		return nil, err
	}
	if p.UserID == nil || *p.UserID != uid || p.TeamID != nil {
		return nil, NotFound("project not found")
	}
	return &p, nil
}

// UpdateProject applies a partial update. Completing a project stamps
// completed_at, re-opening clears it.
func UpdateProject(db *gorm.DB, p *models.Project, patch ProjectPatch, now time.Time) (*models.Project, error) {
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
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, Invalid("price must not be negative")
		}
		updates["price"] = patch.Price.Round(2)
	}
	if patch.Deadline != nil {
		updates["deadline"] = patch.Deadline.UTC()
	}
	if patch.IsCompleted != nil && *patch.IsCompleted != p.IsCompleted {
		updates["is_completed"] = *patch.IsCompleted
		if *patch.IsCompleted {
			updates["completed_at"] = now.UTC()
		} else {
			updates["completed_at"] = nil
		}
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Project{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	var fresh models.Project
	if err := db.First(&fresh, p.ID).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// DeleteProject removes a project and detaches its tasks.
func DeleteProject(db *gorm.DB, p *models.Project) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("project_id = ?", p.ID).Update("project_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, p.ID).Error
	})
}

// ProjectTasks lists the tasks of a project.
func ProjectTasks(db *gorm.DB, projectID uint) ([]TaskView, error) {
	var tasks []models.Task
	if err := db.Where("project_id = ?", projectID).Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return WithProgress(db, tasks)
}

// ListTeamProjects requires membership.
func ListTeamProjects(db *gorm.DB, teamID, uid uint) ([]models.Project, error) {
	if _, err := RequireMembership(db, teamID, uid); err != nil {
		return nil, err
	}
	var out []models.Project
	err := db.Where("team_id = ?", teamID).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// CreateTeamProject requires the owner or an admin.
func CreateTeamProject(db *gorm.DB, teamID, uid uint, in ProjectInput) (*models.Project, error) {
	if _, err := RequireLeader(db, teamID, uid); err != nil {
		return nil, err
	}
	name, err := validateProject(in)
	if err != nil {
		return nil, err
	}
	p := &models.Project{Name: name, Description: in.Description, TeamID: &teamID, UserID: &uid, Price: in.Price.Round(2), Deadline: utcPtr(in.Deadline)}
	if err := db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
