package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task is a unit of trackable work. UserID is the owner; team tasks also
// carry the team, the creator and the assignee.
type Task struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	TeamID      *uint           `gorm:"index" json:"team_id"`
	ProjectID   *uint           `gorm:"index" json:"project_id"`
	CreatorID   *uint           `json:"creator_id"`
	AssigneeID  *uint           `gorm:"index" json:"assignee_id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Content     string          `gorm:"type:text" json:"content"`
	Deadline    *time.Time      `gorm:"index" json:"deadline"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	State       int             `gorm:"not null;default:0" json:"state"`
	IsDone      bool            `gorm:"not null;default:false;index" json:"is_done"`
	CompletedAt *time.Time      `gorm:"index" json:"completed_at"`
	ClientNum   string          `gorm:"size:20" json:"client_num"`
	ClientMail  string          `gorm:"size:120" json:"client_mail"`
	Noted       string          `gorm:"type:text" json:"noted"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Subtasks []Subtask `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Subtask struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      uint      `gorm:"not null;index" json:"task_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	IsCompleted bool      `gorm:"not null;default:false" json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskComment is attached to either a task or a subtask.
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    *uint     `gorm:"index" json:"task_id"`
	SubtaskID *uint     `gorm:"index" json:"subtask_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

type Project struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:120;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	UserID      *uint           `gorm:"index" json:"user_id"`
	TeamID      *uint           `gorm:"index" json:"team_id"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	Deadline    *time.Time      `json:"deadline"`
	IsCompleted bool            `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
