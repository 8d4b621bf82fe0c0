package model

import (
	"time"
)

type UserRole string

const (
	Student   UserRole = "student"
	Professor UserRole = "professor"
	Admin     UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name         string   `gorm:"size:100;not null" json:"name"`
	Email        string   `gorm:"size:100;unique;not null" json:"email"`
	Password     string   `gorm:"size:100;not null" json:"-"`
	Role         UserRole `gorm:"type:enum('student','professor','admin');default:'student'" json:"role"`
	University   string   `gorm:"size:150" json:"university"`
	Major        string   `gorm:"size:100" json:"major,omitempty"`       // 学生
	AcademicYear string   `gorm:"size:20" json:"academicYear,omitempty"` // 学生
	Department   string   `gorm:"size:100" json:"department,omitempty"`  // 教师
	Title        string   `gorm:"size:100" json:"title,omitempty"`       // 教师
	Avatar       string   `gorm:"size:255" json:"avatar"`
	Disabled     bool     `gorm:"default:false" json:"disabled"`

	// 进度摘要镜像，快照每次持久化后回写，供排行榜/教师端列表查询
	TotalScore          int       `gorm:"default:0;index" json:"totalScore"`
	ProblemsSolved      int       `gorm:"default:0" json:"problemsSolved"`
	InterviewsCompleted int       `gorm:"default:0" json:"interviewsCompleted"`
	CurrentStreak       int       `gorm:"default:0" json:"currentStreak"`
	LongestStreak       int       `gorm:"default:0" json:"longestStreak"`
	ConsistencyCoins    int       `gorm:"default:0" json:"consistencyCoins"`
	Rank                Rank      `gorm:"size:20;default:'bronze'" json:"rank"`
	LastLogin           time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// ProgressKey 该用户快照的分区键
func (u *User) ProgressKey() string {
	return ProgressKeyFor(u.ID)
}
