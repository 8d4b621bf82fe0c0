package repository

import (
	"time"
	"unicodeprep_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdatePassword(userID uint, hashed string) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("password", hashed).
		Error
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now()).
		Error
}

// UpdateProgressSummary 将进度摘要镜像回写到 users 表
func (r *UserRepository) UpdateProgressSummary(userID uint, s model.ProgressSummary) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"total_score":          s.TotalScore,
			"problems_solved":      s.ProblemsSolved,
			"interviews_completed": s.InterviewsCompleted,
			"current_streak":       s.CurrentStreak,
			"longest_streak":       s.LongestStreak,
			"consistency_coins":    s.ConsistencyCoins,
			"rank":                 s.Rank,
		}).Error
}

// FindTopByScore 排行榜：按总分降序取前 limit 名学生
func (r *UserRepository) FindTopByScore(limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("role = ? AND disabled = ?", model.Student, false).
		Order("total_score DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// FindStudents 教师端学生列表
func (r *UserRepository) FindStudents(page, pageSize int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.DB.Model(&model.User{}).Where("role = ?", model.Student)
	query.Count(&total)

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&users).Error
	return users, total, err
}
