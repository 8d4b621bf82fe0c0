package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/smtp"
	"regexp"
	"time"
	"unicodeprep_backend/internal/config"
	"unicodeprep_backend/internal/repository"
	"unicodeprep_backend/internal/util"
	"unicodeprep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpLength      = 6
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 3
	otpKeyPrefix   = "reset_otp_"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// OTPRecord 一次密码重置验证码的状态
type OTPRecord struct {
	Code      string    `json:"code"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPStore 验证码状态存储，带过期
type OTPStore interface {
	Get(ctx context.Context, email string) (*OTPRecord, error)
	Set(ctx context.Context, email string, record *OTPRecord) error
	Delete(ctx context.Context, email string) error
}

// RedisOTPStore Redis 实现，TTL 与验证码有效期一致
type RedisOTPStore struct {
	Client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{Client: client}
}

func (s *RedisOTPStore) Get(ctx context.Context, email string) (*OTPRecord, error) {
	data, err := s.Client.Get(ctx, otpKeyPrefix+email).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record OTPRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *RedisOTPStore) Set(ctx context.Context, email string, record *OTPRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, email)
	}
	return s.Client.Set(ctx, otpKeyPrefix+email, data, ttl).Err()
}

func (s *RedisOTPStore) Delete(ctx context.Context, email string) error {
	return s.Client.Del(ctx, otpKeyPrefix+email).Err()
}

// EmailService 密码重置验证码流程：生成、发送、校验、重置密码
type EmailService struct {
	Store    OTPStore
	UserRepo *repository.UserRepository
	Cfg      *config.EmailConfig

	now func() time.Time
}

func NewEmailService(store OTPStore, userRepo *repository.UserRepository, cfg *config.EmailConfig) *EmailService {
	return &EmailService{
		Store:    store,
		UserRepo: userRepo,
		Cfg:      cfg,
		now:      time.Now,
	}
}

// generateOTP 6 位数字验证码
func generateOTP() (string, error) {
	const digits = "0123456789"
	code := make([]byte, otpLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}

// SendPasswordResetOTP 生成并发送验证码。已有未过期且尝试次数用尽的验证码时
// 拒绝重发，防止暴力重置。
func (s *EmailService) SendPasswordResetOTP(ctx context.Context, email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	if _, err := s.UserRepo.FindByEmail(email); err != nil {
		return util.ErrUserNotFound
	}

	existing, err := s.Store.Get(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && s.now().Before(existing.ExpiresAt) && existing.Attempts >= otpMaxAttempts {
		return util.ErrTooManyResetAttempts
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}

	record := &OTPRecord{
		Code:      code,
		Attempts:  0,
		ExpiresAt: s.now().Add(otpTTL),
	}
	if err := s.Store.Set(ctx, email, record); err != nil {
		return err
	}

	return s.sendOTPEmail(email, code)
}

func (s *EmailService) sendOTPEmail(email, code string) error {
	if s.Cfg == nil || s.Cfg.SMTPHost == "" {
		// 未配置 SMTP 时退化为日志输出（开发环境）
		logger.Log.Info("password reset code (smtp disabled)",
			zap.String("email", email), zap.String("code", code))
		return nil
	}

	auth := smtp.PlainAuth("", s.Cfg.SMTPUser, s.Cfg.SMTPPassword, s.Cfg.SMTPHost)
	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: UniCodePrep Password Reset\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n"+
			"<p>Your password reset code is: <strong>%s</strong></p>\r\n"+
			"<p>The code expires in 10 minutes.</p>\r\n",
		email, s.Cfg.SenderName, s.Cfg.SenderEmail, code))

	addr := fmt.Sprintf("%s:%d", s.Cfg.SMTPHost, s.Cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.Cfg.SenderEmail, []string{email}, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// VerifyOTPAndResetPassword 校验验证码并重置密码。校验失败累计尝试次数，
// 达到上限后该验证码作废。
func (s *EmailService) VerifyOTPAndResetPassword(ctx context.Context, email, code, newPassword string) error {
	record, err := s.Store.Get(ctx, email)
	if err != nil {
		return err
	}
	if record == nil || s.now().After(record.ExpiresAt) {
		return util.ErrInvalidResetCode
	}

	if record.Attempts >= otpMaxAttempts {
		return util.ErrTooManyResetAttempts
	}

	if record.Code != code {
		record.Attempts++
		if err := s.Store.Set(ctx, email, record); err != nil {
			return err
		}
		if record.Attempts >= otpMaxAttempts {
			return util.ErrTooManyResetAttempts
		}
		return util.ErrInvalidResetCode
	}

	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		return util.ErrUserNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.UserRepo.UpdatePassword(user.ID, string(hashed)); err != nil {
		return err
	}

	return s.Store.Delete(ctx, email)
}
