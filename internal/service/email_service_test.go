package service

import (
	"context"
	"testing"
	"time"
	"unicodeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryOTPStore 内存版验证码存储，过期由服务层判断
type memoryOTPStore struct {
	records map[string]*OTPRecord
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{records: make(map[string]*OTPRecord)}
}

func (s *memoryOTPStore) Get(_ context.Context, email string) (*OTPRecord, error) {
	record, ok := s.records[email]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *memoryOTPStore) Set(_ context.Context, email string, record *OTPRecord) error {
	copied := *record
	s.records[email] = &copied
	return nil
}

func (s *memoryOTPStore) Delete(_ context.Context, email string) error {
	delete(s.records, email)
	return nil
}

func newTestEmailService(store OTPStore, at time.Time) *EmailService {
	svc := NewEmailService(store, nil, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func TestGenerateOTPFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		require.Len(t, code, otpLength)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
		seen[code] = true
	}
	// 碰撞概率极低，20 次应产生多个不同验证码
	assert.Greater(t, len(seen), 1)
}

func TestVerifyOTPWrongCodeIncrementsAttempts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := newMemoryOTPStore()
	store.records["a@b.com"] = &OTPRecord{Code: "123456", ExpiresAt: now.Add(5 * time.Minute)}
	svc := newTestEmailService(store, now)

	err := svc.VerifyOTPAndResetPassword(context.Background(), "a@b.com", "000000", "newpass")
	assert.ErrorIs(t, err, util.ErrInvalidResetCode)
	assert.Equal(t, 1, store.records["a@b.com"].Attempts)

	err = svc.VerifyOTPAndResetPassword(context.Background(), "a@b.com", "111111", "newpass")
	assert.ErrorIs(t, err, util.ErrInvalidResetCode)

	// 第三次错误触达上限
	err = svc.VerifyOTPAndResetPassword(context.Background(), "a@b.com", "222222", "newpass")
	assert.ErrorIs(t, err, util.ErrTooManyResetAttempts)

	// 上限后即使验证码正确也拒绝
	err = svc.VerifyOTPAndResetPassword(context.Background(), "a@b.com", "123456", "newpass")
	assert.ErrorIs(t, err, util.ErrTooManyResetAttempts)
}

func TestVerifyOTPExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := newMemoryOTPStore()
	store.records["a@b.com"] = &OTPRecord{Code: "123456", ExpiresAt: now.Add(-time.Minute)}
	svc := newTestEmailService(store, now)

	err := svc.VerifyOTPAndResetPassword(context.Background(), "a@b.com", "123456", "newpass")
	assert.ErrorIs(t, err, util.ErrInvalidResetCode)
}

func TestVerifyOTPMissingRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestEmailService(newMemoryOTPStore(), now)

	err := svc.VerifyOTPAndResetPassword(context.Background(), "a@b.com", "123456", "newpass")
	assert.ErrorIs(t, err, util.ErrInvalidResetCode)
}

func TestSendPasswordResetOTPRejectsMalformedEmail(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestEmailService(newMemoryOTPStore(), now)

	assert.Error(t, svc.SendPasswordResetOTP(context.Background(), "not-an-email"))
	assert.Error(t, svc.SendPasswordResetOTP(context.Background(), "a b@c.com"))
}
