package util

import "errors"

var (
	ErrUserNotFound           = errors.New("用户不存在")
	ErrEmailRegistered        = errors.New("该邮箱已被注册")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrProgressNotInitialized = errors.New("user progress not initialized")
	ErrSnapshotNotFound       = errors.New("progress snapshot not found")
	ErrSnapshotCorrupt        = errors.New("progress snapshot corrupt")
	ErrInvalidResetCode       = errors.New("invalid or expired reset code")
	ErrTooManyResetAttempts   = errors.New("too many reset attempts")
	ErrNoTestResults          = errors.New("submission carries no test results or test cases")
)
