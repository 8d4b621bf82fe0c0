package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicodeprep_backend/internal/config"
	"unicodeprep_backend/internal/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider 通用对象存储接口
type StorageProvider interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// LocalStorageProvider 本地目录实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, objectName)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", err
	}
	return dst, nil
}

// MinioStorageProvider MinIO 实现
type MinioStorageProvider struct {
	Client *minio.Client
	Bucket string
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", p.Bucket, objectName), nil
}

// ArchiveService 把提交的代码归档到对象存储，供教师端下载回看
type ArchiveService struct {
	provider StorageProvider
}

func NewArchiveService(cfg *config.Config) (*ArchiveService, error) {
	switch cfg.Storage.Type {
	case "minio":
		provider, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		return &ArchiveService{provider: provider}, nil
	case "local":
		return &ArchiveService{provider: &LocalStorageProvider{Config: &cfg.Storage}}, nil
	default:
		// 未配置存储则不归档
		return nil, nil
	}
}

var languageExtensions = map[string]string{
	"c":          "c",
	"cpp":        "cpp",
	"go":         "go",
	"java":       "java",
	"javascript": "js",
	"python":     "py",
}

func (s *ArchiveService) ArchiveSubmission(ctx context.Context, userID uint, submission *model.ProblemSubmission) error {
	ext, ok := languageExtensions[strings.ToLower(submission.Language)]
	if !ok {
		ext = "txt"
	}

	objectName := fmt.Sprintf("submissions/%d/%s/%s.%s",
		userID, submission.ProblemID, submission.ID, ext)
	_, err := s.provider.Upload(ctx, objectName, []byte(submission.Code), "text/plain")
	return err
}
