package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"unicodeprep_backend/internal/config"
	"unicodeprep_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArchiveServiceDisabledByDefault(t *testing.T) {
	svc, err := NewArchiveService(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestArchiveSubmissionLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = dir

	svc, err := NewArchiveService(cfg)
	require.NoError(t, err)
	require.NotNil(t, svc)

	submission := &model.ProblemSubmission{
		ID:        "sub-1",
		ProblemID: "two-sum",
		Code:      "package main",
		Language:  "go",
	}
	require.NoError(t, svc.ArchiveSubmission(context.Background(), 42, submission))

	data, err := os.ReadFile(filepath.Join(dir, "submissions", "42", "two-sum", "sub-1.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))
}

func TestArchiveSubmissionUnknownLanguageFallsBackToTxt(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = dir

	svc, err := NewArchiveService(cfg)
	require.NoError(t, err)

	submission := &model.ProblemSubmission{
		ID:        "sub-2",
		ProblemID: "fizzbuzz",
		Code:      "IDENTIFICATION DIVISION.",
		Language:  "cobol",
	}
	require.NoError(t, svc.ArchiveSubmission(context.Background(), 7, submission))

	_, err = os.Stat(filepath.Join(dir, "submissions", "7", "fizzbuzz", "sub-2.txt"))
	assert.NoError(t, err)
}
