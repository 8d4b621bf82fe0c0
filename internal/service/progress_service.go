package service

import (
	"context"
	"sync"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/internal/repository"
	"unicodeprep_backend/internal/util"
	"unicodeprep_backend/pkg/logger"
	"unicodeprep_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SubmitSolutionRequest 提交代码请求体。testResults 与 testCases 二选一：
// 前者由前端自判，后者交给判题引擎执行
type SubmitSolutionRequest struct {
	Code        string             `json:"code" binding:"required"`
	Language    string             `json:"language" binding:"required"`
	TestResults []model.TestResult `json:"testResults"`
	TestCases   []model.TestCase   `json:"testCases"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Position int        `json:"position"`
	Name     string     `json:"name"`
	Score    int        `json:"score"`
	Rank     model.Rank `json:"rank"`
	Streak   int        `json:"streak"`
	Avatar   string     `json:"avatar,omitempty"`
}

// ProgressService 面向 HTTP 层的进度服务：按用户维护 ProgressTracker 实例，
// 串行化对单个 tracker 的访问（tracker 自身单写者），变更后把摘要镜像回
// users 表
type ProgressService struct {
	Store    repository.ProgressStore
	UserRepo *repository.UserRepository
	Executor CodeExecutor
	Archive  *ArchiveService

	mu       sync.Mutex
	trackers map[uint]*trackerEntry
}

type trackerEntry struct {
	mu      sync.Mutex
	tracker *ProgressTracker
}

func NewProgressService(store repository.ProgressStore, userRepo *repository.UserRepository, executor CodeExecutor, archive *ArchiveService) *ProgressService {
	return &ProgressService{
		Store:    store,
		UserRepo: userRepo,
		Executor: executor,
		Archive:  archive,
		trackers: make(map[uint]*trackerEntry),
	}
}

// entryFor 取出（或创建并绑定）该用户的 tracker
func (s *ProgressService) entryFor(ctx context.Context, userID uint) (*trackerEntry, error) {
	s.mu.Lock()
	entry, ok := s.trackers[userID]
	if !ok {
		entry = &trackerEntry{tracker: NewProgressTracker(s.Store, s.Executor)}
		s.trackers[userID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.tracker.GetUserProgress() == nil {
		if err := entry.tracker.SetCurrentUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func (s *ProgressService) GetUserProgress(ctx context.Context, userID uint) (*model.UserProgress, error) {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	progress := entry.tracker.GetUserProgress()
	if progress == nil {
		return nil, util.ErrProgressNotInitialized
	}
	return progress, nil
}

func (s *ProgressService) GetProgressSummary(ctx context.Context, userID uint) (*model.ProgressSummary, error) {
	progress, err := s.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := progress.Summary()
	return &summary, nil
}

// SubmitSolution 记录一次提交。请求只带测试用例时先经判题引擎执行。
func (s *ProgressService) SubmitSolution(ctx context.Context, userID uint, problemID string, req SubmitSolutionRequest) (*model.ProblemSubmission, error) {
	testResults := req.TestResults
	if len(testResults) == 0 {
		if len(req.TestCases) == 0 {
			return nil, util.ErrNoTestResults
		}
		executed, err := s.Executor.Execute(ctx, req.Code, req.Language, req.TestCases)
		if err != nil {
			return nil, err
		}
		testResults = executed
	}

	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	submission, err := entry.tracker.SubmitProblemSolution(ctx, problemID, req.Code, req.Language, testResults)
	if err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	progress := entry.tracker.GetUserProgress()
	summary := progress.Summary()
	entry.mu.Unlock()

	monitoring.SubmissionsTotal.WithLabelValues(string(submission.Status)).Inc()
	if submission.Status == model.SubmissionPassed {
		monitoring.ProblemsSolvedTotal.Inc()
	}

	s.mirrorSummary(userID, summary)

	if s.Archive != nil {
		// 归档尽力而为，失败不影响提交结果
		if err := s.Archive.ArchiveSubmission(ctx, userID, submission); err != nil {
			logger.Log.Warn("submission archive failed",
				zap.Uint("userID", userID),
				zap.String("submissionID", submission.ID),
				zap.Error(err))
		}
	}

	return submission, nil
}

func (s *ProgressService) CompleteInterview(ctx context.Context, userID uint, data InterviewData) (*model.InterviewProgress, error) {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	interview, err := entry.tracker.CompleteInterview(ctx, data)
	if err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	summary := entry.tracker.GetUserProgress().Summary()
	entry.mu.Unlock()

	monitoring.InterviewsCompletedTotal.Inc()
	s.mirrorSummary(userID, summary)

	return interview, nil
}

func (s *ProgressService) GetAttendanceData(ctx context.Context, userID uint) (map[string]bool, error) {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.tracker.GetAttendanceData(), nil
}

func (s *ProgressService) GetSubmissionHistory(ctx context.Context, userID uint, problemID string) ([]model.ProblemSubmission, error) {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.tracker.GetSubmissionHistory(problemID), nil
}

// ClearUserProgress 删除快照并丢弃内存中的 tracker
func (s *ProgressService) ClearUserProgress(ctx context.Context, userID uint) error {
	entry, err := s.entryFor(ctx, userID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	err = entry.tracker.ClearUserProgress(ctx)
	entry.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.trackers, userID)
	s.mu.Unlock()

	s.mirrorSummary(userID, model.ProgressSummary{Rank: model.RankBronze})
	return nil
}

// mirrorSummary 摘要镜像回写；失败只记日志，快照本身已持久化
func (s *ProgressService) mirrorSummary(userID uint, summary model.ProgressSummary) {
	if s.UserRepo == nil {
		return
	}
	if err := s.UserRepo.UpdateProgressSummary(userID, summary); err != nil {
		logger.Log.Error("failed to mirror progress summary",
			zap.Uint("userID", userID), zap.Error(err))
	}
}

// GetLeaderboard 按总分降序的学生排行榜
func (s *ProgressService) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	users, err := s.UserRepo.FindTopByScore(limit)
	if err != nil {
		return nil, err
	}

	leaderboard := make([]LeaderboardEntry, len(users))
	for i, user := range users {
		leaderboard[i] = LeaderboardEntry{
			Position: i + 1,
			Name:     user.Name,
			Score:    user.TotalScore,
			Rank:     user.Rank,
			Streak:   user.CurrentStreak,
			Avatar:   user.Avatar,
		}
	}
	return leaderboard, nil
}

// GetStudents 教师端学生列表（镜像摘要，不加载快照）
func (s *ProgressService) GetStudents(page, pageSize int) ([]model.User, int64, error) {
	return s.UserRepo.FindStudents(page, pageSize)
}
