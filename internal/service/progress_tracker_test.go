package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryProgressStore 内存版快照存储，序列化往返模拟真实持久化
type memoryProgressStore struct {
	data    map[string][]byte
	corrupt map[string]bool
}

func newMemoryProgressStore() *memoryProgressStore {
	return &memoryProgressStore{
		data:    make(map[string][]byte),
		corrupt: make(map[string]bool),
	}
}

func (s *memoryProgressStore) Load(_ context.Context, key string) (*model.UserProgress, error) {
	if s.corrupt[key] {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, util.ErrSnapshotCorrupt)
	}
	raw, ok := s.data[key]
	if !ok {
		return nil, util.ErrSnapshotNotFound
	}
	var progress model.UserProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, util.ErrSnapshotCorrupt)
	}
	progress.Normalize()
	return &progress, nil
}

func (s *memoryProgressStore) Save(_ context.Context, key string, progress *model.UserProgress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *memoryProgressStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func newTestTracker(t *testing.T, at time.Time) (*ProgressTracker, *memoryProgressStore) {
	t.Helper()
	store := newMemoryProgressStore()
	tracker := NewProgressTracker(store, &StubExecutor{})
	tracker.now = func() time.Time { return at }
	require.NoError(t, tracker.SetCurrentUser(context.Background(), 42))
	return tracker, store
}

func passingResults(n int) []model.TestResult {
	results := make([]model.TestResult, n)
	for i := range results {
		results[i] = model.TestResult{
			Input:          fmt.Sprintf("in-%d", i),
			ExpectedOutput: "ok",
			ActualOutput:   "ok",
			Passed:         true,
			ExecutionTime:  10,
		}
	}
	return results
}

func failingResults() []model.TestResult {
	return []model.TestResult{
		{Input: "in", ExpectedOutput: "1", ActualOutput: "2", Passed: false, ExecutionTime: 5},
	}
}

func TestSetCurrentUserInitializesZeroedProgress(t *testing.T) {
	tracker, store := newTestTracker(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	progress := tracker.GetUserProgress()
	require.NotNil(t, progress)
	assert.Equal(t, "42", progress.UserID)
	assert.Equal(t, 0, progress.TotalScore)
	assert.Equal(t, 0, progress.CurrentStreak)
	assert.Equal(t, model.RankBronze, progress.Rank)
	assert.Empty(t, progress.ProblemsProgress)
	assert.Empty(t, progress.InterviewsProgress)

	// 初始化即落盘
	_, ok := store.data["progress_42"]
	assert.True(t, ok)
}

func TestGetProblemProgressLazyCreate(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	pp, err := tracker.GetProblemProgress("two-sum")
	require.NoError(t, err)
	assert.Equal(t, model.ProblemNotStarted, pp.Status)
	assert.Empty(t, pp.Submissions)
	assert.Nil(t, pp.FirstAttemptDate)

	again, err := tracker.GetProblemProgress("two-sum")
	require.NoError(t, err)
	assert.Same(t, pp, again)
}

func TestSubmitSolutionAllPassedAwardsPoints(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	sub, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "code", "go", passingResults(3))
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPassed, sub.Status)
	assert.Equal(t, 30.0, sub.ExecutionTime)
	assert.Equal(t, 0.0, sub.MemoryUsed)

	progress := tracker.GetUserProgress()
	pp := progress.ProblemsProgress["two-sum"]
	assert.Equal(t, model.ProblemSolved, pp.Status)
	require.NotNil(t, pp.SolvedDate)
	require.NotNil(t, pp.FirstAttemptDate)
	require.NotNil(t, pp.BestSubmission)
	assert.Equal(t, sub.ID, pp.BestSubmission.ID)

	assert.Equal(t, 100, progress.TotalScore)
	assert.Equal(t, 1, progress.Statistics.ProblemsSolved)
	assert.Equal(t, 1, progress.Statistics.ProblemsAttempted)
	assert.Equal(t, model.RankBronze, progress.Rank)

	// 当日出勤
	activity := progress.DailyActivities["2026-03-10"]
	require.NotNil(t, activity)
	assert.Equal(t, 1, activity.ProblemsSolved)
	assert.Contains(t, activity.ActivitiesCompleted, model.ActivityProblemSolved)
	assert.Equal(t, 1, progress.CurrentStreak)
}

func TestSubmitSolutionFailedThenPassed(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	_, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "bad", "go", failingResults())
	require.NoError(t, err)

	progress := tracker.GetUserProgress()
	pp := progress.ProblemsProgress["two-sum"]
	assert.Equal(t, model.ProblemAttempted, pp.Status)
	assert.Nil(t, pp.SolvedDate)
	assert.Nil(t, pp.BestSubmission)
	assert.Equal(t, 0, progress.TotalScore)
	assert.Equal(t, 1, progress.Statistics.ProblemsAttempted)

	_, err = tracker.SubmitProblemSolution(context.Background(), "two-sum", "good", "go", passingResults(1))
	require.NoError(t, err)

	assert.Equal(t, model.ProblemSolved, pp.Status)
	assert.Equal(t, 100, progress.TotalScore)
	// 首次尝试计数不重复累计
	assert.Equal(t, 1, progress.Statistics.ProblemsAttempted)
	assert.Len(t, pp.Submissions, 2)
}

func TestSolvedProblemNeverRegressesNorDoubleAwards(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	first, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "v1", "go", passingResults(1))
	require.NoError(t, err)

	// 之后的失败提交不回退状态
	_, err = tracker.SubmitProblemSolution(context.Background(), "two-sum", "v2", "go", failingResults())
	require.NoError(t, err)

	// 之后的通过提交不再计分，也不替换最佳提交
	_, err = tracker.SubmitProblemSolution(context.Background(), "two-sum", "v3", "go", passingResults(1))
	require.NoError(t, err)

	progress := tracker.GetUserProgress()
	pp := progress.ProblemsProgress["two-sum"]
	assert.Equal(t, model.ProblemSolved, pp.Status)
	assert.Equal(t, 100, progress.TotalScore)
	assert.Equal(t, 1, progress.Statistics.ProblemsSolved)
	assert.Equal(t, first.ID, pp.BestSubmission.ID)
	assert.Len(t, pp.Submissions, 3)
}

func TestSubmitSolutionEmptyResultsCountsAsPassed(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	sub, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "code", "go", []model.TestResult{})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPassed, sub.Status)
}

func TestCompleteInterviewScoring(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	interview, err := tracker.CompleteInterview(context.Background(), InterviewData{
		Type:       "technical",
		Difficulty: "medium",
		Duration:   45,
		Score:      80,
		Feedback:   "solid",
	})
	require.NoError(t, err)
	assert.Contains(t, interview.SessionID, "interview_")
	assert.NotNil(t, interview.Questions)

	progress := tracker.GetUserProgress()
	assert.Equal(t, 800, progress.TotalScore)
	assert.Equal(t, 1, progress.Statistics.InterviewsCompleted)
	assert.Equal(t, 800.0, progress.Statistics.AverageScore)

	activity := progress.DailyActivities["2026-03-10"]
	require.NotNil(t, activity)
	assert.Equal(t, 1, activity.InterviewsCompleted)
	assert.Contains(t, activity.ActivitiesCompleted, model.ActivityInterviewCompleted)
}

func TestInterviewScoreRounding(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	_, err := tracker.CompleteInterview(context.Background(), InterviewData{
		Type: "behavioral", Difficulty: "easy", Score: 76.55,
	})
	require.NoError(t, err)
	// round(765.5) = 766
	assert.Equal(t, 766, tracker.GetUserProgress().TotalScore)
}

func TestRankThresholds(t *testing.T) {
	cases := []struct {
		score int
		rank  model.Rank
	}{
		{0, model.RankBronze},
		{999, model.RankBronze},
		{1000, model.RankSilver},
		{2499, model.RankSilver},
		{2500, model.RankGold},
		{4999, model.RankGold},
		{5000, model.RankPlatinum},
		{9999, model.RankPlatinum},
		{10000, model.RankDiamond},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.rank, model.RankForScore(tc.score), "score %d", tc.score)
	}
}

func TestRankPromotionAfterSolves(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	// 25 道题 * 100 分 = 2500，恰好到 gold
	for i := 0; i < 25; i++ {
		_, err := tracker.SubmitProblemSolution(context.Background(), fmt.Sprintf("p-%d", i), "code", "go", passingResults(1))
		require.NoError(t, err)
	}
	assert.Equal(t, 2500, tracker.GetUserProgress().TotalScore)
	assert.Equal(t, model.RankGold, tracker.GetUserProgress().Rank)
}

func TestStreakConsecutiveDays(t *testing.T) {
	store := newMemoryProgressStore()
	tracker := NewProgressTracker(store, &StubExecutor{})
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }
	require.NoError(t, tracker.SetCurrentUser(context.Background(), 7))

	for i := 0; i < 3; i++ {
		_, err := tracker.SubmitProblemSolution(context.Background(), fmt.Sprintf("p-%d", i), "code", "go", passingResults(1))
		require.NoError(t, err)
		current = current.AddDate(0, 0, 1)
	}

	progress := tracker.GetUserProgress()
	assert.Equal(t, 3, progress.CurrentStreak)
	assert.Equal(t, 3, progress.LongestStreak)

	// 跳过一天再活动，连击归 1，最长保留
	current = current.AddDate(0, 0, 1)
	_, err := tracker.SubmitProblemSolution(context.Background(), "p-gap", "code", "go", passingResults(1))
	require.NoError(t, err)

	assert.Equal(t, 1, progress.CurrentStreak)
	assert.Equal(t, 3, progress.LongestStreak)
}

func TestStreakSameDayActivityIsNoop(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	_, err := tracker.SubmitProblemSolution(context.Background(), "a", "code", "go", passingResults(1))
	require.NoError(t, err)
	_, err = tracker.SubmitProblemSolution(context.Background(), "b", "code", "go", passingResults(1))
	require.NoError(t, err)
	_, err = tracker.CompleteInterview(context.Background(), InterviewData{Type: "technical", Difficulty: "easy", Score: 50})
	require.NoError(t, err)

	progress := tracker.GetUserProgress()
	assert.Equal(t, 1, progress.CurrentStreak)
	assert.Equal(t, 1, progress.LongestStreak)
	assert.Equal(t, "2026-03-10", progress.LastActivityDate)
}

func TestConsistencyCoinsFormula(t *testing.T) {
	store := newMemoryProgressStore()
	tracker := NewProgressTracker(store, &StubExecutor{})
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }
	require.NoError(t, tracker.SetCurrentUser(context.Background(), 7))

	// 连击 1：max(1, 0)*2 = 2
	_, err := tracker.SubmitProblemSolution(context.Background(), "d1", "code", "go", passingResults(1))
	require.NoError(t, err)
	assert.Equal(t, 2, tracker.GetUserProgress().ConsistencyCoins)

	// 连击 2：max(1, 1)*2 = 2，累计 4
	current = current.AddDate(0, 0, 1)
	_, err = tracker.SubmitProblemSolution(context.Background(), "d2", "code", "go", passingResults(1))
	require.NoError(t, err)
	assert.Equal(t, 4, tracker.GetUserProgress().ConsistencyCoins)

	// 连击 4：max(1, 2)*2 = 4
	current = current.AddDate(0, 0, 1)
	_, err = tracker.SubmitProblemSolution(context.Background(), "d3", "code", "go", passingResults(1))
	require.NoError(t, err)
	current = current.AddDate(0, 0, 1)
	_, err = tracker.SubmitProblemSolution(context.Background(), "d4", "code", "go", passingResults(1))
	require.NoError(t, err)
	assert.Equal(t, 4+2+4, tracker.GetUserProgress().ConsistencyCoins)
}

func TestAttendanceCoversWholeMonth(t *testing.T) {
	day := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	_, err := tracker.SubmitProblemSolution(context.Background(), "a", "code", "go", passingResults(1))
	require.NoError(t, err)

	attendance := tracker.GetAttendanceData()
	// 2026 年 2 月 28 天
	assert.Len(t, attendance, 28)
	assert.True(t, attendance["2026-02-10"])
	assert.False(t, attendance["2026-02-11"])
	assert.False(t, attendance["2026-02-01"])
}

func TestSubmissionHistoryOrdering(t *testing.T) {
	store := newMemoryProgressStore()
	tracker := NewProgressTracker(store, &StubExecutor{})
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }
	require.NoError(t, tracker.SetCurrentUser(context.Background(), 7))

	_, err := tracker.SubmitProblemSolution(context.Background(), "a", "v1", "go", failingResults())
	require.NoError(t, err)
	current = current.Add(time.Hour)
	_, err = tracker.SubmitProblemSolution(context.Background(), "b", "v1", "go", failingResults())
	require.NoError(t, err)
	current = current.Add(time.Hour)
	_, err = tracker.SubmitProblemSolution(context.Background(), "a", "v2", "go", passingResults(1))
	require.NoError(t, err)

	// 单题视图：原始升序
	perProblem := tracker.GetSubmissionHistory("a")
	require.Len(t, perProblem, 2)
	assert.Equal(t, "v1", perProblem[0].Code)
	assert.Equal(t, "v2", perProblem[1].Code)

	// 全量视图：按提交时间降序
	all := tracker.GetSubmissionHistory("")
	require.Len(t, all, 3)
	assert.Equal(t, "v2", all[0].Code)
	assert.Equal(t, "b", all[1].ProblemID)
	assert.Equal(t, "v1", all[2].Code)

	// 未知题目返回空切片
	assert.Empty(t, tracker.GetSubmissionHistory("unknown"))
}

func TestProgressSurvivesReload(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, store := newTestTracker(t, day)

	_, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "code", "go", passingResults(1))
	require.NoError(t, err)

	reloaded := NewProgressTracker(store, &StubExecutor{})
	reloaded.now = func() time.Time { return day }
	require.NoError(t, reloaded.SetCurrentUser(context.Background(), 42))

	progress := reloaded.GetUserProgress()
	assert.Equal(t, 100, progress.TotalScore)
	pp := progress.ProblemsProgress["two-sum"]
	require.NotNil(t, pp)
	assert.Equal(t, model.ProblemSolved, pp.Status)
	require.NotNil(t, pp.BestSubmission)
}

func TestCorruptSnapshotReinitializes(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, store := newTestTracker(t, day)

	_, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "code", "go", passingResults(1))
	require.NoError(t, err)

	store.corrupt["progress_42"] = true

	fresh := NewProgressTracker(store, &StubExecutor{})
	fresh.now = func() time.Time { return day }
	require.NoError(t, fresh.SetCurrentUser(context.Background(), 42))

	progress := fresh.GetUserProgress()
	require.NotNil(t, progress)
	assert.Equal(t, 0, progress.TotalScore)
	assert.Empty(t, progress.ProblemsProgress)
}

func TestUnboundTrackerRejectsMutations(t *testing.T) {
	tracker := NewProgressTracker(newMemoryProgressStore(), &StubExecutor{})

	_, err := tracker.SubmitProblemSolution(context.Background(), "a", "code", "go", passingResults(1))
	assert.ErrorIs(t, err, util.ErrProgressNotInitialized)

	_, err = tracker.CompleteInterview(context.Background(), InterviewData{Type: "technical", Difficulty: "easy"})
	assert.ErrorIs(t, err, util.ErrProgressNotInitialized)

	_, err = tracker.GetProblemProgress("a")
	assert.ErrorIs(t, err, util.ErrProgressNotInitialized)

	assert.ErrorIs(t, tracker.ClearUserProgress(context.Background()), util.ErrProgressNotInitialized)
	assert.Nil(t, tracker.GetUserProgress())
	assert.Empty(t, tracker.GetAttendanceData())
	assert.Empty(t, tracker.GetSubmissionHistory(""))
}

func TestClearUserProgress(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, store := newTestTracker(t, day)

	_, err := tracker.SubmitProblemSolution(context.Background(), "two-sum", "code", "go", passingResults(1))
	require.NoError(t, err)

	require.NoError(t, tracker.ClearUserProgress(context.Background()))
	assert.Nil(t, tracker.GetUserProgress())
	_, ok := store.data["progress_42"]
	assert.False(t, ok)

	// 重新绑定得到全零快照
	tracker.now = func() time.Time { return day }
	require.NoError(t, tracker.SetCurrentUser(context.Background(), 42))
	assert.Equal(t, 0, tracker.GetUserProgress().TotalScore)
}

func TestAverageScoreUpdatesOnlyWithActivities(t *testing.T) {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, day)

	assert.Equal(t, 0.0, tracker.GetUserProgress().Statistics.AverageScore)

	_, err := tracker.SubmitProblemSolution(context.Background(), "a", "code", "go", passingResults(1))
	require.NoError(t, err)
	assert.Equal(t, 100.0, tracker.GetUserProgress().Statistics.AverageScore)

	_, err = tracker.CompleteInterview(context.Background(), InterviewData{Type: "technical", Difficulty: "easy", Score: 50})
	require.NoError(t, err)
	// (100 + 500) / 2
	assert.Equal(t, 300.0, tracker.GetUserProgress().Statistics.AverageScore)
}
