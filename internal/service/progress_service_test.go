package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProgressService() *ProgressService {
	return NewProgressService(newMemoryProgressStore(), nil, &StubExecutor{}, nil)
}

func TestSubmitSolutionRequiresResultsOrCases(t *testing.T) {
	svc := newTestProgressService()

	_, err := svc.SubmitSolution(context.Background(), 1, "two-sum", SubmitSolutionRequest{
		Code:     "code",
		Language: "go",
	})
	assert.ErrorIs(t, err, util.ErrNoTestResults)
}

func TestSubmitSolutionExecutesTestCases(t *testing.T) {
	svc := newTestProgressService()

	submission, err := svc.SubmitSolution(context.Background(), 1, "two-sum", SubmitSolutionRequest{
		Code:     "code",
		Language: "go",
		TestCases: []model.TestCase{
			{Input: "1 2", ExpectedOutput: "3"},
			{Input: "4 5", ExpectedOutput: "9"},
		},
	})
	require.NoError(t, err)
	// 占位执行器全部判通过
	assert.Equal(t, model.SubmissionPassed, submission.Status)
	require.Len(t, submission.TestResults, 2)

	progress, err := svc.GetUserProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.TotalScore)
}

func TestSubmitSolutionWithProvidedResults(t *testing.T) {
	svc := newTestProgressService()

	submission, err := svc.SubmitSolution(context.Background(), 1, "two-sum", SubmitSolutionRequest{
		Code:     "code",
		Language: "go",
		TestResults: []model.TestResult{
			{Input: "1 2", ExpectedOutput: "3", ActualOutput: "4", Passed: false},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionFailed, submission.Status)
}

func TestProgressIsolatedPerUser(t *testing.T) {
	svc := newTestProgressService()

	_, err := svc.SubmitSolution(context.Background(), 1, "two-sum", SubmitSolutionRequest{
		Code: "code", Language: "go",
		TestCases: []model.TestCase{{Input: "1", ExpectedOutput: "1"}},
	})
	require.NoError(t, err)

	p1, err := svc.GetUserProgress(context.Background(), 1)
	require.NoError(t, err)
	p2, err := svc.GetUserProgress(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 100, p1.TotalScore)
	assert.Equal(t, 0, p2.TotalScore)
	assert.Equal(t, "1", p1.UserID)
	assert.Equal(t, "2", p2.UserID)
}

func TestConcurrentSubmissionsSameUser(t *testing.T) {
	svc := newTestProgressService()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.SubmitSolution(context.Background(), 1, fmt.Sprintf("p-%d", n), SubmitSolutionRequest{
				Code: "code", Language: "go",
				TestCases: []model.TestCase{{Input: "1", ExpectedOutput: "1"}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	progress, err := svc.GetUserProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, workers*100, progress.TotalScore)
	assert.Equal(t, workers, progress.Statistics.ProblemsSolved)
}

func TestCompleteInterviewThroughService(t *testing.T) {
	svc := newTestProgressService()

	interview, err := svc.CompleteInterview(context.Background(), 1, InterviewData{
		Type: "technical", Difficulty: "hard", Score: 90,
	})
	require.NoError(t, err)
	assert.Contains(t, interview.SessionID, "interview_")

	summary, err := svc.GetProgressSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 900, summary.TotalScore)
	assert.Equal(t, 1, summary.InterviewsCompleted)
}

func TestClearUserProgressThroughService(t *testing.T) {
	svc := newTestProgressService()

	_, err := svc.SubmitSolution(context.Background(), 1, "two-sum", SubmitSolutionRequest{
		Code: "code", Language: "go",
		TestCases: []model.TestCase{{Input: "1", ExpectedOutput: "1"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ClearUserProgress(context.Background(), 1))

	// 清空后重新访问得到全零快照
	progress, err := svc.GetUserProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.TotalScore)
	assert.Empty(t, progress.ProblemsProgress)
}
