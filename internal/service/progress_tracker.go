package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/internal/repository"
	"unicodeprep_backend/internal/util"
	"unicodeprep_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pointsPerSolvedProblem = 100
	dateLayout             = "2006-01-02"
)

// InterviewData 完成面试时调用方提供的数据，sessionId 与 completedAt 由服务生成
type InterviewData struct {
	Type       string                    `json:"type" binding:"required"`
	Difficulty string                    `json:"difficulty" binding:"required"`
	Duration   int                       `json:"duration"`
	Score      float64                   `json:"score" binding:"min=0,max=100"`
	Feedback   string                    `json:"feedback"`
	Questions  []model.InterviewQuestion `json:"questions"`
}

// ProgressTracker 进度与游戏化引擎的唯一入口。持有当前绑定用户的内存快照，
// 每次变更后整体持久化并重算派生字段。单写者，自身不加锁，由调用方保证
// 同一实例不被并发访问。
type ProgressTracker struct {
	store    repository.ProgressStore
	executor CodeExecutor

	userID   uint
	bound    bool
	progress *model.UserProgress

	now func() time.Time
}

func NewProgressTracker(store repository.ProgressStore, executor CodeExecutor) *ProgressTracker {
	return &ProgressTracker{
		store:    store,
		executor: executor,
		now:      time.Now,
	}
}

// SetCurrentUser 绑定活动用户并加载其快照；没有快照或快照损坏时初始化全零快照。
// 替换之前绑定的任何用户状态。
func (t *ProgressTracker) SetCurrentUser(ctx context.Context, userID uint) error {
	t.userID = userID
	t.bound = true

	key := model.ProgressKeyFor(userID)
	progress, err := t.store.Load(ctx, key)
	switch {
	case err == nil:
		t.progress = progress
		return nil
	case errors.Is(err, util.ErrSnapshotNotFound):
		return t.initializeProgress(ctx)
	case errors.Is(err, util.ErrSnapshotCorrupt):
		// 快照是缓存而非事实源，损坏即丢弃重建
		logger.Log.Warn("discarding corrupt progress snapshot",
			zap.Uint("userID", userID), zap.Error(err))
		return t.initializeProgress(ctx)
	default:
		t.bound = false
		t.progress = nil
		return err
	}
}

func (t *ProgressTracker) initializeProgress(ctx context.Context) error {
	t.progress = model.NewUserProgress(fmt.Sprintf("%d", t.userID))
	return t.save(ctx)
}

func (t *ProgressTracker) save(ctx context.Context) error {
	return t.store.Save(ctx, model.ProgressKeyFor(t.userID), t.progress)
}

// GetUserProgress 返回当前内存快照，未绑定用户时为 nil。只读，无副作用。
func (t *ProgressTracker) GetUserProgress() *model.UserProgress {
	return t.progress
}

// GetProblemProgress 取出单题进度，不存在则惰性创建（状态 not_started、空提交列表）。
// 惰性创建本身是一次变更，由随后的持久化落盘。
func (t *ProgressTracker) GetProblemProgress(problemID string) (*model.ProblemProgress, error) {
	if t.progress == nil {
		return nil, util.ErrProgressNotInitialized
	}

	pp, ok := t.progress.ProblemsProgress[problemID]
	if !ok {
		pp = &model.ProblemProgress{
			ProblemID:   problemID,
			Status:      model.ProblemNotStarted,
			Submissions: []model.ProblemSubmission{},
		}
		t.progress.ProblemsProgress[problemID] = pp
	}
	return pp, nil
}

// SubmitProblemSolution 记录一次提交：追加历史、推进状态机、按需计分/记勤，
// 最后整体持久化。返回已记录的提交。
func (t *ProgressTracker) SubmitProblemSolution(ctx context.Context, problemID, code, language string, testResults []model.TestResult) (*model.ProblemSubmission, error) {
	if t.progress == nil {
		return nil, util.ErrProgressNotInitialized
	}

	pp, err := t.GetProblemProgress(problemID)
	if err != nil {
		return nil, err
	}

	// 与「每个用例都通过」的口径一致，空结果集由 HTTP 层拒绝
	allPassed := true
	totalTime := 0.0
	for _, r := range testResults {
		if !r.Passed {
			allPassed = false
		}
		totalTime += r.ExecutionTime
	}

	status := model.SubmissionFailed
	if allPassed {
		status = model.SubmissionPassed
	}

	now := t.now()
	submission := model.ProblemSubmission{
		ID:            uuid.NewString(),
		ProblemID:     problemID,
		Code:          code,
		Language:      language,
		Status:        status,
		TestResults:   testResults,
		SubmittedAt:   now,
		ExecutionTime: totalTime,
		// 内存占用由真实判题引擎测量，本引擎不伪造数值
		MemoryUsed: 0,
	}

	// 历史只追加，不截断、不去重
	pp.Submissions = append(pp.Submissions, submission)

	if pp.Status == model.ProblemNotStarted {
		pp.Status = model.ProblemAttempted
		firstAttempt := now
		pp.FirstAttemptDate = &firstAttempt
		t.progress.Statistics.ProblemsAttempted++
	}

	// 每题只走一次 solved 分支：后续通过的提交不再计分、不替换最佳提交
	if allPassed && pp.Status != model.ProblemSolved {
		pp.Status = model.ProblemSolved
		solved := now
		pp.SolvedDate = &solved
		best := submission
		pp.BestSubmission = &best
		t.progress.Statistics.ProblemsSolved++

		t.awardPoints(pointsPerSolvedProblem)
		t.markAttendanceForToday(model.ActivityProblemSolved)
	}

	if err := t.save(ctx); err != nil {
		return nil, err
	}
	return &submission, nil
}

// CompleteInterview 追加一条面试记录，按分数计分并记今日出勤，持久化后返回
// 带新 sessionId 和完成时间的记录。
func (t *ProgressTracker) CompleteInterview(ctx context.Context, data InterviewData) (*model.InterviewProgress, error) {
	if t.progress == nil {
		return nil, util.ErrProgressNotInitialized
	}

	interview := model.InterviewProgress{
		SessionID:   "interview_" + uuid.NewString(),
		Type:        data.Type,
		Difficulty:  data.Difficulty,
		Duration:    data.Duration,
		Score:       data.Score,
		Feedback:    data.Feedback,
		CompletedAt: t.now(),
		Questions:   data.Questions,
	}
	if interview.Questions == nil {
		interview.Questions = []model.InterviewQuestion{}
	}

	t.progress.InterviewsProgress = append(t.progress.InterviewsProgress, interview)
	t.progress.Statistics.InterviewsCompleted++

	t.awardPoints(int(math.Round(data.Score * 10)))
	t.markAttendanceForToday(model.ActivityInterviewCompleted)

	if err := t.save(ctx); err != nil {
		return nil, err
	}
	return &interview, nil
}

// awardPoints 加分并重算段位与平均分。段位是总分的纯函数。
func (t *ProgressTracker) awardPoints(points int) {
	t.progress.TotalScore += points
	t.progress.Rank = model.RankForScore(t.progress.TotalScore)

	totalActivities := t.progress.Statistics.ProblemsSolved + t.progress.Statistics.InterviewsCompleted
	if totalActivities > 0 {
		t.progress.Statistics.AverageScore = float64(t.progress.TotalScore) / float64(totalActivities)
	}
}

// markAttendanceForToday 登记今日活动、重算连续天数并发放坚持币。
// 坚持币每次登记都发放，不按天封顶。
func (t *ProgressTracker) markAttendanceForToday(activityTag string) {
	today := t.now().Format(dateLayout)

	activity, ok := t.progress.DailyActivities[today]
	if !ok {
		activity = &model.DailyActivity{
			Date:                today,
			ActivitiesCompleted: []string{},
		}
		t.progress.DailyActivities[today] = activity
	}

	// 标签集合语义，不重复记录
	present := false
	for _, tag := range activity.ActivitiesCompleted {
		if tag == activityTag {
			present = true
			break
		}
	}
	if !present {
		activity.ActivitiesCompleted = append(activity.ActivitiesCompleted, activityTag)
	}

	switch activityTag {
	case model.ActivityProblemSolved:
		activity.ProblemsSolved++
	case model.ActivityInterviewCompleted:
		activity.InterviewsCompleted++
	}

	t.updateStreak(today)

	coins := maxInt(1, t.progress.CurrentStreak/2) * 2
	t.progress.ConsistencyCoins += coins
}

// updateStreak 重算连续打卡：同日重复活动不改变连击。
func (t *ProgressTracker) updateStreak(today string) {
	if t.progress.LastActivityDate == today {
		return
	}

	yesterday := t.now().AddDate(0, 0, -1).Format(dateLayout)

	if t.progress.LastActivityDate == yesterday || t.progress.LastActivityDate == "" {
		t.progress.CurrentStreak++
	} else {
		// 断签，重新从 1 开始
		t.progress.CurrentStreak = 1
	}

	if t.progress.CurrentStreak > t.progress.LongestStreak {
		t.progress.LongestStreak = t.progress.CurrentStreak
	}

	t.progress.LastActivityDate = today
}

// GetAttendanceData 当月出勤视图：自然月每天一项，有任意活动记 true。
// 每次调用基于当前时间重算，不落盘。
func (t *ProgressTracker) GetAttendanceData() map[string]bool {
	attendance := make(map[string]bool)
	if t.progress == nil {
		return attendance
	}

	now := t.now()
	year, month := now.Year(), now.Month()
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, now.Location()).Day()

	for day := 1; day <= daysInMonth; day++ {
		key := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
		active := false
		if a, ok := t.progress.DailyActivities[key]; ok {
			active = len(a.ActivitiesCompleted) > 0
		}
		attendance[key] = active
	}
	return attendance
}

// GetSubmissionHistory 指定题目时按原始升序返回其提交；否则返回所有题目的
// 全部提交，按提交时间降序。
func (t *ProgressTracker) GetSubmissionHistory(problemID string) []model.ProblemSubmission {
	if t.progress == nil {
		return []model.ProblemSubmission{}
	}

	if problemID != "" {
		if pp, ok := t.progress.ProblemsProgress[problemID]; ok {
			return pp.Submissions
		}
		return []model.ProblemSubmission{}
	}

	all := []model.ProblemSubmission{}
	for _, pp := range t.progress.ProblemsProgress {
		all = append(all, pp.Submissions...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].SubmittedAt.After(all[j].SubmittedAt)
	})
	return all
}

// ClearUserProgress 删除持久化快照并解绑用户，内存状态清空。
func (t *ProgressTracker) ClearUserProgress(ctx context.Context) error {
	if !t.bound {
		return util.ErrProgressNotInitialized
	}

	if err := t.store.Delete(ctx, model.ProgressKeyFor(t.userID)); err != nil {
		return err
	}

	t.progress = nil
	t.bound = false
	t.userID = 0
	return nil
}

// ExecuteCode 执行引擎接缝：委托给注入的 CodeExecutor，结果保持用例顺序。
func (t *ProgressTracker) ExecuteCode(ctx context.Context, code, language string, testCases []model.TestCase) ([]model.TestResult, error) {
	return t.executor.Execute(ctx, code, language, testCases)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
