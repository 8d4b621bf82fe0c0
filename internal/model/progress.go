package model

import (
	"fmt"
	"time"
)

type Rank string

const (
	RankBronze   Rank = "bronze"
	RankSilver   Rank = "silver"
	RankGold     Rank = "gold"
	RankPlatinum Rank = "platinum"
	RankDiamond  Rank = "diamond"
)

// RankForScore 根据总分计算段位
func RankForScore(totalScore int) Rank {
	switch {
	case totalScore >= 10000:
		return RankDiamond
	case totalScore >= 5000:
		return RankPlatinum
	case totalScore >= 2500:
		return RankGold
	case totalScore >= 1000:
		return RankSilver
	default:
		return RankBronze
	}
}

type ProblemStatus string

const (
	ProblemNotStarted ProblemStatus = "not_started"
	ProblemAttempted  ProblemStatus = "attempted"
	ProblemSolved     ProblemStatus = "solved"
)

type SubmissionStatus string

const (
	SubmissionPassed SubmissionStatus = "passed"
	SubmissionFailed SubmissionStatus = "failed"
)

// 活动类型标签，记录在每日活动的 activitiesCompleted 中
const (
	ActivityProblemSolved      = "problem_solved"
	ActivityInterviewCompleted = "interview_completed"
)

// ProgressKeyFor 快照在键值存储中的分区键
func ProgressKeyFor(userID uint) string {
	return fmt.Sprintf("progress_%d", userID)
}

// TestResult 单个测试用例的执行结果
// swagger:model TestResult
type TestResult struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expectedOutput"`
	ActualOutput   string  `json:"actualOutput"`
	Passed         bool    `json:"passed"`
	ExecutionTime  float64 `json:"executionTime"` // 毫秒
}

// TestCase 提交给执行引擎的测试用例
// swagger:model TestCase
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// ProblemSubmission 一次代码提交，创建后不可变
// swagger:model ProblemSubmission
type ProblemSubmission struct {
	ID            string           `json:"id"`
	ProblemID     string           `json:"problemId"`
	Code          string           `json:"code"`
	Language      string           `json:"language"`
	Status        SubmissionStatus `json:"status"`
	TestResults   []TestResult     `json:"testResults"`
	SubmittedAt   time.Time        `json:"submittedAt"`
	ExecutionTime float64          `json:"executionTime"`
	MemoryUsed    float64          `json:"memoryUsed"`
}

// ProblemProgress 单题的做题进度，状态机 not_started -> attempted -> solved
// swagger:model ProblemProgress
type ProblemProgress struct {
	ProblemID        string              `json:"problemId"`
	Status           ProblemStatus       `json:"status"`
	Submissions      []ProblemSubmission `json:"submissions"`
	FirstAttemptDate *time.Time          `json:"firstAttemptDate,omitempty"`
	SolvedDate       *time.Time          `json:"solvedDate,omitempty"`
	BestSubmission   *ProblemSubmission  `json:"bestSubmission,omitempty"`
}

// InterviewQuestion 面试中的一问一答
type InterviewQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Rating   int    `json:"rating"`
}

// InterviewProgress 一次模拟面试记录，创建后不可变
// swagger:model InterviewProgress
type InterviewProgress struct {
	SessionID   string              `json:"sessionId"`
	Type        string              `json:"type"`       // technical / behavioral / system_design
	Difficulty  string              `json:"difficulty"` // easy / medium / hard
	Duration    int                 `json:"duration"`   // 分钟
	Score       float64             `json:"score"`      // 0-100
	Feedback    string              `json:"feedback"`
	CompletedAt time.Time           `json:"completedAt"`
	Questions   []InterviewQuestion `json:"questions"`
}

// DailyActivity 每日活动台账，按 YYYY-MM-DD 键控
// swagger:model DailyActivity
type DailyActivity struct {
	Date                string   `json:"date"`
	ProblemsSolved      int      `json:"problemsSolved"`
	InterviewsCompleted int      `json:"interviewsCompleted"`
	TimeSpent           int      `json:"timeSpent"` // 分钟
	ActivitiesCompleted []string `json:"activitiesCompleted"`
}

// Statistics 派生统计缓存，可由其他字段完整重算
type Statistics struct {
	ProblemsSolved      int     `json:"problemsSolved"`
	ProblemsAttempted   int     `json:"problemsAttempted"`
	InterviewsCompleted int     `json:"interviewsCompleted"`
	TotalTimeSpent      int     `json:"totalTimeSpent"`
	AverageScore        float64 `json:"averageScore"`
}

// UserProgress 用户进度快照（根聚合），每用户一份，整体覆盖式持久化
// swagger:model UserProgress
type UserProgress struct {
	UserID             string                      `json:"userId"`
	ProblemsProgress   map[string]*ProblemProgress `json:"problemsProgress"`
	InterviewsProgress []InterviewProgress         `json:"interviewsProgress"`
	DailyActivities    map[string]*DailyActivity   `json:"dailyActivities"`
	TotalScore         int                         `json:"totalScore"`
	CurrentStreak      int                         `json:"currentStreak"`
	LongestStreak      int                         `json:"longestStreak"`
	ConsistencyCoins   int                         `json:"consistencyCoins"`
	Rank               Rank                        `json:"rank"`
	LastActivityDate   string                      `json:"lastActivityDate,omitempty"`
	Statistics         Statistics                  `json:"statistics"`
}

// NewUserProgress 初始化全零快照
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID:             userID,
		ProblemsProgress:   make(map[string]*ProblemProgress),
		InterviewsProgress: []InterviewProgress{},
		DailyActivities:    make(map[string]*DailyActivity),
		Rank:               RankBronze,
	}
}

// Normalize 反序列化后补齐可能为 nil 的容器字段
func (p *UserProgress) Normalize() {
	if p.ProblemsProgress == nil {
		p.ProblemsProgress = make(map[string]*ProblemProgress)
	}
	if p.InterviewsProgress == nil {
		p.InterviewsProgress = []InterviewProgress{}
	}
	if p.DailyActivities == nil {
		p.DailyActivities = make(map[string]*DailyActivity)
	}
	if p.Rank == "" {
		p.Rank = RankBronze
	}
}

// ProgressSummary 回写到 users 表的进度摘要，供排行榜和教师端查询
type ProgressSummary struct {
	TotalScore          int  `json:"total_score"`
	ProblemsSolved      int  `json:"problems_solved"`
	InterviewsCompleted int  `json:"interviews_completed"`
	CurrentStreak       int  `json:"current_streak"`
	LongestStreak       int  `json:"longest_streak"`
	ConsistencyCoins    int  `json:"consistency_coins"`
	Rank                Rank `json:"rank"`
}

// Summary 从快照提取摘要
func (p *UserProgress) Summary() ProgressSummary {
	return ProgressSummary{
		TotalScore:          p.TotalScore,
		ProblemsSolved:      p.Statistics.ProblemsSolved,
		InterviewsCompleted: p.Statistics.InterviewsCompleted,
		CurrentStreak:       p.CurrentStreak,
		LongestStreak:       p.LongestStreak,
		ConsistencyCoins:    p.ConsistencyCoins,
		Rank:                p.Rank,
	}
}
