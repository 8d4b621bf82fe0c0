package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicodeprep_backend/internal/config"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/pkg/logger"

	"go.uber.org/zap"
)

// CodeExecutor 代码执行引擎的契约：按序返回每个测试用例的结果，一例一个
type CodeExecutor interface {
	Execute(ctx context.Context, code, language string, testCases []model.TestCase) ([]model.TestResult, error)
}

// NewCodeExecutor 配置了 Judge0 地址时走远程判题，否则使用本地占位实现
func NewCodeExecutor(cfg *config.Judge0Config) CodeExecutor {
	if cfg != nil && cfg.URL != "" {
		return NewJudge0Executor(cfg)
	}
	logger.Log.Warn("judge0 not configured, using stub executor")
	return &StubExecutor{}
}

// StubExecutor 开发环境占位：回显期望输出并判通过，不产生随机数据。
// 生产部署必须配置真实判题服务。
type StubExecutor struct{}

func (e *StubExecutor) Execute(_ context.Context, _, _ string, testCases []model.TestCase) ([]model.TestResult, error) {
	results := make([]model.TestResult, len(testCases))
	for i, tc := range testCases {
		results[i] = model.TestResult{
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   tc.ExpectedOutput,
			Passed:         true,
			ExecutionTime:  0,
		}
	}
	return results, nil
}

// Judge0Executor 调用 Judge0 兼容判题接口
type Judge0Executor struct {
	cfg    *config.Judge0Config
	client *http.Client
}

func NewJudge0Executor(cfg *config.Judge0Config) *Judge0Executor {
	return &Judge0Executor{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

var judge0Languages = map[string]int{
	"c":          50,
	"cpp":        54,
	"go":         60,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

type judge0Request struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type judge0Response struct {
	Stdout string `json:"stdout"`
	Time   string `json:"time"`   // 秒，字符串
	Memory int    `json:"memory"` // KB
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (e *Judge0Executor) Execute(ctx context.Context, code, language string, testCases []model.TestCase) ([]model.TestResult, error) {
	langID, ok := judge0Languages[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	results := make([]model.TestResult, 0, len(testCases))
	for _, tc := range testCases {
		res, err := e.runOne(ctx, code, langID, tc)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Judge0Executor) runOne(ctx context.Context, code string, langID int, tc model.TestCase) (model.TestResult, error) {
	reqBody := judge0Request{
		SourceCode:     code,
		LanguageID:     langID,
		Stdin:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return model.TestResult{}, err
	}

	url := strings.TrimSuffix(e.cfg.URL, "/") + "/submissions?base64_encoded=false&wait=true"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return model.TestResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", e.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", e.cfg.Host)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return model.TestResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.TestResult{}, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger.Log.Error("judge0 request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return model.TestResult{}, fmt.Errorf("judge0 returned status %d", resp.StatusCode)
	}

	var j0 judge0Response
	if err := json.Unmarshal(body, &j0); err != nil {
		return model.TestResult{}, err
	}

	execMs := 0.0
	if sec, err := strconv.ParseFloat(j0.Time, 64); err == nil {
		execMs = sec * 1000
	}

	// Judge0 status 3 = Accepted
	passed := j0.Status.ID == 3

	return model.TestResult{
		Input:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
		ActualOutput:   strings.TrimRight(j0.Stdout, "\n"),
		Passed:         passed,
		ExecutionTime:  execMs,
	}, nil
}
