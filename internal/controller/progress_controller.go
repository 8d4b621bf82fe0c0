package controller

import (
	"errors"
	"net/http"
	"strconv"
	"unicodeprep_backend/internal/service"
	"unicodeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// @Summary 获取完整进度快照
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.GetUserProgress(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 获取进度摘要
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/progress/summary [get]
func (c *ProgressController) GetProgressSummary(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.ProgressService.GetProgressSummary(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// @Summary 提交题目代码
// @Description 携带前端判题结果或测试用例（由判题引擎执行），记录提交并更新进度
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param problemId path string true "题目ID"
// @Param body body service.SubmitSolutionRequest true "提交内容"
// @Success 201 {object} util.Response
// @Router /api/problems/{problemId}/submissions [post]
func (c *ProgressController) SubmitSolution(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	problemID := ctx.Param("problemId")
	if problemID == "" {
		util.BadRequest(ctx, "problemId is required")
		return
	}

	var req service.SubmitSolutionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.ProgressService.SubmitSolution(ctx.Request.Context(), claims.UserID, problemID, req)
	if err != nil {
		if errors.Is(err, util.ErrNoTestResults) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, submission)
}

// @Summary 获取单题提交历史
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param problemId path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/problems/{problemId}/submissions [get]
func (c *ProgressController) GetProblemSubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	history, err := c.ProgressService.GetSubmissionHistory(ctx.Request.Context(), claims.UserID, ctx.Param("problemId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, history)
}

// @Summary 获取全部提交历史
// @Description 跨题目全部提交，按提交时间降序
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/submissions [get]
func (c *ProgressController) GetAllSubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	history, err := c.ProgressService.GetSubmissionHistory(ctx.Request.Context(), claims.UserID, "")
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, history)
}

// @Summary 完成模拟面试
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.InterviewData true "面试数据"
// @Success 201 {object} util.Response
// @Router /api/interviews [post]
func (c *ProgressController) CompleteInterview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var data service.InterviewData
	if err := ctx.ShouldBindJSON(&data); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	interview, err := c.ProgressService.CompleteInterview(ctx.Request.Context(), claims.UserID, data)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, interview)
}

// @Summary 当月出勤数据
// @Description 当月每天一项，有任意活动记 true
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/attendance [get]
func (c *ProgressController) GetAttendance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attendance, err := c.ProgressService.GetAttendanceData(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, attendance)
}

// @Summary 清空进度
// @Description 删除持久化快照，解绑内存状态
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/progress [delete]
func (c *ProgressController) ClearProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ProgressService.ClearUserProgress(ctx.Request.Context(), claims.UserID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "progress cleared"})
}

// @Summary 排行榜
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/leaderboard [get]
func (c *ProgressController) GetLeaderboard(ctx *gin.Context) {
	limit := 10
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	leaderboard, err := c.ProgressService.GetLeaderboard(limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, leaderboard)
}

// @Summary 学生列表（教师端）
// @Tags 教师
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/students [get]
func (c *ProgressController) GetStudents(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	students, total, err := c.ProgressService.GetStudents(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"list":  students,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// @Summary 单个学生进度（教师端）
// @Tags 教师
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/progress [get]
func (c *ProgressController) GetStudentProgress(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid student id")
		return
	}

	progress, err := c.ProgressService.GetUserProgress(ctx.Request.Context(), uint(id))
	if err != nil {
		util.Error(ctx, http.StatusNotFound, "student progress not found")
		return
	}

	util.Success(ctx, progress)
}
