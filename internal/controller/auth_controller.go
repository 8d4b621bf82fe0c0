package controller

import (
	"errors"
	"net/http"
	"unicodeprep_backend/internal/service"
	"unicodeprep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService  *service.AuthService
	EmailService *service.EmailService
}

func NewAuthController(authService *service.AuthService, emailService *service.EmailService) *AuthController {
	return &AuthController{
		AuthService:  authService,
		EmailService: emailService,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// @Summary 学生注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.StudentRegistration true "注册信息"
// @Success 201 {object} util.Response
// @Router /api/register/student [post]
func (c *AuthController) RegisterStudent(ctx *gin.Context) {
	var req service.StudentRegistration
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.RegisterStudent(req)
	if err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.Error(ctx, http.StatusConflict, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// @Summary 教师注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.ProfessorRegistration true "注册信息"
// @Success 201 {object} util.Response
// @Router /api/register/professor [post]
func (c *AuthController) RegisterProfessor(ctx *gin.Context) {
	var req service.ProfessorRegistration
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.RegisterProfessor(req)
	if err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.Error(ctx, http.StatusConflict, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body loginRequest true "登录信息"
// @Success 200 {object} util.Response
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(req.Email, req.Password)
	if err != nil {
		util.Error(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}

	util.Success(ctx, gin.H{
		"token": token,
		"user":  user,
	})
}

// @Summary 获取个人信息
// @Tags 认证
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.AuthService.GetProfile(claims.UserID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, user)
}

// @Summary 发送密码重置验证码
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body forgotPasswordRequest true "邮箱"
// @Success 200 {object} util.Response
// @Router /api/password/forgot [post]
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req forgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.EmailService.SendPasswordResetOTP(ctx.Request.Context(), req.Email)
	switch {
	case err == nil:
		util.Success(ctx, gin.H{"message": "reset code sent"})
	case errors.Is(err, util.ErrTooManyResetAttempts):
		util.Error(ctx, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, util.ErrUserNotFound):
		// 不暴露账户是否存在
		util.Success(ctx, gin.H{"message": "reset code sent"})
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 校验验证码并重置密码
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body resetPasswordRequest true "重置信息"
// @Success 200 {object} util.Response
// @Router /api/password/reset [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req resetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.EmailService.VerifyOTPAndResetPassword(ctx.Request.Context(), req.Email, req.Code, req.NewPassword)
	switch {
	case err == nil:
		util.Success(ctx, gin.H{"message": "password updated"})
	case errors.Is(err, util.ErrInvalidResetCode):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrTooManyResetAttempts):
		util.Error(ctx, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, util.ErrUserNotFound):
		util.BadRequest(ctx, util.ErrInvalidResetCode.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
