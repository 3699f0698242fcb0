package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type currencyUpdateRequest struct {
	Currency string `json:"currency" binding:"required,len=3"`
}

func (s *server) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	res, err := s.Auth.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "User registered successfully", res)
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	res, err := s.Auth.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Login successful", res)
}

func (s *server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	res, err := s.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Token refreshed successfully", res)
}

// logout revokes the refresh token in the body, if any. The access token simply expires.
func (s *server) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if err := s.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			fail(c, err)
			return
		}
	}
	ok(c, http.StatusOK, "Logged out successfully", nil)
}

func (s *server) logoutAll(c *gin.Context) {
	if err := s.Auth.LogoutAll(c.Request.Context(), userID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Logged out of all sessions", nil)
}

func (s *server) me(c *gin.Context) {
	u, err := s.Auth.Me(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "User profile retrieved", u)
}

func (s *server) setUserCurrency(c *gin.Context) {
	id, err := pathInt64(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req currencyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	u, err := s.Users.UpdateCurrency(c.Request.Context(), actor(c), id, req.Currency)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Default currency updated", u)
}

func (s *server) userBudgets(c *gin.Context) {
	id, err := pathInt64(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := actor(c).Authorize(id); err != nil {
		fail(c, err)
		return
	}
	views, err := s.Budgets.List(c.Request.Context(), id, nil)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, retrievedBudgets(len(views)), views)
}

func (s *server) userSummary(c *gin.Context) {
	id, err := pathInt64(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := actor(c).Authorize(id); err != nil {
		fail(c, err)
		return
	}
	sum, err := s.Analytics.Summary(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Analytics summary retrieved", sum)
}
