package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

func (s *server) chatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	reply, err := s.Chat.Send(c.Request.Context(), userID(c), req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", reply)
}

func (s *server) chatReset(c *gin.Context) {
	msg, err := s.Chat.Reset(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg, nil)
}

func (s *server) chatHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		fail(c, err)
		return
	}
	history, err := s.Chat.History(c.Request.Context(), userID(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", history)
}

func (s *server) chatHealth(c *gin.Context) {
	ok(c, http.StatusOK, "", s.Chat.Health())
}
