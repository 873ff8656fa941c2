package http

import (
	"github.com/gin-gonic/gin"

	"student-violation-service/internal/model"
)

// Envelope is the common response contract: success flag, human message, and
// optional payload / pagination / structured field errors.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       interface{}       `json:"data,omitempty"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
	Errors     interface{}       `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, status int, message string, data interface{}, pagination model.Pagination) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data, Pagination: &pagination})
}

func respondError(c *gin.Context, status int, message string, errs interface{}) {
	c.JSON(status, Envelope{Success: false, Message: message, Errors: errs})
}
