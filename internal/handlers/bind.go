package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/collabify/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON decodes the request body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, bindErrorMessage(err))
		return false
	}
	return true
}

// bindQuery decodes query parameters into req and writes a 400 on failure.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.BadRequest(c, bindErrorMessage(err))
		return false
	}
	return true
}

// bindErrorMessage turns the first validation failure into a readable message.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "githubrepo":
		return "Please provide a valid GitHub repository URL"
	case "username":
		return "Username can only contain letters, numbers, hyphens and underscores"
	case "url":
		return "Invalid " + field + " URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return "Invalid " + field
}

// parseID reads a positive numeric path or query value.
func parseID(value string) (uint, bool) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
