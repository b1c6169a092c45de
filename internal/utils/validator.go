package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	githubRepoPattern = regexp.MustCompile(`^https://github\.com/[\w\-.]+/[\w\-.]+/?$`)
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// IsGithubRepoURL reports whether s points at a GitHub repository.
func IsGithubRepoURL(s string) bool {
	return githubRepoPattern.MatchString(strings.TrimSpace(s))
}

// IsValidUsername checks length and the allowed character set.
func IsValidUsername(s string) bool {
	return len(s) >= MinUsernameLength && len(s) <= MaxUsernameLength && usernamePattern.MatchString(s)
}

// RegisterValidators adds the custom binding tags used by request schemas:
// githubrepo (empty allowed) and username. Field errors report JSON names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("githubrepo", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return value == "" || IsGithubRepoURL(value)
	}); err != nil {
		return err
	}
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})
}

// TrimAll trims every entry and drops empty values. Order and repeats are kept.
func TrimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
