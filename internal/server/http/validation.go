package http

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"station/internal/config"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Zа-яА-Я0-9_ ]+$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]+$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// validateMessage reports at most one problem per field. Inputs are expected
// to be normalized already.
func validateMessage(username, password, message string, limits config.LengthLimits) []string {
	var problems []string

	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		problems = append(problems, "The username cannot be empty.")
	case !usernamePattern.MatchString(username):
		problems = append(problems, "The username may only contain Russian and English letters, digits, underscores and spaces.")
	case n < limits.Username.Minimum:
		problems = append(problems, fmt.Sprintf("The username must be at least %s long.", plural(limits.Username.Minimum, "character")))
	case n > limits.Username.Maximum:
		problems = append(problems, fmt.Sprintf("The username must be at most %s long.", plural(limits.Username.Maximum, "character")))
	}

	switch n := utf8.RuneCountInString(password); {
	case n == 0:
		problems = append(problems, "The password cannot be empty.")
	case !passwordPattern.MatchString(password):
		problems = append(problems, "The password contains forbidden characters.")
	case n < limits.Password.Minimum:
		problems = append(problems, fmt.Sprintf("The password must be at least %s long.", plural(limits.Password.Minimum, "character")))
	case n > limits.Password.Maximum:
		problems = append(problems, fmt.Sprintf("The password must be at most %s long.", plural(limits.Password.Maximum, "character")))
	}

	switch n := utf8.RuneCountInString(message); {
	case n == 0:
		problems = append(problems, "The message cannot be empty.")
	case n > limits.Message:
		problems = append(problems, fmt.Sprintf("The message must not exceed %s.", plural(limits.Message, "character")))
	}
	return problems
}
