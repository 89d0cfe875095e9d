package llm

import "google.golang.org/genai"

func genaiError(code int, msg string) error {
	return genai.APIError{Code: code, Message: msg}
}
