package http

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	serrors "station/internal/errors"
	"station/internal/store"
)

type response struct {
	Success bool   `json:"SUCCESS"`
	Message string `json:"MESSAGE,omitempty"`
}

type hashcodeResponse struct {
	Success  bool   `json:"SUCCESS"`
	Hashcode string `json:"HASHCODE"`
}

type chatResponse struct {
	Success bool   `json:"SUCCESS"`
	Chat    string `json:"CHAT"`
}

type rangeLimit struct {
	Minimum int `json:"MINIMUM"`
	Maximum int `json:"MAXIMUM"`
}

type lengthLimits struct {
	Username rangeLimit `json:"USERNAME"`
	Password rangeLimit `json:"PASSWORD"`
	Message  int        `json:"MESSAGE"`
}

type settingsResponse struct {
	Success       bool         `json:"SUCCESS"`
	ClientRefresh int          `json:"CLIENT_REFRESH"`
	LengthLimit   lengthLimits `json:"LENGTH_LIMIT"`
}

type validationResponse struct {
	Success          bool     `json:"SUCCESS"`
	ValidationErrors []string `json:"VALIDATION_ERRORS"`
}

type messageRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Message  string `json:"message"`
}

// Hashcode is the SHA-256 of the public transcript. Clients poll it to learn
// when to reload the chat.
func Hashcode(transcript string) string {
	sum := sha256.Sum256([]byte(transcript))
	return hex.EncodeToString(sum[:])
}

func (s *Server) handleHashcode(c *gin.Context) {
	transcript, err := s.deps.Stores.Chat.Render(false)
	if err != nil {
		s.logger.Error("Failed to send the chat hashcode: %s", serrors.FormatMessage(err))
		c.JSON(http.StatusInternalServerError, response{})
		return
	}
	c.JSON(http.StatusOK, hashcodeResponse{Success: true, Hashcode: Hashcode(transcript)})
}

func (s *Server) handleChat(c *gin.Context) {
	transcript, err := s.deps.Stores.Chat.Render(false)
	if err != nil {
		s.logger.Error("Failed to send the chat transcript: %s", serrors.FormatMessage(err))
		c.JSON(http.StatusInternalServerError, response{
			Message: "A server error prevented the chat from loading.",
		})
		return
	}
	c.JSON(http.StatusOK, chatResponse{Success: true, Chat: transcript})
}

func (s *Server) handleSettings(c *gin.Context) {
	w := s.deps.Settings.Website
	c.JSON(http.StatusOK, settingsResponse{
		Success:       true,
		ClientRefresh: w.ClientRefresh,
		LengthLimit: lengthLimits{
			Username: rangeLimit{Minimum: w.LengthLimit.Username.Minimum, Maximum: w.LengthLimit.Username.Maximum},
			Password: rangeLimit{Minimum: w.LengthLimit.Password.Minimum, Maximum: w.LengthLimit.Password.Maximum},
			Message:  w.LengthLimit.Message,
		},
	})
}

func (s *Server) handleMessage(c *gin.Context) {
	now := s.now()
	stores := s.deps.Stores

	until, err := stores.UserUnfreeze.Get()
	if err != nil {
		s.fail(c, "read the user cool-down", err)
		return
	}
	if now.Before(until) {
		seconds := int(math.Ceil(until.Sub(now).Seconds()))
		s.deps.Metrics.ObserveChatMessage("cooldown")
		c.JSON(http.StatusTooManyRequests, response{
			Message: fmt.Sprintf("Please wait %s before sending a new message.", plural(seconds, "second")),
		})
		return
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.deps.Metrics.ObserveChatMessage("invalid")
		c.JSON(http.StatusBadRequest, validationResponse{ValidationErrors: []string{"The request body must be a JSON object."}})
		return
	}
	username := collapseSpaces(req.Username)
	password := strings.TrimSpace(req.Password)
	message := strings.TrimSpace(req.Message)
	ip := c.ClientIP()

	reason, err := s.banReason(username, ip)
	if err != nil {
		s.fail(c, "read the blacklist", err)
		return
	}
	if reason != "" {
		s.logger.Info("Rejected a message from user «%s» at IP address «%s»: «%s»", username, ip, reason)
		s.deps.Metrics.ObserveChatMessage("banned")
		c.JSON(http.StatusForbidden, response{Message: reason})
		return
	}

	if problems := validateMessage(username, password, message, s.deps.Settings.Website.LengthLimit); len(problems) > 0 {
		s.deps.Metrics.ObserveChatMessage("invalid")
		c.JSON(http.StatusBadRequest, validationResponse{ValidationErrors: problems})
		return
	}

	registered, err := stores.Users.Authenticate(username, password)
	if errors.Is(err, store.ErrWrongPassword) {
		s.deps.Metrics.ObserveChatMessage("unauthorized")
		c.JSON(http.StatusUnauthorized, response{Message: "Invalid username or password."})
		return
	}
	if err != nil {
		s.fail(c, "authenticate the user", err)
		return
	}
	if registered {
		s.logger.Info("Registered new user «%s»", username)
	}

	posted, err := stores.Chat.Append(username, message, store.RoleUser, ip)
	if err != nil {
		s.logger.Error("Failed to update the chat file: %s", serrors.FormatMessage(err))
		c.JSON(http.StatusInternalServerError, response{
			Message: "Your message could not be written to the chat because of a server error.",
		})
		return
	}
	if err := stores.UserUnfreeze.Set(now.Add(s.deps.Settings.UserCooldown())); err != nil {
		s.logger.Warn("Failed to set the user cool-down: %s", serrors.FormatMessage(err))
	}
	entry := fmt.Sprintf("Message from <%s> (%s) [Message ID: «%d»] [IP address: «%s»] was added to the chat.",
		posted.Nickname, posted.Role, posted.ID, posted.IP)
	if err := stores.History.Append(entry); err != nil {
		s.logger.Warn("Failed to record the message in history: %s", serrors.FormatMessage(err))
	}
	if err := stores.ModelUnfreeze.Clear(); err != nil {
		s.logger.Warn("Failed to wake the model: %s", serrors.FormatMessage(err))
	}

	s.deps.Metrics.ObserveChatMessage("accepted")
	s.logger.Info("Received a message from user <%s> at IP address «%s» → {\n%s\n}", username, ip, message)
	c.JSON(http.StatusOK, response{Success: true, Message: "Message sent successfully."})
}

// banReason checks the username first, then the IP address.
func (s *Server) banReason(username, ip string) (string, error) {
	entries, err := s.deps.Stores.Blacklist.Entries()
	if err != nil {
		return "", err
	}
	const prefix = "You cannot send messages."
	for _, e := range entries {
		if e.Username == username {
			return prefix + " This user is banned.", nil
		}
	}
	for _, e := range entries {
		if e.IP == ip {
			return prefix + " Your IP address is blocked.", nil
		}
	}
	return "", nil
}

func (s *Server) fail(c *gin.Context, action string, err error) {
	s.logger.Error("Failed to %s while handling a user message: %s", action, serrors.FormatMessage(err))
	s.deps.Metrics.ObserveChatMessage("error")
	c.JSON(http.StatusInternalServerError, response{
		Message: "Internal server error while processing your message.",
	})
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
