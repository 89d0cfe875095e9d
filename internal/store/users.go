package store

import (
	"errors"
	"fmt"

	"station/internal/auth"
	"station/internal/logging"
)

// ErrWrongPassword is returned when a known user presents a different password.
var ErrWrongPassword = errors.New("wrong password")

// User is a registered chat participant.
type User struct {
	Username string `json:"username"`
	Hash     string `json:"hash"`
}

// Users registers chat participants on first contact and checks their
// password afterwards.
type Users struct {
	doc *Document[[]User]
}

func NewUsers(path string, logger logging.Logger) *Users {
	return &Users{doc: NewDocument(path, emptySlice[User], validateUsers, logger)}
}

func validateUsers(users []User) error {
	for i, u := range users {
		if u.Username == "" || u.Hash == "" {
			return fmt.Errorf("user %d is missing username or hash", i)
		}
	}
	return nil
}

// Authenticate registers username when unknown, otherwise verifies password.
// registered is true when a new account was created.
func (u *Users) Authenticate(username, password string) (registered bool, err error) {
	err = u.doc.Update(func(users []User) ([]User, error) {
		for _, existing := range users {
			if existing.Username != username {
				continue
			}
			ok, verifyErr := auth.VerifyPassword(password, existing.Hash)
			if verifyErr != nil {
				return nil, verifyErr
			}
			if !ok {
				return nil, ErrWrongPassword
			}
			return users, nil
		}
		hash, hashErr := auth.HashPassword(password)
		if hashErr != nil {
			return nil, hashErr
		}
		registered = true
		return append(users, User{Username: username, Hash: hash}), nil
	})
	if err != nil {
		registered = false
	}
	return registered, err
}
