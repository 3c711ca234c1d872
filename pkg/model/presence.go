package model

import (
	"errors"
	"fmt"
)

type PresenceRecord struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

const (
	maxPresenceName = 60
	maxPresenceBio  = 280
)

// Validate rejects records that must not be broadcast to a roster.
func (p PresenceRecord) Validate() error {
	if !ValidUserID(p.UserID) {
		return errors.New("presence record has invalid user id")
	}
	if p.Name == "" {
		return errors.New("presence record has no name")
	}
	if len(p.Name) > maxPresenceName {
		return fmt.Errorf("presence name longer than %d bytes", maxPresenceName)
	}
	if len(p.Bio) > maxPresenceBio {
		return fmt.Errorf("presence bio longer than %d bytes", maxPresenceBio)
	}
	return nil
}

func PresenceFromUser(u *User) PresenceRecord {
	return PresenceRecord{
		UserID: u.ID,
		Name:   u.DisplayName,
		Avatar: u.AvatarURL,
		Bio:    u.Bio,
	}
}
