// Package rsvp owns guest responses against published invitations: the
// public read path, response submission with form-config validation, and the
// owner-side listing.
package rsvp

import (
	"encoding/json"
	"time"
)

// Response is one stored guest reply.
type Response struct {
	ID           string    `json:"id"`
	InvitationID string    `json:"-"`
	GuestName    string    `json:"guest_name"`
	Email        string    `json:"email,omitempty"`
	Attending    bool      `json:"attending"`
	GuestCount   int       `json:"guest_count"`
	Dietary      string    `json:"dietary,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Submission is the raw guest input before validation against the
// invitation's form config.
type Submission struct {
	GuestName  string
	Email      string
	Attending  bool
	GuestCount int
	Dietary    string
	Message    string
}

// formFields mirrors the owner-chosen RSVP form switches inside the stored
// config blob.
type formFields struct {
	Email      bool `json:"email"`
	GuestCount bool `json:"guest_count"`
	MaxGuests  int  `json:"max_guests"`
	Dietary    bool `json:"dietary"`
	Message    bool `json:"message"`
}

type formConfig struct {
	Enabled  bool       `json:"enabled"`
	Deadline string     `json:"deadline"`
	Fields   formFields `json:"fields"`
}

// defaultFormConfig matches what a fresh builder document sends before the
// owner touches the RSVP step.
func defaultFormConfig() formConfig {
	return formConfig{
		Enabled: true,
		Fields: formFields{
			Email:      true,
			GuestCount: true,
			MaxGuests:  2,
			Dietary:    true,
			Message:    true,
		},
	}
}

// parseFormConfig reads the stored config blob; an absent blob falls back to
// the builder defaults so a never-touched RSVP step still accepts replies.
func parseFormConfig(raw json.RawMessage) formConfig {
	cfg := defaultFormConfig()
	if len(raw) == 0 {
		return cfg
	}
	_ = json.Unmarshal(raw, &cfg)
	return cfg
}
