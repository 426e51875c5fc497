package entity

import "time"

type FormSubmission struct {
	ID              string    `db:"id"`
	SessionID       string    `db:"session_id"`
	UserID          string    `db:"user_id"`
	FormURL         string    `db:"form_url"`
	Data            string    `db:"data"`
	FieldsCollected int       `db:"fields_collected"`
	CreatedAt       time.Time `db:"created_at"`
}
