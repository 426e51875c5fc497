package entity

import "time"

type AutofillEntry struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	FieldName  string    `db:"field_name" json:"field_name"`
	FieldType  string    `db:"field_type" json:"field_type"`
	Value      string    `db:"value" json:"value"`
	Label      string    `db:"label" json:"label"`
	Confidence float64   `db:"confidence" json:"confidence"`
	UsageCount int       `db:"usage_count" json:"usage_count"`
	LastUsedAt time.Time `db:"last_used_at" json:"last_used_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
