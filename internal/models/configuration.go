package models

import "time"

// ConfigKeyDefaultPrice is the key holding the per-semester default charge
// used when a course has no price of its own.
const ConfigKeyDefaultPrice = "precio_semestre"

// Configuration represents a persisted key/value configuration entry.
type Configuration struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedBy   *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
