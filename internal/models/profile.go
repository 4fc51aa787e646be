package models

import "time"

// Profile holds the onboarding answers for a parent account. ChildName is
// read at session start to personalize the screening script.
type Profile struct {
	UserID    string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	ChildName string `gorm:"column:child_name;type:text" json:"child_name"`

	OnboardingCompleted bool `gorm:"column:onboarding_completed" json:"onboarding_completed"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
