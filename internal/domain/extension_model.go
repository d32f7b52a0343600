package domain

import "time"

// FixedExtension is one of the pre-seeded dangerous extensions. Only IsBlocked
// changes after seeding.
type FixedExtension struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Name      string `gorm:"size:20;uniqueIndex;not null"`
	IsBlocked bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// CustomExtension is a user registered extension. Being stored means blocked.
type CustomExtension struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Name string `gorm:"size:20;uniqueIndex;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
