package models

import (
	"time"
)

type Model struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
