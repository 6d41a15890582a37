package models

import "time"

type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Fields    []string  `gorm:"type:text;serializer:json;not null" json:"fields"`
	CreatedAt time.Time `json:"createdAt"`
}
