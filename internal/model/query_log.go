package model

import "time"

// QueryLog is one audit row. It is appended and never updated.
type QueryLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	Role         string    `gorm:"size:64;not null;index" json:"role"`
	Confidence   float64   `gorm:"not null" json:"confidence"`
	ResponseTime float64   `gorm:"not null" json:"response_time"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}
