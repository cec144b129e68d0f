package model

import "time"

// User users table
type User struct {
	ID        int64     `gorm:"primaryKey"                         json:"id"`
	FirstName string    `gorm:"type:varchar(255);not null"         json:"first_name"`
	LastName  string    `gorm:"type:varchar(255);not null"         json:"last_name"`
	Email     string    `gorm:"type:varchar(255)"                  json:"email,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (User) TableName() string { return "users" }

// DisplayName first and last name
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
