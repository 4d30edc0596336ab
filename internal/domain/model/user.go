package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string     `json:"id" bson:"_id"`
	Email        string     `json:"email" bson:"email"`
	Name         string     `json:"name" bson:"name"`
	Role         Role       `json:"role" bson:"role"`
	TokenVersion int        `json:"tokenVersion" bson:"tokenVersion"`
	IsActive     bool       `json:"isActive" bson:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}
