package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is created lazily on the first authenticated request and keyed on the
// identity issued by the external auth provider
type User struct {
	ID          string    `json:"id" gorm:"type:uuid;primarykey"`
	IdentityKey string    `json:"identity_key" gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
