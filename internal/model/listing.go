package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PropertyType enumerates the kinds of property a listing can advertise
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "HOUSE"
	PropertyTypeApartment  PropertyType = "APARTMENT"
	PropertyTypeCondo      PropertyType = "CONDO"
	PropertyTypeTownhouse  PropertyType = "TOWNHOUSE"
	PropertyTypeLand       PropertyType = "LAND"
	PropertyTypeCommercial PropertyType = "COMMERCIAL"
	PropertyTypeOther      PropertyType = "OTHER"
)

// PropertyTypes lists every valid property type
var PropertyTypes = []PropertyType{
	PropertyTypeHouse,
	PropertyTypeApartment,
	PropertyTypeCondo,
	PropertyTypeTownhouse,
	PropertyTypeLand,
	PropertyTypeCommercial,
	PropertyTypeOther,
}

// ListingStatus enumerates the lifecycle states of a listing
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusPending  ListingStatus = "PENDING"
	ListingStatusSold     ListingStatus = "SOLD"
	ListingStatusInactive ListingStatus = "INACTIVE"
)

// Listing represents a property listing owned by a single user
type Listing struct {
	ID               string          `json:"id" gorm:"type:uuid;primarykey"`
	Title            string          `json:"title" gorm:"type:varchar(255);not null"`
	Price            decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	BrokerFee        decimal.Decimal `json:"broker_fee" gorm:"type:decimal(5,2);not null"`
	MLSNumber        *string         `json:"mls_number,omitempty" gorm:"type:varchar(50);uniqueIndex"`
	Address          string          `json:"address" gorm:"type:varchar(255);not null"`
	FormattedAddress string          `json:"formatted_address" gorm:"type:varchar(255)"`
	City             string          `json:"city" gorm:"type:varchar(100);index"`
	State            string          `json:"state" gorm:"type:varchar(50);index"`
	ZipCode          string          `json:"zip_code" gorm:"type:varchar(20)"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	Bedrooms         int             `json:"bedrooms" gorm:"not null"`
	Bathrooms        float64         `json:"bathrooms" gorm:"not null"`
	SquareFeet       int             `json:"square_feet" gorm:"not null"`
	PropertyType     PropertyType    `json:"property_type" gorm:"type:varchar(20);not null"`
	Description      string          `json:"description" gorm:"type:text"`
	Status           ListingStatus   `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	ForRent          bool            `json:"for_rent" gorm:"not null"`
	UserID           string          `json:"user_id" gorm:"type:uuid;index;not null"`
	User             *User           `json:"-" gorm:"foreignKey:UserID"`
	Images           []Image         `json:"images" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Image represents one photo attached to a listing; its lifecycle is tied to
// the owning listing
type Image struct {
	ID        string `json:"id" gorm:"type:uuid;primarykey"`
	URL       string `json:"url" gorm:"type:varchar(2048);not null"`
	ListingID string `json:"listing_id" gorm:"type:uuid;index;not null"`
}

// BeforeCreate assigns a UUID primary key
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
