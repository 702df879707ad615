package service

import (
	"errors"
	"reflect"
	"strings"

	"listing-service/internal/model"
	"listing-service/pkg/geocode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ImageInput is one image entry on the listing form. Entries carrying an ID
// refer to images already stored on the listing; entries without one are new.
type ImageInput struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url" validate:"required,url"`
}

// ListingForm is the validated input shared by create and update
type ListingForm struct {
	Title        string       `json:"title" validate:"required"`
	ForRent      bool         `json:"for_rent"`
	Price        float64      `json:"price" validate:"gte=0"`
	BrokerFee    float64      `json:"broker_fee" validate:"gte=0,lte=100"`
	MLSNumber    string       `json:"mls_number,omitempty"`
	Address      string       `json:"address" validate:"min=5"`
	Bedrooms     int          `json:"bedrooms" validate:"gte=0"`
	Bathrooms    float64      `json:"bathrooms" validate:"gte=0"`
	SquareFeet   int          `json:"square_feet" validate:"gte=0"`
	PropertyType string       `json:"property_type" validate:"required,oneof=HOUSE APARTMENT CONDO TOWNHOUSE LAND COMMERCIAL OTHER"`
	Description  string       `json:"description" validate:"required"`
	Images       []ImageInput `json:"images" validate:"min=1,dive"`
}

var formValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names as they appear on the wire
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the form against the listing schema and returns a
// field-scoped error for the first violation
func (f *ListingForm) Validate() error {
	if err := formValidator.Struct(f); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return &ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "price":
		return "Price must be positive"
	case "broker_fee":
		return "Broker fee must be between 0-100"
	case "address":
		return "Valid address is required"
	case "description":
		return "Description is required"
	case "images":
		return "At least one image is required"
	case "url":
		return "Image URL must be a valid URL"
	default:
		return "Invalid value"
	}
}

// toModel builds the persistent listing from the validated form and the
// geocoded address
func (f *ListingForm) toModel(userID string, geo *geocode.Result) model.Listing {
	listing := model.Listing{
		Title:            f.Title,
		Price:            decimal.NewFromFloat(f.Price),
		BrokerFee:        decimal.NewFromFloat(f.BrokerFee),
		MLSNumber:        f.mlsNumber(),
		Address:          f.Address,
		FormattedAddress: geo.FormattedAddress,
		City:             geo.City,
		State:            geo.State,
		ZipCode:          geo.ZipCode,
		Latitude:         geo.Latitude,
		Longitude:        geo.Longitude,
		Bedrooms:         f.Bedrooms,
		Bathrooms:        f.Bathrooms,
		SquareFeet:       f.SquareFeet,
		PropertyType:     model.PropertyType(f.PropertyType),
		Description:      f.Description,
		Status:           model.ListingStatusActive,
		ForRent:          f.ForRent,
		UserID:           userID,
	}
	for _, img := range f.Images {
		listing.Images = append(listing.Images, model.Image{URL: img.URL})
	}
	return listing
}

func (f *ListingForm) mlsNumber() *string {
	if f.MLSNumber == "" {
		return nil
	}
	mls := f.MLSNumber
	return &mls
}
