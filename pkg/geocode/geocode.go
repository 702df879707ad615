package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StatusOK is the provider status for a successful geocode
const StatusOK = "OK"

// Client calls the Google Maps geocoding API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Result holds the structured address resolved for a free-text address
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	StreetNumber     string
	Route            string
	Neighborhood     string
	City             string
	State            string
	ZipCode          string
	Country          string
}

// Error is a typed geocoding failure carrying the provider status when one
// was returned
type Error struct {
	Status  string
	Message string
}

func (e *Error) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("geocoding failed: %s (%s)", e.Message, e.Status)
	}
	return "geocoding failed: " + e.Message
}

// geocodingResponse mirrors the provider's JSON response
type geocodingResponse struct {
	Results      []geocodingResult `json:"results"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

type geocodingResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	PlaceID string   `json:"place_id"`
	Types   []string `json:"types"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// NewClient creates a geocoding client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Geocode resolves a free-text address to coordinates and structured address
// components. Exactly one outbound call per invocation; no caching, no retry.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	var data geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &Error{Message: "invalid provider response: " + err.Error()}
	}

	if data.Status != StatusOK {
		message := data.ErrorMessage
		if message == "" {
			message = data.Status
		}
		return nil, &Error{Status: data.Status, Message: message}
	}
	if len(data.Results) == 0 {
		return nil, &Error{Status: data.Status, Message: "empty result set"}
	}

	first := data.Results[0]
	components := first.AddressComponents

	result := &Result{
		Latitude:         first.Geometry.Location.Lat,
		Longitude:        first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
		StreetNumber:     component(components, "street_number", false),
		Route:            component(components, "route", false),
		Neighborhood:     component(components, "neighborhood", false),
		City:             component(components, "locality", false),
		State:            component(components, "administrative_area_level_1", true),
		ZipCode:          component(components, "postal_code", false),
		Country:          component(components, "country", false),
	}

	if result.City == "" || result.State == "" {
		return nil, &Error{Message: "invalid address: missing city or state information"}
	}

	return result, nil
}

// component finds the first address component tagged with the given type,
// returning the short name when requested
func component(components []addressComponent, typ string, useShortName bool) string {
	for _, comp := range components {
		for _, t := range comp.Types {
			if t == typ {
				if useShortName {
					return comp.ShortName
				}
				return comp.LongName
			}
		}
	}
	return ""
}
