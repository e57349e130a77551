// Package storage defines persistence contracts for cafe records.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates a requested cafe record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a cafe with the same name already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrEmptyStore indicates an operation needed at least one cafe.
	ErrEmptyStore = errors.New("store is empty")
	// ErrInvalidCafe indicates required cafe fields are missing.
	ErrInvalidCafe = errors.New("invalid cafe")
	// ErrMissingArgument indicates a required operation argument is blank.
	ErrMissingArgument = errors.New("missing argument")
)

// Cafe stores one cafe record.
type Cafe struct {
	ID           int64
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	HasToilet    bool
	HasWifi      bool
	HasSockets   bool
	CanTakeCalls bool
	// CoffeePrice is nil when the price is unknown.
	CoffeePrice *string
}

// Normalize trims the string fields and drops a blank price.
func (c Cafe) Normalize() Cafe {
	c.Name = strings.TrimSpace(c.Name)
	c.MapURL = strings.TrimSpace(c.MapURL)
	c.ImgURL = strings.TrimSpace(c.ImgURL)
	c.Location = strings.TrimSpace(c.Location)
	c.Seats = strings.TrimSpace(c.Seats)
	if c.CoffeePrice != nil {
		price := strings.TrimSpace(*c.CoffeePrice)
		if price == "" {
			c.CoffeePrice = nil
		} else {
			c.CoffeePrice = &price
		}
	}
	return c
}

// MissingFields lists the wire names of required fields that are blank.
func (c Cafe) MissingFields() []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", c.Name},
		{"map_url", c.MapURL},
		{"img_url", c.ImgURL},
		{"location", c.Location},
		{"seats", c.Seats},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// Condition is a parameterized SQL boolean expression used to narrow lists.
// The zero value matches every record.
type Condition struct {
	Clause string
	Args   []any
}

// IsZero reports whether the condition matches every record.
func (c Condition) IsZero() bool {
	return strings.TrimSpace(c.Clause) == ""
}

// CafeStore persists cafe records.
type CafeStore interface {
	ListCafes(ctx context.Context, filter Condition) ([]Cafe, error)
	GetCafe(ctx context.Context, id int64) (Cafe, error)
	ListCafesByLocation(ctx context.Context, location string) ([]Cafe, error)
	RandomCafe(ctx context.Context) (Cafe, error)
	CreateCafe(ctx context.Context, cafe Cafe) (Cafe, error)
	UpdateCafePrice(ctx context.Context, id int64, price string) (Cafe, error)
	DeleteCafe(ctx context.Context, id int64) error
}
