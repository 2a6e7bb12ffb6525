package cars

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("car not found")

type Car struct {
	ID           int64
	CustomerID   int64
	LicensePlate string
	Make         string
	Model        string
	Year         *int
	VIN          *string
	Color        *string
	Mileage      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName renders "year make model", falling back to the plate when
// nothing else is known.
func (c *Car) DisplayName() string {
	var parts []string
	if c.Year != nil {
		parts = append(parts, strconv.Itoa(*c.Year))
	}
	if c.Make != "" {
		parts = append(parts, c.Make)
	}
	if c.Model != "" {
		parts = append(parts, c.Model)
	}
	if len(parts) == 0 {
		return "Vehicle " + c.LicensePlate
	}
	return strings.Join(parts, " ")
}

// NormalizePlate uppercases a license plate and collapses its spaces.
func NormalizePlate(plate string) string {
	return strings.Join(strings.Fields(strings.ToUpper(plate)), " ")
}

// ValidateYear rejects years before 1900 or more than one year in the
// future.
func ValidateYear(year int) error {
	maxYear := time.Now().Year() + 1
	if year > maxYear {
		return fmt.Errorf("car year cannot be in the future (max: %d)", maxYear)
	}
	if year < 1900 {
		return fmt.Errorf("car year must be 1900 or later")
	}
	return nil
}

// Validate checks plate presence and year range.
func (c *Car) Validate() error {
	if strings.TrimSpace(c.LicensePlate) == "" {
		return fmt.Errorf("license plate is required")
	}
	if c.Year != nil {
		if err := ValidateYear(*c.Year); err != nil {
			return err
		}
	}
	if c.Mileage < 0 {
		return fmt.Errorf("mileage cannot be negative")
	}
	return nil
}

// Summary is the read-only vehicle projection consumed by the chat
// context builder.
type Summary struct {
	CarID           int64
	DisplayName     string
	LicensePlate    string
	Mileage         int
	TotalComplaints int
}

// Repo — persistence for cars.
type Repo interface {
	Create(ctx context.Context, c *Car) error
	Get(ctx context.Context, id int64) (*Car, error)
	GetByPlate(ctx context.Context, plate string) (*Car, error)
	List(ctx context.Context, customerID int64) ([]Car, error)
	Update(ctx context.Context, c *Car) error
	Delete(ctx context.Context, id int64) error
	// Summary includes the car's lifetime complaint count.
	Summary(ctx context.Context, id int64) (*Summary, error)
}
