package customers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var ErrNotFound = errors.New("customer not found")

var phoneRE = regexp.MustCompile(`^\+?1?\d{9,15}$`)

type Customer struct {
	ID        int64
	Name      string
	Email     *string
	Phone     *string
	Address   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the fields that the store cannot enforce.
func (c *Customer) Validate() error {
	name := strings.TrimSpace(c.Name)
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters long")
	}
	if isAllDigits(name) {
		return fmt.Errorf("name cannot be only numbers")
	}
	if c.Phone != nil && *c.Phone != "" && !phoneRE.MatchString(*c.Phone) {
		return fmt.Errorf("phone number must be in the format '+999999999', up to 15 digits")
	}
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Repo — persistence for customers.
type Repo interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id int64) error
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
}
