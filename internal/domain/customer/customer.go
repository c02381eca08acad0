package customer

import (
	"strings"
	"time"
)

// Fields are the mutable attributes of a customer.
type Fields struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

type Customer struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Addresses   []*Address `json:"addresses,omitempty"`
}

type Address struct {
	AddressID  string    `json:"addressId"`
	CustomerID string    `json:"customerId"`
	Text       string    `json:"address"`
	IsPrimary  bool      `json:"isPrimary"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SearchCriteria narrows SearchCustomers. Empty criteria are ignored and the
// supplied ones combine with AND.
type SearchCriteria struct {
	Name        string
	Email       string
	PhoneNumber string
}

// PrimaryAddressViolation describes a customer whose addresses do not carry
// exactly one primary.
type PrimaryAddressViolation struct {
	CustomerID   string
	AddressCount int
	PrimaryCount int
}

func NewCustomer(f Fields) *Customer {
	now := time.Now()
	return &Customer{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
		Email:       f.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (c *Customer) Fields() Fields {
	return Fields{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
	}
}

// PrimaryAddress returns the loaded primary address, or nil when the
// addresses were not loaded or none is primary.
func (c *Customer) PrimaryAddress() *Address {
	for _, a := range c.Addresses {
		if a.IsPrimary {
			return a
		}
	}
	return nil
}

func (s SearchCriteria) Normalize() SearchCriteria {
	return SearchCriteria{
		Name:        strings.TrimSpace(s.Name),
		Email:       strings.TrimSpace(s.Email),
		PhoneNumber: strings.TrimSpace(s.PhoneNumber),
	}
}

func (s SearchCriteria) IsEmpty() bool {
	n := s.Normalize()
	return n.Name == "" && n.Email == "" && n.PhoneNumber == ""
}
