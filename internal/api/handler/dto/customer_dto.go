package dto

import (
	"time"

	"customer-registry/internal/domain/customer"
)

type CreateCustomerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

func (r *CreateCustomerRequest) Fields() customer.Fields {
	return customer.Fields{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
	}
}

type UpdateCustomerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

func (r *UpdateCustomerRequest) Fields() customer.Fields {
	return customer.Fields{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
	}
}

type AddressRequest struct {
	Address string `json:"address"`
}

type AddressResponse struct {
	AddressID  string    `json:"addressId"`
	CustomerID string    `json:"customerId"`
	Address    string    `json:"address"`
	IsPrimary  bool      `json:"isPrimary"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CustomerResponse struct {
	CustomerID  string            `json:"customerId"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	PhoneNumber string            `json:"phoneNumber"`
	Email       string            `json:"email"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Addresses   []AddressResponse `json:"addresses,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func NewAddressResponse(addr *customer.Address) AddressResponse {
	if addr == nil {
		return AddressResponse{}
	}
	return AddressResponse{
		AddressID:  addr.AddressID,
		CustomerID: addr.CustomerID,
		Address:    addr.Text,
		IsPrimary:  addr.IsPrimary,
		CreatedAt:  addr.CreatedAt,
		UpdatedAt:  addr.UpdatedAt,
	}
}

func NewAddressListResponse(addresses []*customer.Address) []AddressResponse {
	resp := make([]AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		resp = append(resp, NewAddressResponse(a))
	}
	return resp
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	resp := CustomerResponse{
		CustomerID:  cust.ID,
		FirstName:   cust.FirstName,
		LastName:    cust.LastName,
		PhoneNumber: cust.PhoneNumber,
		Email:       cust.Email,
		CreatedAt:   cust.CreatedAt,
		UpdatedAt:   cust.UpdatedAt,
	}
	if len(cust.Addresses) > 0 {
		resp.Addresses = NewAddressListResponse(cust.Addresses)
	}
	return resp
}

func NewCustomerListResponse(customers []*customer.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, NewCustomerResponse(c))
	}
	return resp
}
