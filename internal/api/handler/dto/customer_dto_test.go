package dto

import (
	"encoding/json"
	"testing"
	"time"

	"customer-registry/internal/domain/customer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomerResponse(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cust := &customer.Customer{
		ID:          "c1",
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "5551234567",
		Email:       "jane@x.com",
		CreatedAt:   now,
		UpdatedAt:   now,
		Addresses: []*customer.Address{
			{AddressID: "a1", CustomerID: "c1", Text: "1 Main St", IsPrimary: true},
		},
	}

	resp := NewCustomerResponse(cust)

	assert.Equal(t, "c1", resp.CustomerID)
	assert.Equal(t, "jane@x.com", resp.Email)
	require.Len(t, resp.Addresses, 1)
	assert.Equal(t, "1 Main St", resp.Addresses[0].Address)
	assert.True(t, resp.Addresses[0].IsPrimary)
}

func TestNewCustomerResponseOmitsUnloadedAddresses(t *testing.T) {
	body, err := json.Marshal(NewCustomerResponse(&customer.Customer{ID: "c1"}))
	require.NoError(t, err)

	assert.NotContains(t, string(body), "addresses")
	assert.Equal(t, CustomerResponse{}, NewCustomerResponse(nil))
}

func TestListResponsesAreNeverNull(t *testing.T) {
	customers, err := json.Marshal(NewCustomerListResponse(nil))
	require.NoError(t, err)
	addresses, err := json.Marshal(NewAddressListResponse(nil))
	require.NoError(t, err)

	assert.JSONEq(t, `[]`, string(customers))
	assert.JSONEq(t, `[]`, string(addresses))
}

func TestRequestFields(t *testing.T) {
	create := CreateCustomerRequest{FirstName: "Jane", LastName: "Doe", PhoneNumber: "5551234567", Email: "jane@x.com", Address: "1 Main St"}
	update := UpdateCustomerRequest{FirstName: "Jane", LastName: "Doe", PhoneNumber: "5551234567", Email: "jane@x.com"}

	assert.Equal(t, create.Fields(), update.Fields())
}
