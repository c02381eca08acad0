package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"customer-registry/internal/api/handler"
	"customer-registry/internal/api/handler/dto"
	"customer-registry/internal/domain/customer"
	"customer-registry/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCustomerService struct {
	mock.Mock
}

var _ customer.CustomerService = (*MockCustomerService)(nil)

func (_m *MockCustomerService) CreateCustomer(ctx context.Context, fields customer.Fields, addressText string) (*customer.Customer, error) {
	ret := _m.Called(ctx, fields, addressText)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) UpdateCustomer(ctx context.Context, customerID string, fields customer.Fields) error {
	return _m.Called(ctx, customerID, fields).Error(0)
}

func (_m *MockCustomerService) DeleteCustomer(ctx context.Context, customerID string) error {
	return _m.Called(ctx, customerID).Error(0)
}

func (_m *MockCustomerService) GetCustomer(ctx context.Context, customerID string) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerID)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	ret := _m.Called(ctx)
	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) SearchCustomers(ctx context.Context, criteria customer.SearchCriteria) ([]*customer.Customer, error) {
	ret := _m.Called(ctx, criteria)
	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) AddAddress(ctx context.Context, customerID, addressText string) (*customer.Address, error) {
	ret := _m.Called(ctx, customerID, addressText)
	var r0 *customer.Address
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Address)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) ListAddresses(ctx context.Context, customerID string) ([]*customer.Address, error) {
	ret := _m.Called(ctx, customerID)
	var r0 []*customer.Address
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Address)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) GetAddress(ctx context.Context, customerID, addressID string) (*customer.Address, error) {
	ret := _m.Called(ctx, customerID, addressID)
	var r0 *customer.Address
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Address)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) UpdateAddress(ctx context.Context, customerID, addressID, addressText string) error {
	return _m.Called(ctx, customerID, addressID, addressText).Error(0)
}

func (_m *MockCustomerService) SetPrimaryAddress(ctx context.Context, customerID, addressID string) error {
	return _m.Called(ctx, customerID, addressID).Error(0)
}

func (_m *MockCustomerService) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	return _m.Called(ctx, customerID, addressID).Error(0)
}

const (
	customerID = "0b7d9a52-1c7e-4a3e-9d55-6f3f2b8f2c10"
	addressID  = "5a1f0e0c-2f7b-4f0d-8f2b-9d6c1b0d7e21"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRouter(svc customer.CustomerService) http.Handler {
	h := handler.NewCustomerHandler(svc, testLogger)
	r := chi.NewRouter()
	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Get("/search", h.SearchCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/", h.UpdateCustomer)
			r.Delete("/", h.DeleteCustomer)
			r.Get("/addresses", h.ListAddresses)
			r.Post("/addresses", h.AddAddress)
			r.Get("/addresses/{addressID}", h.GetAddress)
			r.Put("/addresses/{addressID}", h.UpdateAddress)
			r.Delete("/addresses/{addressID}", h.DeleteAddress)
			r.Put("/addresses/{addressID}/primary", h.SetPrimaryAddress)
		})
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func TestCreateCustomerHandler(t *testing.T) {
	fields := customer.Fields{FirstName: "Jane", LastName: "Doe", PhoneNumber: "5551234567", Email: "jane@x.com"}
	body := dto.CreateCustomerRequest{FirstName: "Jane", LastName: "Doe", PhoneNumber: "5551234567", Email: "jane@x.com", Address: "1 Main St"}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("CreateCustomer", mock.Anything, fields, "1 Main St").Return(&customer.Customer{
			ID: customerID, FirstName: "Jane", LastName: "Doe", PhoneNumber: "5551234567", Email: "jane@x.com",
			Addresses: []*customer.Address{{AddressID: addressID, CustomerID: customerID, Text: "1 Main St", IsPrimary: true}},
		}, nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/customers", body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp dto.CustomerResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, customerID, resp.CustomerID)
		require.Len(t, resp.Addresses, 1)
		assert.True(t, resp.Addresses[0].IsPrimary)
		svc.AssertExpectations(t)
	})

	t.Run("Validation failure is a 400 with field and reason", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("CreateCustomer", mock.Anything, fields, "1 Main St").
			Return(nil, apperrors.NewValidationError("phoneNumber", apperrors.ReasonBadPhone, "must be exactly 10 digits")).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/customers", body)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		detail := decodeError(t, rr)
		assert.Equal(t, "phoneNumber", detail.Field)
		assert.Equal(t, string(apperrors.ReasonBadPhone), detail.Code)
	})

	t.Run("Unknown JSON field is rejected before the service", func(t *testing.T) {
		svc := new(MockCustomerService)

		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/customers", `{"name":"Jane"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Persistence failure is opaque", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("CreateCustomer", mock.Anything, fields, "1 Main St").
			Return(nil, errors.Join(apperrors.ErrDatabase, errors.New(`pq: relation "customers" does not exist`))).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/customers", body)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "relation")
	})
}

func TestGetCustomerHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("GetCustomer", mock.Anything, customerID).Return(&customer.Customer{ID: customerID, FirstName: "Jane"}, nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/customers/"+customerID, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"firstName":"Jane"`)
	})

	t.Run("Not found", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("GetCustomer", mock.Anything, customerID).Return(nil, customer.ErrCustomerNotFound).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/customers/"+customerID, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "CUSTOMER_NOT_FOUND", decodeError(t, rr).Code)
	})

	t.Run("Malformed id", func(t *testing.T) {
		svc := new(MockCustomerService)

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/customers/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything)
	})
}

func TestListAndSearchCustomersHandler(t *testing.T) {
	t.Run("List returns an empty array", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("ListCustomers", mock.Anything).Return([]*customer.Customer{}, nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/customers", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("Search passes query parameters", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("SearchCustomers", mock.Anything, customer.SearchCriteria{Name: "doe", PhoneNumber: "555"}).
			Return([]*customer.Customer{{ID: customerID}}, nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/customers/search?name=doe&phoneNumber=555", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})
}

func TestUpdateAndDeleteCustomerHandler(t *testing.T) {
	fields := customer.Fields{FirstName: "Jane", LastName: "Roe", PhoneNumber: "5551234567", Email: "jane@x.com"}
	body := dto.UpdateCustomerRequest{FirstName: "Jane", LastName: "Roe", PhoneNumber: "5551234567", Email: "jane@x.com"}

	t.Run("Update success", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("UpdateCustomer", mock.Anything, customerID, fields).Return(nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPut, "/customers/"+customerID, body)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("Update missing customer", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("UpdateCustomer", mock.Anything, customerID, fields).Return(customer.ErrCustomerNotFound).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPut, "/customers/"+customerID, body)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Delete success", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("DeleteCustomer", mock.Anything, customerID).Return(nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodDelete, "/customers/"+customerID, nil)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestAddressHandlers(t *testing.T) {
	base := "/customers/" + customerID + "/addresses"

	t.Run("Add address", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("AddAddress", mock.Anything, customerID, "2 Side Ave").
			Return(&customer.Address{AddressID: addressID, CustomerID: customerID, Text: "2 Side Ave"}, nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPost, base, dto.AddressRequest{Address: "2 Side Ave"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp dto.AddressResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.False(t, resp.IsPrimary)
		assert.Equal(t, addressID, resp.AddressID)
	})

	t.Run("List addresses", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("ListAddresses", mock.Anything, customerID).
			Return([]*customer.Address{{AddressID: addressID, IsPrimary: true}}, nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, base, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"isPrimary":true`)
	})

	t.Run("Get address not found", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("GetAddress", mock.Anything, customerID, addressID).Return(nil, customer.ErrAddressNotFound).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodGet, base+"/"+addressID, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "ADDRESS_NOT_FOUND", decodeError(t, rr).Code)
	})

	t.Run("Update address", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("UpdateAddress", mock.Anything, customerID, addressID, "3 New Rd").Return(nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPut, base+"/"+addressID, dto.AddressRequest{Address: "3 New Rd"})

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("Set primary", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("SetPrimaryAddress", mock.Anything, customerID, addressID).Return(nil).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPut, base+"/"+addressID+"/primary", nil)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Set primary on unknown pair", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("SetPrimaryAddress", mock.Anything, customerID, addressID).Return(customer.ErrAddressNotFound).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodPut, base+"/"+addressID+"/primary", nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Delete primary is a conflict", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("DeleteAddress", mock.Anything, customerID, addressID).Return(customer.ErrPrimaryAddressDelete).Once()

		rr := doRequest(t, newTestRouter(svc), http.MethodDelete, base+"/"+addressID, nil)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "PRIMARY_ADDRESS", decodeError(t, rr).Code)
	})

	t.Run("Malformed address id", func(t *testing.T) {
		svc := new(MockCustomerService)

		rr := doRequest(t, newTestRouter(svc), http.MethodDelete, base+"/42", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "DeleteAddress", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNewCustomerHandlerPanics(t *testing.T) {
	assert.Panics(t, func() { handler.NewCustomerHandler(nil, testLogger) })
	assert.Panics(t, func() { handler.NewCustomerHandler(new(MockCustomerService), nil) })
}
