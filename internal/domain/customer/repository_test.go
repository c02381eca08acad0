package customer

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockCustomerRepository struct {
	mock.Mock
}

var _ Repository = (*MockCustomerRepository)(nil)

func (_m *MockCustomerRepository) Create(ctx context.Context, customer *Customer, addressText string) (*Address, error) {
	ret := _m.Called(ctx, customer, addressText)

	var r0 *Address
	if rf, ok := ret.Get(0).(func(context.Context, *Customer, string) *Address); ok {
		r0 = rf(ctx, customer, addressText)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Address)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) Update(ctx context.Context, customerID string, fields Fields) error {
	ret := _m.Called(ctx, customerID, fields)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) Delete(ctx context.Context, customerID string) error {
	ret := _m.Called(ctx, customerID)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) FindByID(ctx context.Context, customerID string) (*Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindAll(ctx context.Context) ([]*Customer, error) {
	ret := _m.Called(ctx)

	var r0 []*Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) Search(ctx context.Context, criteria SearchCriteria) ([]*Customer, error) {
	ret := _m.Called(ctx, criteria)

	var r0 []*Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) AddAddress(ctx context.Context, customerID, addressText string) (*Address, error) {
	ret := _m.Called(ctx, customerID, addressText)

	var r0 *Address
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Address)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) UpdateAddress(ctx context.Context, customerID, addressID, addressText string) error {
	ret := _m.Called(ctx, customerID, addressID, addressText)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) SetPrimaryAddress(ctx context.Context, customerID, addressID string) error {
	ret := _m.Called(ctx, customerID, addressID)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	ret := _m.Called(ctx, customerID, addressID)
	return ret.Error(0)
}

func (_m *MockCustomerRepository) FindAddresses(ctx context.Context, customerID string) ([]*Address, error) {
	ret := _m.Called(ctx, customerID)

	var r0 []*Address
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Address)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindAddress(ctx context.Context, customerID, addressID string) (*Address, error) {
	ret := _m.Called(ctx, customerID, addressID)

	var r0 *Address
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Address)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindPrimaryAddressViolations(ctx context.Context) ([]PrimaryAddressViolation, error) {
	ret := _m.Called(ctx)

	var r0 []PrimaryAddressViolation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]PrimaryAddressViolation)
	}

	return r0, ret.Error(1)
}
