// Package mocks provides test doubles for the store package.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/salestax/internal/model"
	store "github.com/sells-group/salestax/internal/store"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// ReplaceSchedule provides a mock function with given fields: ctx, records
func (_m *MockStore) ReplaceSchedule(ctx context.Context, records []model.ScheduleRecord) error {
	ret := _m.Called(ctx, records)
	if len(ret) == 0 {
		panic("no return value specified for ReplaceSchedule")
	}
	return ret.Error(0)
}

// LoadSchedule provides a mock function with given fields: ctx
func (_m *MockStore) LoadSchedule(ctx context.Context) ([]model.ScheduleRecord, error) {
	ret := _m.Called(ctx)
	if len(ret) == 0 {
		panic("no return value specified for LoadSchedule")
	}
	var r0 []model.ScheduleRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ScheduleRecord)
	}
	return r0, ret.Error(1)
}

// CreateOrder provides a mock function with given fields: ctx, o
func (_m *MockStore) CreateOrder(ctx context.Context, o *model.Order) error {
	ret := _m.Called(ctx, o)
	if len(ret) == 0 {
		panic("no return value specified for CreateOrder")
	}
	return ret.Error(0)
}

// CreateOrders provides a mock function with given fields: ctx, orders
func (_m *MockStore) CreateOrders(ctx context.Context, orders []model.Order) (int, error) {
	ret := _m.Called(ctx, orders)
	if len(ret) == 0 {
		panic("no return value specified for CreateOrders")
	}
	if rf, ok := ret.Get(0).(func(context.Context, []model.Order) (int, error)); ok {
		return rf(ctx, orders)
	}
	return ret.Int(0), ret.Error(1)
}

// GetOrder provides a mock function with given fields: ctx, id
func (_m *MockStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	ret := _m.Called(ctx, id)
	if len(ret) == 0 {
		panic("no return value specified for GetOrder")
	}
	var r0 *model.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Order)
	}
	return r0, ret.Error(1)
}

// ListOrders provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListOrders(ctx context.Context, filter store.OrderFilter) (*store.OrderPage, error) {
	ret := _m.Called(ctx, filter)
	if len(ret) == 0 {
		panic("no return value specified for ListOrders")
	}
	var r0 *store.OrderPage
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*store.OrderPage)
	}
	return r0, ret.Error(1)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)
	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}
	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()
	if len(ret) == 0 {
		panic("no return value specified for Close")
	}
	return ret.Error(0)
}

// NewMockStore creates a new instance of MockStore. It also registers a testing
// interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ store.Store = (*MockStore)(nil)
