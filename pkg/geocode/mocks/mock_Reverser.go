// Package mocks provides test doubles for the geocode package.
package mocks

import (
	"context"

	geocode "github.com/sells-group/salestax/pkg/geocode"
	mock "github.com/stretchr/testify/mock"
)

// MockReverser is a mock type for the Reverser interface.
type MockReverser struct {
	mock.Mock
}

// Reverse provides a mock function with given fields: ctx, lat, lon
func (_m *MockReverser) Reverse(ctx context.Context, lat float64, lon float64) (*geocode.Place, error) {
	ret := _m.Called(ctx, lat, lon)

	if len(ret) == 0 {
		panic("no return value specified for Reverse")
	}

	var r0 *geocode.Place
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64) (*geocode.Place, error)); ok {
		return rf(ctx, lat, lon)
	}
	if rf, ok := ret.Get(0).(func(context.Context, float64, float64) *geocode.Place); ok {
		r0 = rf(ctx, lat, lon)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*geocode.Place)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, float64, float64) error); ok {
		r1 = rf(ctx, lat, lon)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockReverser creates a new instance of MockReverser. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockReverser(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReverser {
	m := &MockReverser{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
