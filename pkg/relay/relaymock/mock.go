package relaymock

import (
	"context"

	"github.com/raterudder/solarrelay/pkg/publish"
	"github.com/raterudder/solarrelay/pkg/relay"
	"github.com/raterudder/solarrelay/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockPortal struct {
	mock.Mock
}

var _ relay.Portal = (*MockPortal)(nil)

func (m *MockPortal) Login(ctx context.Context, username, password string) error {
	args := m.Called(ctx, username, password)
	return args.Error(0)
}

func (m *MockPortal) ResolveStation(ctx context.Context, configured types.StationID) (types.StationID, error) {
	args := m.Called(ctx, configured)
	return args.Get(0).(types.StationID), args.Error(1)
}

func (m *MockPortal) Fetch(ctx context.Context, station types.StationID) (types.TelemetrySample, error) {
	args := m.Called(ctx, station)
	return args.Get(0).(types.TelemetrySample), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

var _ publish.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, sample types.TelemetrySample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}
