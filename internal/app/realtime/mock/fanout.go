package mock

import (
	context "context"
	reflect "reflect"

	realtime "github.com/KhadijaXD/lostly/internal/app/realtime"
	gomock "go.uber.org/mock/gomock"
)

// MockFanout is a mock of Fanout interface.
type MockFanout struct {
	ctrl     *gomock.Controller
	recorder *MockFanoutMockRecorder
	isgomock struct{}
}

// MockFanoutMockRecorder is the mock recorder for MockFanout.
type MockFanoutMockRecorder struct {
	mock *MockFanout
}

// NewMockFanout creates a new mock instance.
func NewMockFanout(ctrl *gomock.Controller) *MockFanout {
	mock := &MockFanout{ctrl: ctrl}
	mock.recorder = &MockFanoutMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockFanout) EXPECT() *MockFanoutMockRecorder {
	return m.recorder
}

// MarkOffline mocks base method.
func (m *MockFanout) MarkOffline(ctx context.Context, roomID, userID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkOffline", ctx, roomID, userID)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkOffline indicates an expected call of MarkOffline.
func (mr *MockFanoutMockRecorder) MarkOffline(ctx, roomID, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkOffline", reflect.TypeOf((*MockFanout)(nil).MarkOffline), ctx, roomID, userID)
}

// MarkOnline mocks base method.
func (m *MockFanout) MarkOnline(ctx context.Context, roomID, userID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkOnline", ctx, roomID, userID)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkOnline indicates an expected call of MarkOnline.
func (mr *MockFanoutMockRecorder) MarkOnline(ctx, roomID, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkOnline", reflect.TypeOf((*MockFanout)(nil).MarkOnline), ctx, roomID, userID)
}

// Online mocks base method.
func (m *MockFanout) Online(ctx context.Context, roomID string) ([]string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Online", ctx, roomID)
	ret0, _ := ret[0].([]string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Online indicates an expected call of Online.
func (mr *MockFanoutMockRecorder) Online(ctx, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Online", reflect.TypeOf((*MockFanout)(nil).Online), ctx, roomID)
}

// Publish mocks base method.
func (m *MockFanout) Publish(ctx context.Context, b realtime.Broadcast) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Publish", ctx, b)
	ret0, _ := ret[0].(error)
	return ret0
}

// Publish indicates an expected call of Publish.
func (mr *MockFanoutMockRecorder) Publish(ctx, b any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Publish", reflect.TypeOf((*MockFanout)(nil).Publish), ctx, b)
}
