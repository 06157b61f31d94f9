package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/team-ddrawry/ddrawry-server/internal/interfaces"
)

// MockDatabaseManager simulates the database manager in tests, typically
// returning a pgxmock pool from GetPool.
type MockDatabaseManager struct {
	mock.Mock
}

func (m *MockDatabaseManager) GetPool() interfaces.PgxPoolIface {
	args := m.Called()
	return args.Get(0).(interfaces.PgxPoolIface)
}
