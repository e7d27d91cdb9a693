package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"netif-recorder/internal/domain/entities"
	domainErrors "netif-recorder/internal/domain/errors"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInterfaceRow_EncodeDecode(t *testing.T) {
	for _, iface := range sampleRecords() {
		t.Run(iface.Name, func(t *testing.T) {
			row, err := encodeRow(iface)
			require.NoError(t, err)

			decoded, err := row.decode()
			require.NoError(t, err)
			assert.Equal(t, iface, decoded)
		})
	}
}

func TestInterfaceRow_NullColumns(t *testing.T) {
	row, err := encodeRow(entities.NetworkInterface{Name: "eth0"})
	require.NoError(t, err)

	assert.False(t, row.macAddress.Valid)
	assert.False(t, row.ipv4Address.Valid)
	assert.Equal(t, "[]", row.gateway)
	assert.Equal(t, "[]", row.dns)
}

func TestInterfaceRow_DecodeCorruptJSON(t *testing.T) {
	row := interfaceRow{
		name:    "eth0",
		gateway: `[{"name":`,
		dns:     `[]`,
	}

	_, err := row.decode()
	assert.True(t, domainErrors.IsPersistenceError(err))
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, isDuplicateEntry(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'eth0'"}))
	assert.True(t, isDuplicateEntry(fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1146}))
	assert.False(t, isDuplicateEntry(sql.ErrConnDone))
}

type MockInterfaceTable struct {
	mock.Mock
}

func (m *MockInterfaceTable) Insert(ctx context.Context, iface entities.NetworkInterface) error {
	args := m.Called(ctx, iface)
	return args.Error(0)
}

func (m *MockInterfaceTable) FetchAll(ctx context.Context) (entities.RecordSet, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.RecordSet), args.Error(1)
}

func (m *MockInterfaceTable) UpdateByOldName(ctx context.Context, oldName string, iface entities.NetworkInterface) error {
	args := m.Called(ctx, oldName, iface)
	return args.Error(0)
}

func (m *MockInterfaceTable) DeleteByName(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func TestSyncFromDocument(t *testing.T) {
	ctx := context.Background()
	records := sampleRecords()

	t.Run("테이블에 없는 이름만 추가", func(t *testing.T) {
		document := NewMemoryRepository(records)
		table := new(MockInterfaceTable)
		table.On("FetchAll", ctx).Return(entities.RecordSet{records[0]}, nil)
		table.On("Insert", ctx, records[1]).Return(nil).Once()

		inserted, err := SyncFromDocument(ctx, document, table, newTestLogger())
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
		table.AssertExpectations(t)
		table.AssertNotCalled(t, "Insert", ctx, records[0])
	})

	t.Run("추가 실패 시 중단", func(t *testing.T) {
		document := NewMemoryRepository(records)
		table := new(MockInterfaceTable)
		table.On("FetchAll", ctx).Return(entities.RecordSet{}, nil)
		table.On("Insert", ctx, records[0]).Return(domainErrors.NewPersistenceError("insert failed", nil))

		inserted, err := SyncFromDocument(ctx, document, table, newTestLogger())
		assert.True(t, domainErrors.IsPersistenceError(err))
		assert.Equal(t, 0, inserted)
		table.AssertNotCalled(t, "Insert", ctx, records[1])
	})
}
