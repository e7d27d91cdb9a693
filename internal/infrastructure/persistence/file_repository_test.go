package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"netif-recorder/internal/domain/entities"
	domainErrors "netif-recorder/internal/domain/errors"
	"netif-recorder/internal/infrastructure/adapters"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) CreateBackup(ctx context.Context, name string, path string) error {
	args := m.Called(ctx, name, path)
	return args.Error(0)
}

func (m *MockBackupService) Prune(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func sampleRecords() entities.RecordSet {
	return entities.RecordSet{
		{
			Name:          "lo",
			InterfaceType: entities.InterfaceTypeWiFi,
			Status:        entities.StatusActive,
			MacAddress:    entities.StringPtr(""),
			IPv4Address:   entities.StringPtr("127.0.0.1"),
			Gateway:       []entities.Gateway{entities.UnsetGateway()},
			DNS:           []string{entities.Unset},
		},
		{
			Name:          "eth0",
			InterfaceType: entities.InterfaceTypeEthernet,
			Status:        entities.StatusInactive,
			MacAddress:    nil,
			IPv4Address:   nil,
			Gateway: []entities.Gateway{
				{Name: "Default", IP: "192.168.1.1", SubnetMask: "255.255.255.0"},
				{Name: "Backup", IP: "192.168.1.254", SubnetMask: "255.255.255.0"},
			},
			DNS: []string{"8.8.8.8", "1.1.1.1"},
		},
	}
}

func TestFileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, file := range []string{"network_interfaces.json", "network_interfaces.yaml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			codec, err := CodecForPath(path)
			require.NoError(t, err)

			repo := NewFileRepository(path, codec, adapters.NewRealFileSystem(), nil, newTestLogger())

			require.NoError(t, repo.Save(ctx, sampleRecords()))
			loaded, err := repo.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, sampleRecords(), loaded)
		})
	}
}

func TestFileRepository_JSONDocumentShape(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "network_interfaces.json")
	repo := NewFileRepository(path, JSONCodec{}, adapters.NewRealFileSystem(), nil, newTestLogger())

	require.NoError(t, repo.Save(ctx, entities.RecordSet{{
		Name:          "eth0",
		InterfaceType: entities.InterfaceTypeEthernet,
		Status:        entities.StatusActive,
		MacAddress:    entities.StringPtr("36:64:78:2f:62:c0"),
		IPv4Address:   entities.StringPtr(entities.Unset),
		Gateway:       []entities.Gateway{entities.UnsetGateway()},
		DNS:           []string{entities.Unset},
	}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"name": "eth0",
		"interface_type": "Ethernet",
		"status": "Active",
		"mac_address": "36:64:78:2f:62:c0",
		"ipv4_address": "N/A",
		"gateway": [{"name": "N/A", "ip": "N/A", "subnet_mask": "N/A"}],
		"dns": ["N/A"]
	}]`, string(data))
	assert.Contains(t, string(data), "\n  {")
}

func TestFileRepository_LoadEmptyStates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content *string
	}{
		{"파일 없음", nil},
		{"빈 파일", entities.StringPtr("")},
		{"공백만 있는 파일", entities.StringPtr("  \n\t")},
		{"빈 배열", entities.StringPtr("[]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "network_interfaces.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}

			repo := NewFileRepository(path, JSONCodec{}, adapters.NewRealFileSystem(), nil, newTestLogger())
			records, err := repo.Load(ctx)
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestFileRepository_LoadCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network_interfaces.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "eth0",`), 0644))

	repo := NewFileRepository(path, JSONCodec{}, adapters.NewRealFileSystem(), nil, newTestLogger())
	_, err := repo.Load(context.Background())
	assert.True(t, domainErrors.IsPersistenceError(err))
}

func TestFileRepository_SaveCreatesBackupFirst(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "network_interfaces.json")

	backup := new(MockBackupService)
	backup.On("CreateBackup", ctx, "network_interfaces", path).Return(nil).Once()

	repo := NewFileRepository(path, JSONCodec{}, adapters.NewRealFileSystem(), backup, newTestLogger())
	require.NoError(t, repo.Save(ctx, sampleRecords()))

	backup.AssertExpectations(t)
}

func TestFileRepository_BackupFailureDoesNotBlockSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "network_interfaces.json")

	backup := new(MockBackupService)
	backup.On("CreateBackup", ctx, "network_interfaces", path).Return(fmt.Errorf("disk full"))

	repo := NewFileRepository(path, JSONCodec{}, adapters.NewRealFileSystem(), backup, newTestLogger())
	require.NoError(t, repo.Save(ctx, sampleRecords()))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestCodecForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"network_interfaces.json", "json", false},
		{"/var/lib/netif/records.YAML", "yaml", false},
		{"records.yml", "yaml", false},
		{"records", "json", false},
		{"records.toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			codec, err := CodecForPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, codec.Name())
		})
	}
}

func TestMemoryRepository_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(sampleRecords())

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	loaded[0].Name = "changed"
	loaded[1].DNS[0] = "9.9.9.9"

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), again)
}
