package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"netif-recorder/internal/application/usecases"
	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/infrastructure/persistence"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSnapshotSource struct {
	mock.Mock
}

func (m *MockSnapshotSource) Build(ctx context.Context) (entities.RecordSet, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.RecordSet), args.Error(1)
}

type recordingObserver struct {
	errs []error
}

func (o *recordingObserver) ObserveOperation(err error) {
	o.errs = append(o.errs, err)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func unsetRecord(name string) entities.NetworkInterface {
	return entities.NetworkInterface{
		Name:          name,
		InterfaceType: entities.InterfaceTypeEthernet,
		Status:        entities.StatusActive,
		MacAddress:    entities.StringPtr("36:64:78:2f:62:c0"),
		IPv4Address:   entities.StringPtr(entities.Unset),
		Gateway:       []entities.Gateway{entities.UnsetGateway()},
		DNS:           []string{entities.Unset},
	}
}

type fixture struct {
	handler  *CommandHandler
	repo     *persistence.MemoryRepository
	source   *MockSnapshotSource
	observer *recordingObserver
}

func newFixture(records ...entities.NetworkInterface) *fixture {
	logger := newTestLogger()
	repo := persistence.NewMemoryRepository(entities.RecordSet(records))
	store := usecases.NewReconciliationStore(repo, logger)
	source := new(MockSnapshotSource)
	refresh := usecases.NewRefreshSnapshotUseCase(source, store, logger)
	observer := &recordingObserver{}

	return &fixture{
		handler:  NewCommandHandler(store, refresh, observer, logger),
		repo:     repo,
		source:   source,
		observer: observer,
	}
}

func (f *fixture) call(t *testing.T, command, body string) (int, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, CommandPrefix+command, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func (f *fixture) stored(t *testing.T) entities.RecordSet {
	t.Helper()
	records, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	return records
}

func TestCommandHandler_UpdateIPv4Address(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantIPv4   *string
	}{
		{
			name:       "주소 설정",
			body:       `{"index":0,"ipv4_address":"192.168.0.10"}`,
			wantStatus: http.StatusOK,
			wantIPv4:   entities.StringPtr("192.168.0.10"),
		},
		{
			name:       "null이면 필드 제거",
			body:       `{"index":0,"ipv4_address":null}`,
			wantStatus: http.StatusOK,
			wantIPv4:   nil,
		},
		{
			name:       "잘못된 주소",
			body:       `{"index":0,"ipv4_address":"300.1.1.1"}`,
			wantStatus: http.StatusBadRequest,
			wantIPv4:   entities.StringPtr(entities.Unset),
		},
		{
			name:       "범위를 벗어난 인덱스",
			body:       `{"index":3,"ipv4_address":"192.168.0.10"}`,
			wantStatus: http.StatusBadRequest,
			wantIPv4:   entities.StringPtr(entities.Unset),
		},
		{
			name:       "인덱스 누락",
			body:       `{"ipv4_address":"192.168.0.10"}`,
			wantStatus: http.StatusBadRequest,
			wantIPv4:   entities.StringPtr(entities.Unset),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(unsetRecord("eth0"))

			status, resp := f.call(t, "update_ipv4_address", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus == http.StatusOK, resp.OK)
			if !resp.OK {
				assert.NotEmpty(t, resp.Error)
			}

			records := f.stored(t)
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantIPv4, records[0].IPv4Address)
		})
	}
}

func TestCommandHandler_DeleteIPv4Address(t *testing.T) {
	record := unsetRecord("eth0")
	record.IPv4Address = entities.StringPtr("10.0.0.5")
	f := newFixture(record)

	status, resp := f.call(t, "delete_ipv4_address", `{"index":0}`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	assert.Equal(t, entities.Unset, *f.stored(t)[0].IPv4Address)
}

func TestCommandHandler_AddIfNA(t *testing.T) {
	f := newFixture(unsetRecord("eth0"))

	status, resp := f.call(t, "add_if_na", `{
		"index": 0,
		"gateway": [{"name":"Default","ip":"10.0.0.1","subnet_mask":"255.255.255.0"}],
		"dns": ["1.1.1.1"]
	}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"gateway": true, "dns": true, "ipv4_address": false}, resp.Data)

	record := f.stored(t)[0]
	assert.Equal(t, []entities.Gateway{entities.NewDefaultGateway("10.0.0.1")}, record.Gateway)
	assert.Equal(t, []string{"1.1.1.1"}, record.DNS)
	assert.Equal(t, entities.Unset, *record.IPv4Address)
}

func TestCommandHandler_Gateways(t *testing.T) {
	f := newFixture(unsetRecord("eth0"))

	status, _ := f.call(t, "save_gateways", `{"index":0,"gateways":[
		{"name":"Default","ip":"10.0.0.1","subnet_mask":"255.255.255.0"}
	]}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = f.call(t, "add_gateways", `{"index":0,"new_gateways":[
		{"name":"Backup","ip":"10.0.0.254","subnet_mask":"255.255.255.0"}
	]}`)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, f.stored(t)[0].Gateway, 2)

	status, _ = f.call(t, "delete_gateways", `{"index":0,"gateway_indices":[0]}`)
	require.Equal(t, http.StatusOK, status)

	gateways := f.stored(t)[0].Gateway
	require.Len(t, gateways, 1)
	assert.Equal(t, "Backup", gateways[0].Name)

	status, resp := f.call(t, "delete_gateways", `{"index":0,"gateway_indices":[5]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, resp.OK)
	assert.Len(t, f.stored(t)[0].Gateway, 1)
}

func TestCommandHandler_SaveAndLoad(t *testing.T) {
	f := newFixture()

	status, _ := f.call(t, "save_network_interfaces", `{"interfaces":[
		{"name":"eth0","interface_type":"Ethernet","status":"Active","mac_address":null,
		 "ipv4_address":"N/A","gateway":[],"dns":[]}
	]}`)
	require.Equal(t, http.StatusOK, status)

	status, resp := f.call(t, "load_network_interfaces", "")
	require.Equal(t, http.StatusOK, status)
	loaded, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "eth0", loaded[0].(map[string]interface{})["name"])

	status, _ = f.call(t, "save_network_interfaces", `{"interfaces":[
		{"name":"eth0","interface_type":"Ethernet","status":"Active","gateway":[],"dns":[]},
		{"name":"eth0","interface_type":"Ethernet","status":"Active","gateway":[],"dns":[]}
	]}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = f.call(t, "save_network_interfaces", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCommandHandler_FindInterfaceIndex(t *testing.T) {
	f := newFixture(unsetRecord("eth0"), unsetRecord("eth1"))

	status, resp := f.call(t, "find_interface_index", `{"name":"eth1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"index": float64(1)}, resp.Data)

	status, _ = f.call(t, "find_interface_index", `{"name":"wlan9"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.call(t, "find_interface_index", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCommandHandler_ListAndReconcile(t *testing.T) {
	f := newFixture(unsetRecord("eth0"))

	fresh := entities.RecordSet{unsetRecord("eth0"), unsetRecord("eth1")}
	fresh[0].IPv4Address = entities.StringPtr("10.0.0.2")
	f.source.On("Build", mock.Anything).Return(fresh, nil)

	status, resp := f.call(t, "list_network_interfaces", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data, 2)
	assert.Len(t, f.stored(t), 1)

	status, resp = f.call(t, "reconcile_network_interfaces", "")
	require.Equal(t, http.StatusOK, status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"eth0"}, data["filled"])
	assert.Equal(t, []interface{}{"eth1"}, data["appended"])

	records := f.stored(t)
	require.Len(t, records, 2)
	assert.Equal(t, "10.0.0.2", *records[0].IPv4Address)
}

func TestCommandHandler_Routing(t *testing.T) {
	f := newFixture(unsetRecord("eth0"))

	status, resp := f.call(t, "format_disk", `{}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, resp.Error, "format_disk")

	status, _ = f.call(t, "delete_ipv4_address", `{"index":`)
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest(http.MethodGet, CommandPrefix+"load_network_interfaces", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Contains(t, f.handler.Commands(), "add_if_na")
}

func TestCommandHandler_ObservesOutcomes(t *testing.T) {
	f := newFixture(unsetRecord("eth0"))

	f.call(t, "delete_ipv4_address", `{"index":0}`)
	f.call(t, "delete_ipv4_address", `{"index":9}`)

	require.Len(t, f.observer.errs, 2)
	assert.NoError(t, f.observer.errs[0])
	assert.Error(t, f.observer.errs[1])
}
