package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"netif-recorder/internal/application/usecases"
	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/pkg/utils"

	"github.com/sirupsen/logrus"
)

// CommandPrefix is the route the command handler is mounted on
const CommandPrefix = "/api/commands/"

// request bodies are small JSON documents; anything larger is rejected
const maxRequestBody = 1 << 20

// OperationObserver is told the outcome of every dispatched command
type OperationObserver interface {
	ObserveOperation(err error)
}

type commandFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// CommandHandler exposes the store and snapshot operations as
// POST /api/commands/{command}
type CommandHandler struct {
	store    *usecases.ReconciliationStore
	refresh  *usecases.RefreshSnapshotUseCase
	observer OperationObserver
	logger   *logrus.Logger
	commands map[string]commandFunc
}

// NewCommandHandler creates a new CommandHandler. observer may be nil.
func NewCommandHandler(
	store *usecases.ReconciliationStore,
	refresh *usecases.RefreshSnapshotUseCase,
	observer OperationObserver,
	logger *logrus.Logger,
) *CommandHandler {
	h := &CommandHandler{
		store:    store,
		refresh:  refresh,
		observer: observer,
		logger:   logger,
	}

	h.commands = map[string]commandFunc{
		"list_network_interfaces":      h.listNetworkInterfaces,
		"reconcile_network_interfaces": h.reconcileNetworkInterfaces,
		"load_network_interfaces":      h.loadNetworkInterfaces,
		"save_network_interfaces":      h.saveNetworkInterfaces,
		"update_ipv4_address":          h.updateIPv4Address,
		"delete_ipv4_address":          h.deleteIPv4Address,
		"add_if_na":                    h.addIfNA,
		"save_gateways":                h.saveGateways,
		"add_gateways":                 h.addGateways,
		"delete_gateways":              h.deleteGateways,
		"find_interface_index":         h.findInterfaceIndex,
	}

	return h
}

// Commands returns the registered command names in sorted order
func (h *CommandHandler) Commands() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeHTTP dispatches a command request
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, CommandPrefix)
	command, ok := h.commands[name]
	if !ok {
		writeError(w, errors.NewNotFoundError(fmt.Sprintf("unknown command: %s", name)), h.logger)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, errors.NewValidationError("failed to read request body", err), h.logger)
		return
	}

	start := time.Now()
	data, err := command(r.Context(), payload)
	if h.observer != nil {
		h.observer.ObserveOperation(err)
	}

	fields := logrus.Fields{
		"command":  name,
		"duration": time.Since(start),
	}
	if err != nil {
		h.logger.WithFields(fields).WithError(err).Warn("Command failed")
		writeError(w, err, h.logger)
		return
	}

	h.logger.WithFields(fields).Debug("Command completed")
	writeJSON(w, http.StatusOK, Response{OK: true, Data: data}, h.logger)
}

func (h *CommandHandler) listNetworkInterfaces(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	output, err := h.refresh.Execute(ctx, usecases.RefreshSnapshotInput{})
	if err != nil {
		return nil, err
	}
	return output.Snapshot, nil
}

type reconcileResponse struct {
	Snapshot  entities.RecordSet `json:"snapshot"`
	Filled    []string           `json:"filled"`
	Appended  []string           `json:"appended"`
	Unchanged []string           `json:"unchanged"`
}

func (h *CommandHandler) reconcileNetworkInterfaces(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	output, err := h.refresh.Execute(ctx, usecases.RefreshSnapshotInput{Reconcile: true})
	if err != nil {
		return nil, err
	}
	return reconcileResponse{
		Snapshot:  output.Snapshot,
		Filled:    output.Reconcile.Filled,
		Appended:  output.Reconcile.Appended,
		Unchanged: output.Reconcile.Unchanged,
	}, nil
}

func (h *CommandHandler) loadNetworkInterfaces(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return h.store.Load(ctx)
}

type saveRequest struct {
	Interfaces *entities.RecordSet `json:"interfaces"`
}

func (h *CommandHandler) saveNetworkInterfaces(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req saveRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.Interfaces == nil {
		return nil, errors.NewValidationError("missing field: interfaces", nil)
	}
	return nil, h.store.Save(ctx, *req.Interfaces)
}

type indexRequest struct {
	Index *int `json:"index"`
}

func (r indexRequest) index() (int, error) {
	if r.Index == nil {
		return 0, errors.NewValidationError("missing field: index", nil)
	}
	return *r.Index, nil
}

type updateIPv4Request struct {
	indexRequest
	IPv4Address *string `json:"ipv4_address"`
}

func (h *CommandHandler) updateIPv4Address(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req updateIPv4Request
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	index, err := req.index()
	if err != nil {
		return nil, err
	}
	return nil, h.store.UpdateIPv4(ctx, index, req.IPv4Address)
}

func (h *CommandHandler) deleteIPv4Address(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req indexRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	index, err := req.index()
	if err != nil {
		return nil, err
	}
	return nil, h.store.ClearIPv4(ctx, index)
}

type addIfNARequest struct {
	indexRequest
	Gateway     *[]entities.Gateway `json:"gateway"`
	DNS         *[]string           `json:"dns"`
	IPv4Address *string             `json:"ipv4_address"`
}

type fillResponse struct {
	Gateway bool `json:"gateway"`
	DNS     bool `json:"dns"`
	IPv4    bool `json:"ipv4_address"`
}

func (h *CommandHandler) addIfNA(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req addIfNARequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	index, err := req.index()
	if err != nil {
		return nil, err
	}

	fill := usecases.FillRequest{IPv4: req.IPv4Address}
	if req.Gateway != nil {
		fill.Gateway = append([]entities.Gateway{}, *req.Gateway...)
	}
	if req.DNS != nil {
		fill.DNS = append([]string{}, *req.DNS...)
	}

	result, err := h.store.FillIfUnset(ctx, index, fill)
	if err != nil {
		return nil, err
	}
	return fillResponse{Gateway: result.Gateway, DNS: result.DNS, IPv4: result.IPv4}, nil
}

type saveGatewaysRequest struct {
	indexRequest
	Gateways []entities.Gateway `json:"gateways"`
}

func (h *CommandHandler) saveGateways(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req saveGatewaysRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	index, err := req.index()
	if err != nil {
		return nil, err
	}
	return nil, h.store.ReplaceGateways(ctx, index, req.Gateways)
}

type addGatewaysRequest struct {
	indexRequest
	NewGateways []entities.Gateway `json:"new_gateways"`
}

func (h *CommandHandler) addGateways(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req addGatewaysRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	index, err := req.index()
	if err != nil {
		return nil, err
	}
	return nil, h.store.MergeGateways(ctx, index, req.NewGateways)
}

type deleteGatewaysRequest struct {
	indexRequest
	GatewayIndices []int `json:"gateway_indices"`
}

func (h *CommandHandler) deleteGateways(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req deleteGatewaysRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	index, err := req.index()
	if err != nil {
		return nil, err
	}
	return nil, h.store.DeleteGateways(ctx, index, req.GatewayIndices)
}

type findIndexRequest struct {
	Name string `json:"name"`
}

type findIndexResponse struct {
	Index int `json:"index"`
}

func (h *CommandHandler) findInterfaceIndex(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req findIndexRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if err := utils.ValidateInterfaceName(req.Name); err != nil {
		return nil, errors.NewValidationError("invalid name", err)
	}

	index, err := h.store.IndexOf(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return findIndexResponse{Index: index}, nil
}

// decode parses a command payload. An empty body decodes as an empty object.
func decode(payload json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.NewValidationError("malformed request body", err)
	}
	return nil
}
