package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/interfaces"
	"netif-recorder/internal/infrastructure/metrics"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultSettleDelay groups the burst of events one write produces
const DefaultSettleDelay = 100 * time.Millisecond

// ChangeHandler receives the record set after an external edit
type ChangeHandler func(records entities.RecordSet)

// StoreWatcher reports edits to the record file made by other processes.
// Writes made through the store are recognised by content and ignored.
type StoreWatcher struct {
	path        string
	repository  interfaces.RecordRepository
	handlers    []ChangeHandler
	settleDelay time.Duration
	logger      *logrus.Logger

	mu      sync.Mutex
	known   []byte
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewStoreWatcher creates a new StoreWatcher for the file at path
func NewStoreWatcher(path string, repo interfaces.RecordRepository, logger *logrus.Logger, handlers ...ChangeHandler) *StoreWatcher {
	return &StoreWatcher{
		path:        path,
		repository:  repo,
		handlers:    handlers,
		settleDelay: DefaultSettleDelay,
		logger:      logger,
	}
}

// Guard wraps repo so every save is remembered before the file is written.
// The store must write through the returned repository for its own writes
// to be ignored.
func (w *StoreWatcher) Guard(repo interfaces.RecordRepository) interfaces.RecordRepository {
	return &guardedRepository{RecordRepository: repo, watcher: w}
}

type guardedRepository struct {
	interfaces.RecordRepository
	watcher *StoreWatcher
}

func (g *guardedRepository) Save(ctx context.Context, records entities.RecordSet) error {
	previous := g.watcher.swapKnown(canonicalize(records))
	if err := g.RecordRepository.Save(ctx, records); err != nil {
		g.watcher.swapKnown(previous)
		return err
	}
	return nil
}

// Start begins watching the directory holding the record file.
// The directory is watched because atomic writes replace the file.
func (w *StoreWatcher) Start(ctx context.Context) error {
	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve record file path: %w", err)
	}
	w.path = absPath

	records, err := w.repository.Load(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("Failed to load record file before watching")
	} else {
		w.remember(records)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run()

	w.logger.WithField("path", absPath).Info("Watching record file for external changes")
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (w *StoreWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
	w.watcher = nil
}

func (w *StoreWatcher) run() {
	defer close(w.doneCh)

	settle := time.NewTimer(w.settleDelay)
	if !settle.Stop() {
		<-settle.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if pending && !settle.Stop() {
				<-settle.C
			}
			settle.Reset(w.settleDelay)
			pending = true

		case <-settle.C:
			pending = false
			w.check()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("File watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *StoreWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	return err == nil && name == w.path
}

// check reloads the file and notifies handlers when its content differs
// from the last content seen
func (w *StoreWatcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := w.repository.Load(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("Failed to reload externally modified record file")
		return
	}

	if !w.remember(records) {
		return
	}

	w.logger.WithFields(logrus.Fields{
		"path":    w.path,
		"records": len(records),
	}).Info("Record file changed externally")

	metrics.RecordExternalChange()
	metrics.SetRecordCount(len(records))
	for _, handler := range w.handlers {
		handler(records.Clone())
	}
}

// remember stores the canonical form of records and reports whether it changed
func (w *StoreWatcher) remember(records entities.RecordSet) bool {
	canonical := canonicalize(records)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.known != nil && string(w.known) == string(canonical) {
		return false
	}
	w.known = canonical
	return true
}

// swapKnown replaces the remembered content and returns the previous one
func (w *StoreWatcher) swapKnown(canonical []byte) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()

	previous := w.known
	w.known = canonical
	return previous
}

func canonicalize(records entities.RecordSet) []byte {
	normalized := make(entities.RecordSet, len(records))
	for i, record := range records {
		record = record.Clone()
		if record.Gateway == nil {
			record.Gateway = []entities.Gateway{}
		}
		if record.DNS == nil {
			record.DNS = []string{}
		}
		normalized[i] = record
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return nil
	}
	return data
}
