package service

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/model"
)

var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetStore is an in-memory store of imported datasets.
// Derived tables are never kept here; every reader derives its own copy.
type DatasetStore struct {
	datasets    map[string]*model.Dataset
	mu          sync.RWMutex
	maxDatasets int // Maximum datasets to keep, 0 = unlimited
}

var (
	globalStore *DatasetStore
	storeOnce   sync.Once
)

// NewDatasetStore creates a store keeping at most maxDatasets entries.
func NewDatasetStore(maxDatasets int) *DatasetStore {
	if maxDatasets < 0 {
		maxDatasets = 0
	}
	return &DatasetStore{
		datasets:    make(map[string]*model.Dataset),
		maxDatasets: maxDatasets,
	}
}

// InitDatasetStore initializes the global dataset store with configuration
func InitDatasetStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		globalStore = NewDatasetStore(cfg.MaxDatasets)
		slog.Info("dataset store initialized", "max_datasets", globalStore.maxDatasets)
	})
}

// GetDatasetStore returns the global dataset store
func GetDatasetStore() *DatasetStore {
	storeOnce.Do(func() {
		// Fallback initialization with default settings
		globalStore = NewDatasetStore(20)
	})
	return globalStore
}

func (s *DatasetStore) Save(ds *model.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds.UpdatedAt = time.Now()
	s.datasets[ds.ID] = ds

	s.cleanupIfNeeded()
}

func (s *DatasetStore) Get(id string) *model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasets[id]
}

// GetForTenant returns the dataset only if it belongs to tenant.
func (s *DatasetStore) GetForTenant(id, tenant string) (*model.Dataset, error) {
	ds := s.Get(id)
	if ds == nil || ds.Tenant != tenant {
		return nil, ErrDatasetNotFound
	}
	return ds, nil
}

// GetByTenant lists a tenant's datasets, newest first.
func (s *DatasetStore) GetByTenant(tenant string) []*model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Dataset
	for _, ds := range s.datasets {
		if ds.Tenant == tenant {
			result = append(result, ds)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *DatasetStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, id)
}

// cleanupIfNeeded removes oldest datasets if store exceeds maxDatasets
// Must be called with lock held
func (s *DatasetStore) cleanupIfNeeded() {
	if s.maxDatasets <= 0 {
		return // Unlimited
	}

	if len(s.datasets) <= s.maxDatasets {
		return
	}

	datasets := make([]*model.Dataset, 0, len(s.datasets))
	for _, ds := range s.datasets {
		datasets = append(datasets, ds)
	}
	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].CreatedAt.Before(datasets[j].CreatedAt)
	})

	removeCount := len(datasets) - s.maxDatasets
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting old dataset",
			"dataset_id", datasets[i].ID,
			"created_at", datasets[i].CreatedAt,
		)
		delete(s.datasets, datasets[i].ID)
	}
}

// Count returns the number of datasets in the store
func (s *DatasetStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}
