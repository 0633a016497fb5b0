package service

import (
	"errors"
	"testing"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/model"
)

func TestDatasetStoreSaveAndGet(t *testing.T) {
	store := NewDatasetStore(100)

	ds := &model.Dataset{
		ID:        "test-id-1",
		Filename:  "contratos.xlsx",
		Tenant:    "tenant1",
		CreatedAt: time.Now(),
	}

	store.Save(ds)

	retrieved := store.Get("test-id-1")
	if retrieved == nil {
		t.Fatal("Expected to retrieve dataset")
	}
	if retrieved.Filename != "contratos.xlsx" {
		t.Errorf("Expected filename contratos.xlsx, got %s", retrieved.Filename)
	}
	if retrieved.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set on save")
	}

	if store.Get("non-existent") != nil {
		t.Error("Expected nil for non-existent dataset")
	}
}

func TestDatasetStoreGetForTenant(t *testing.T) {
	store := NewDatasetStore(100)
	store.Save(&model.Dataset{ID: "ds", Tenant: "tenant1", CreatedAt: time.Now()})

	if _, err := store.GetForTenant("ds", "tenant1"); err != nil {
		t.Errorf("Expected dataset for owner, got %v", err)
	}
	if _, err := store.GetForTenant("ds", "tenant2"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Expected ErrDatasetNotFound for other tenant, got %v", err)
	}
	if _, err := store.GetForTenant("missing", "tenant1"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Expected ErrDatasetNotFound, got %v", err)
	}
}

func TestDatasetStoreGetByTenant(t *testing.T) {
	store := NewDatasetStore(100)

	now := time.Now()
	store.Save(&model.Dataset{ID: "1", Tenant: "tenant1", CreatedAt: now.Add(-time.Hour)})
	store.Save(&model.Dataset{ID: "2", Tenant: "tenant1", CreatedAt: now})
	store.Save(&model.Dataset{ID: "3", Tenant: "tenant2", CreatedAt: now})

	tenant1 := store.GetByTenant("tenant1")
	if len(tenant1) != 2 {
		t.Fatalf("Expected 2 datasets for tenant1, got %d", len(tenant1))
	}
	if tenant1[0].ID != "2" {
		t.Errorf("Expected newest dataset first, got %s", tenant1[0].ID)
	}

	if len(store.GetByTenant("tenant3")) != 0 {
		t.Error("Expected 0 datasets for tenant3")
	}
}

func TestDatasetStoreDelete(t *testing.T) {
	store := NewDatasetStore(100)

	store.Save(&model.Dataset{ID: "delete-me", CreatedAt: time.Now()})
	if store.Get("delete-me") == nil {
		t.Fatal("Expected dataset to exist before delete")
	}

	store.Delete("delete-me")

	if store.Get("delete-me") != nil {
		t.Error("Expected dataset to be deleted")
	}
}

func TestDatasetStoreAutoCleanup(t *testing.T) {
	store := NewDatasetStore(3)

	base := time.Now()
	for i := 0; i < 5; i++ {
		store.Save(&model.Dataset{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	if store.Count() != 3 {
		t.Errorf("Expected 3 datasets after cleanup, got %d", store.Count())
	}
	if store.Get("a") != nil {
		t.Error("Expected oldest dataset 'a' to be removed")
	}
	if store.Get("b") != nil {
		t.Error("Expected second oldest dataset 'b' to be removed")
	}
	if store.Get("e") == nil {
		t.Error("Expected newest dataset 'e' to be kept")
	}
}

func TestDatasetStoreUnlimited(t *testing.T) {
	store := NewDatasetStore(0)

	for i := 0; i < 10; i++ {
		store.Save(&model.Dataset{
			ID:        string(rune('a' + i)),
			CreatedAt: time.Now(),
		})
	}

	if store.Count() != 10 {
		t.Errorf("Expected 10 datasets, got %d", store.Count())
	}
}

func TestNewDatasetStoreNegativeLimit(t *testing.T) {
	store := NewDatasetStore(-5)
	if store.maxDatasets != 0 {
		t.Errorf("Expected negative limit to mean unlimited, got %d", store.maxDatasets)
	}
}

func TestGetDatasetStore(t *testing.T) {
	InitDatasetStore(&config.StoreConfig{MaxDatasets: 50})

	store := GetDatasetStore()
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if GetDatasetStore() != store {
		t.Error("Expected the same global store")
	}
}
