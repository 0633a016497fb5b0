package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/ingest"
	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/AnTengye/contractvigency/backend/pipeline"
	"github.com/AnTengye/contractvigency/backend/pkg/logger"
	"github.com/AnTengye/contractvigency/backend/pkg/metrics"
	"github.com/google/uuid"
)

// ErrNoStoredFile is returned by Reload for datasets whose spreadsheet was not kept.
var ErrNoStoredFile = errors.New("dataset has no stored file")

// VigencyService imports contract spreadsheets and evaluates them.
type VigencyService struct {
	store    *DatasetStore
	storage  ObjectStorage // nil when object storage is disabled
	source   *SourceService
	pipeline config.PipelineConfig
	sheet    string
	location *time.Location
}

// NewVigencyService wires the service. storage and source may be nil.
func NewVigencyService(store *DatasetStore, storage ObjectStorage, source *SourceService, cfg *config.Config) *VigencyService {
	return &VigencyService{
		store:    store,
		storage:  storage,
		source:   source,
		pipeline: cfg.Pipeline,
		sheet:    cfg.Source.Sheet,
		location: cfg.Pipeline.Location(),
	}
}

// Location is the time zone that decides which day is today.
func (s *VigencyService) Location() *time.Location {
	return s.location
}

// Import decodes an uploaded spreadsheet and stores the normalized dataset.
func (s *VigencyService) Import(ctx context.Context, tenant, filename string, data []byte) (*model.Dataset, error) {
	return s.importDataset(ctx, tenant, filename, data, model.OriginUpload, "")
}

// ImportFromSource fetches the configured source spreadsheet and imports it.
func (s *VigencyService) ImportFromSource(ctx context.Context, tenant string) (*model.Dataset, error) {
	if s.source == nil {
		return nil, ErrSourceNotConfigured
	}
	data, filename, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.importDataset(ctx, tenant, filename, data, model.OriginSource, s.source.URL())
}

// Reload re-reads a dataset's stored spreadsheet, picking up column configuration changes.
func (s *VigencyService) Reload(ctx context.Context, tenant, id string) (*model.Dataset, error) {
	ds, err := s.store.GetForTenant(id, tenant)
	if err != nil {
		return nil, err
	}
	if s.storage == nil || ds.ObjectName == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoStoredFile, id)
	}

	data, err := s.storage.DownloadFile(ctx, ds.ObjectName)
	if err != nil {
		return nil, err
	}
	res, err := s.normalize(ctx, ds.Filename, data)
	if err != nil {
		return nil, err
	}

	updated := *ds
	updated.Contracts = res.Contracts
	updated.Quality = res.Report
	updated.Rows = len(res.Contracts)
	s.store.Save(&updated)
	return &updated, nil
}

// Evaluate derives the vigency columns of a dataset against the day of now.
// The stored dataset is left untouched; callers own the returned rows.
func (s *VigencyService) Evaluate(ctx context.Context, tenant, id string, now time.Time) (*model.Dataset, []model.Contract, error) {
	ds, err := s.store.GetForTenant(id, tenant)
	if err != nil {
		return nil, nil, err
	}

	today := pipeline.Today(now, s.location)
	rows := pipeline.Derive(ds.Contracts, today)

	counts := make(map[model.Status]int, len(model.Statuses()))
	for _, c := range rows {
		counts[c.Status]++
	}
	metrics.RecordClassification(counts)

	logger.Debug(logger.WithDataset(ctx, id), "dataset evaluated",
		"today", today.String(),
		"rows", len(rows),
		"expiring_soon", counts[model.StatusExpiringSoon],
	)
	return ds, rows, nil
}

// Delete removes a dataset and its stored file.
func (s *VigencyService) Delete(ctx context.Context, tenant, id string) error {
	ds, err := s.store.GetForTenant(id, tenant)
	if err != nil {
		return err
	}
	if s.storage != nil && ds.ObjectName != "" {
		if err := s.storage.DeleteFile(ctx, ds.ObjectName); err != nil {
			logger.Warn(ctx, "failed to delete stored file", "object", ds.ObjectName, "error", err)
		}
	}
	s.store.Delete(id)
	return nil
}

// List returns the tenant's datasets, newest first.
func (s *VigencyService) List(tenant string) []*model.Dataset {
	return s.store.GetByTenant(tenant)
}

// Get returns one of the tenant's datasets.
func (s *VigencyService) Get(tenant, id string) (*model.Dataset, error) {
	return s.store.GetForTenant(id, tenant)
}

func (s *VigencyService) importDataset(ctx context.Context, tenant, filename string, data []byte, origin, sourceURL string) (*model.Dataset, error) {
	res, err := s.normalize(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	format, _ := ingest.FormatFromFilename(filename)
	now := time.Now()
	ds := &model.Dataset{
		ID:        uuid.New().String(),
		Tenant:    tenant,
		Filename:  filename,
		Format:    string(format),
		Origin:    origin,
		SourceURL: sourceURL,
		Rows:      len(res.Contracts),
		Quality:   res.Report,
		CreatedAt: now,
		Contracts: res.Contracts,
	}
	ctx = logger.WithDataset(ctx, ds.ID)

	if s.storage != nil {
		ds.ObjectName = ObjectName(tenant, ds.ID, filename)
		if err := s.storage.UploadFile(ctx, ds.ObjectName, bytes.NewReader(data), int64(len(data)), format.ContentType()); err != nil {
			return nil, err
		}
		if url, err := s.storage.GetPresignedURL(ctx, ds.ObjectName); err == nil {
			ds.FileURL = url
		} else {
			logger.Warn(ctx, "failed to presign stored file", "error", err)
		}
	}

	s.store.Save(ds)
	logger.Info(ctx, "dataset imported",
		"filename", filename,
		"origin", origin,
		"rows", ds.Rows,
	)
	return ds, nil
}

// normalize runs decoding and normalization, logging and recording the
// quality report.
func (s *VigencyService) normalize(ctx context.Context, filename string, data []byte) (res pipeline.Result, err error) {
	start := time.Now()
	format, err := ingest.FormatFromFilename(filename)
	if err != nil {
		return res, err
	}
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordImportDuration(string(format), result, time.Since(start))
	}()

	sheet, err := ingest.Decode(bytes.NewReader(data), format, ingest.Options{Sheet: s.sheet})
	if err != nil {
		return res, err
	}

	res, err = pipeline.Normalize(sheet, s.pipeline.Columns)
	var mce *pipeline.MissingColumnError
	if errors.As(err, &mce) {
		if s.pipeline.Strict() {
			return res, err
		}
		logger.Warn(ctx, "columns missing, their values stay empty", "columns", mce.Columns)
		err = nil
	} else if err != nil {
		return res, err
	}

	report := res.Report
	metrics.RecordInvalidDates(report.InvalidDates)
	metrics.RecordMissingSupplierSeparator(report.MissingSupplier)

	if report.MissingSupplier > 0 {
		logger.Warn(ctx, "supplier cells without name separator",
			"count", report.MissingSupplier,
		)
	}
	invalidDates := 0
	for column, n := range report.InvalidDates {
		invalidDates += n
		logger.Debug(ctx, "unparseable date cells", "column", column, "count", n)
	}
	logger.Info(ctx, "spreadsheet normalized",
		"filename", filename,
		"rows", report.Rows,
		"invalid_dates", invalidDates,
		"invalid_values", report.InvalidValues,
	)
	return res, nil
}
