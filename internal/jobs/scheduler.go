package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"photoshelf/internal/storage"
)

type KeyLister interface {
	StorageKeys(ctx context.Context) ([]string, error)
}

type Scheduler struct {
	cron     *cron.Cron
	store    storage.BlobStore
	assets   KeyLister
	prefix   string
	schedule string
	log      zerolog.Logger
}

func NewScheduler(store storage.BlobStore, assets KeyLister, prefix, schedule string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		store:    store,
		assets:   assets,
		prefix:   prefix,
		schedule: schedule,
		log:      log,
	}
}

// Start registers the inventory audit. Without a record store there is
// nothing to compare against and the scheduler stays idle.
func (s *Scheduler) Start() error {
	if s.assets == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runInventory); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running audit to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runInventory() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := Inventory(ctx, s.store, s.assets, s.prefix)
	if err != nil {
		s.log.Error().Err(err).Msg("inventory audit failed")
		return
	}

	event := s.log.Info()
	if len(report.OrphanBlobs) > 0 || len(report.MissingBlobs) > 0 {
		event = s.log.Warn()
	}
	event.
		Int("blobs", report.Blobs).
		Int("records", report.Records).
		Int("orphan_blobs", len(report.OrphanBlobs)).
		Int("missing_blobs", len(report.MissingBlobs)).
		Msg("inventory audit")
}

// InventoryReport compares stored objects with asset records. Orphan blobs
// have no record (an upload whose record write failed); missing blobs are
// records whose object is gone.
type InventoryReport struct {
	Blobs        int
	Records      int
	OrphanBlobs  []string
	MissingBlobs []string
}

func Inventory(ctx context.Context, store storage.BlobStore, assets KeyLister, prefix string) (InventoryReport, error) {
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return InventoryReport{}, err
	}
	keys, err := assets.StorageKeys(ctx)
	if err != nil {
		return InventoryReport{}, err
	}

	blobSet := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		blobSet[obj.Key] = struct{}{}
	}
	recordSet := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		recordSet[key] = struct{}{}
	}

	report := InventoryReport{Blobs: len(blobSet), Records: len(keys)}
	for _, obj := range objects {
		if _, ok := recordSet[obj.Key]; !ok {
			report.OrphanBlobs = append(report.OrphanBlobs, obj.Key)
		}
	}
	for _, key := range keys {
		if _, ok := blobSet[key]; !ok {
			report.MissingBlobs = append(report.MissingBlobs, key)
		}
	}
	return report, nil
}
