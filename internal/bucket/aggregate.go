// Package bucket computes point-in-time snapshots of the configured bucket:
// a full object inventory annotated with storage tier, the total bytes used,
// and a per-storage-class histogram.
package bucket

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tierboard/internal/gateway"
)

// lookupConcurrency bounds the per-object storage-class fan-out.
const lookupConcurrency = 8

// Gateway is the subset of the storage gateway the aggregator needs.
type Gateway interface {
	ListObjects(ctx context.Context) ([]gateway.ObjectMeta, error)
	StorageClass(ctx context.Context, key string) (string, error)
}

// ObjectRecord is one entry in the bucket inventory.
type ObjectRecord struct {
	Key          string
	Size         int64
	LastModified time.Time

	// StorageClass is the resolved tier label. Defaulted marks records whose
	// class lookup failed and was substituted with STANDARD, so observers can
	// tell true standard-tier objects from degraded lookups.
	StorageClass string
	Defaulted    bool
}

// Summary is the aggregate state of the bucket, computed fresh on every call
// and never cached.
type Summary struct {
	// Objects preserves the backend's listing order, which is not guaranteed
	// to be sorted or stable across calls.
	Objects     []ObjectRecord
	TotalBytes  int64
	ClassCounts map[string]int

	// Degraded is set when the listing itself failed and the summary is the
	// empty fallback rather than an observation of an empty bucket.
	Degraded bool
}

// Aggregator folds bucket listings into Summary values.
type Aggregator struct {
	gw Gateway
}

func New(gw Gateway) *Aggregator {
	return &Aggregator{gw: gw}
}

// Aggregate produces one Summary snapshot.
//
// A listing failure degrades to an empty summary with Degraded set; it is
// never surfaced as an error, so the dashboard always has something to
// render. A storage-class lookup failure degrades that single record to
// STANDARD and never aborts the aggregation of the remaining objects: every
// listed object yields exactly one record.
func (a *Aggregator) Aggregate(ctx context.Context) Summary {
	metas, err := a.gw.ListObjects(ctx)
	if err != nil {
		slog.Warn("Listing bucket contents failed, returning empty summary", "err", err)
		return Summary{
			Objects:     []ObjectRecord{},
			ClassCounts: map[string]int{},
			Degraded:    true,
		}
	}

	// Resolve storage classes concurrently. Each worker writes only its own
	// index, so listing order is preserved and no accumulator is shared.
	records := make([]ObjectRecord, len(metas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, meta := range metas {
		g.Go(func() error {
			rec := ObjectRecord{
				Key:          meta.Key,
				Size:         meta.Size,
				LastModified: meta.LastModified,
			}

			class, err := a.gw.StorageClass(gctx, meta.Key)
			if err != nil {
				slog.Debug("Storage class lookup failed, defaulting", "key", meta.Key, "err", err)
				rec.StorageClass = gateway.DefaultStorageClass
				rec.Defaulted = true
			} else {
				rec.StorageClass = class
			}

			records[i] = rec
			return nil
		})
	}
	// Workers never return errors; lookups degrade per item instead.
	_ = g.Wait()

	summary := Summary{
		Objects:     records,
		ClassCounts: make(map[string]int, 4),
	}
	for _, rec := range records {
		summary.TotalBytes += rec.Size
		summary.ClassCounts[rec.StorageClass]++
	}

	return summary
}
