package bucket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tierboard/internal/gateway"
)

// fakeGateway is an in-memory Gateway with scriptable failures.
type fakeGateway struct {
	mu sync.Mutex

	objects []gateway.ObjectMeta
	classes map[string]string

	listErr     error
	failClasses map[string]bool

	statCalls int
}

func (f *fakeGateway) ListObjects(ctx context.Context) ([]gateway.ObjectMeta, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.objects, nil
}

func (f *fakeGateway) StorageClass(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	f.statCalls++
	f.mu.Unlock()

	if f.failClasses[key] {
		return "", fmt.Errorf("%w: stat %q: boom", gateway.ErrObjectLookupFailed, key)
	}
	if class, ok := f.classes[key]; ok {
		return class, nil
	}
	return gateway.DefaultStorageClass, nil
}

func metaN(n int) []gateway.ObjectMeta {
	metas := make([]gateway.ObjectMeta, 0, n)
	for i := 0; i < n; i++ {
		metas = append(metas, gateway.ObjectMeta{
			Key:          fmt.Sprintf("obj-%03d", i),
			Size:         int64(i + 1),
			LastModified: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		})
	}
	return metas
}

func TestAggregateEmptyBucket(t *testing.T) {
	t.Parallel()

	agg := New(&fakeGateway{})
	summary := agg.Aggregate(context.Background())

	require.Empty(t, summary.Objects)
	require.Zero(t, summary.TotalBytes)
	require.Empty(t, summary.ClassCounts)
	require.False(t, summary.Degraded)

	require.Equal(t, 0.0, UsedMegabytes(summary.TotalBytes))
	require.Equal(t, 0.0, UsagePercent(UsedMegabytes(summary.TotalBytes), 20))
}

func TestAggregateTotalsAndHistogram(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		objects: []gateway.ObjectMeta{
			{Key: "a.bin", Size: 1048576, LastModified: time.Now()},
			{Key: "b.bin", Size: 2097152, LastModified: time.Now()},
		},
	}
	agg := New(gw)
	summary := agg.Aggregate(context.Background())

	require.Len(t, summary.Objects, 2)
	require.Equal(t, int64(3145728), summary.TotalBytes)
	require.Equal(t, map[string]int{"STANDARD": 2}, summary.ClassCounts)
	require.Equal(t, 3.0, UsedMegabytes(summary.TotalBytes))
}

func TestAggregateMixedClasses(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		objects: metaN(5),
		classes: map[string]string{
			"obj-000": "GLACIER",
			"obj-001": "GLACIER",
			"obj-002": "INTELLIGENT_TIERING",
		},
	}
	summary := New(gw).Aggregate(context.Background())

	require.Len(t, summary.Objects, 5)
	require.Equal(t, map[string]int{
		"GLACIER":             2,
		"INTELLIGENT_TIERING": 1,
		"STANDARD":            2,
	}, summary.ClassCounts)

	total := 0
	for _, n := range summary.ClassCounts {
		total += n
	}
	require.Equal(t, len(summary.Objects), total, "every object counted in exactly one class")
}

func TestAggregateListingFailureDegrades(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		listErr: fmt.Errorf("%w: connection refused", gateway.ErrBackendUnavailable),
	}
	summary := New(gw).Aggregate(context.Background())

	require.True(t, summary.Degraded)
	require.NotNil(t, summary.Objects)
	require.Empty(t, summary.Objects)
	require.Zero(t, summary.TotalBytes)
	require.Empty(t, summary.ClassCounts)
}

func TestAggregateLookupFailureIsolated(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		objects: metaN(3),
		classes: map[string]string{"obj-002": "GLACIER"},
		failClasses: map[string]bool{
			"obj-001": true,
		},
	}
	summary := New(gw).Aggregate(context.Background())

	require.Len(t, summary.Objects, 3, "a failed lookup must not drop its record")

	failed := summary.Objects[1]
	require.Equal(t, "obj-001", failed.Key)
	require.Equal(t, gateway.DefaultStorageClass, failed.StorageClass)
	require.True(t, failed.Defaulted)

	require.False(t, summary.Objects[0].Defaulted)
	require.Equal(t, "GLACIER", summary.Objects[2].StorageClass)
	require.Equal(t, map[string]int{"STANDARD": 2, "GLACIER": 1}, summary.ClassCounts)
}

func TestAggregateAllLookupsFail(t *testing.T) {
	t.Parallel()

	const n = 50
	fail := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		fail[fmt.Sprintf("obj-%03d", i)] = true
	}

	gw := &fakeGateway{objects: metaN(n), failClasses: fail}
	summary := New(gw).Aggregate(context.Background())

	require.Len(t, summary.Objects, n)
	require.Equal(t, map[string]int{gateway.DefaultStorageClass: n}, summary.ClassCounts)
	for _, rec := range summary.Objects {
		require.True(t, rec.Defaulted)
	}
}

func TestAggregatePreservesListingOrder(t *testing.T) {
	t.Parallel()

	// Enough objects that the bounded fan-out actually runs concurrently.
	gw := &fakeGateway{objects: metaN(200)}
	summary := New(gw).Aggregate(context.Background())

	require.Len(t, summary.Objects, 200)
	for i, rec := range summary.Objects {
		require.Equal(t, fmt.Sprintf("obj-%03d", i), rec.Key)
		require.Equal(t, int64(i+1), rec.Size)
	}
	require.Equal(t, 200, gw.statCalls)
}

func TestAggregateIdempotent(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		objects: metaN(10),
		classes: map[string]string{"obj-004": "GLACIER"},
	}
	agg := New(gw)

	first := agg.Aggregate(context.Background())
	second := agg.Aggregate(context.Background())

	require.Equal(t, first.TotalBytes, second.TotalBytes)
	require.Equal(t, first.ClassCounts, second.ClassCounts)
}

func TestUsedMegabytesRounding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int64
		want  float64
	}{
		{0, 0.0},
		{1048576, 1.0},
		{3145728, 3.0},
		{1572864, 1.5},
		{1, 0.0},
		{10486, 0.01},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, UsedMegabytes(tc.bytes), "bytes=%d", tc.bytes)
	}
}

func TestUsagePercentClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		usedMB  float64
		quotaMB float64
		want    float64
	}{
		{name: "empty", usedMB: 0, quotaMB: 10, want: 0},
		{name: "half", usedMB: 5, quotaMB: 10, want: 50},
		{name: "full", usedMB: 10, quotaMB: 10, want: 100},
		{name: "over quota clamps", usedMB: 15, quotaMB: 10, want: 100},
		{name: "way over quota clamps", usedMB: 100000, quotaMB: 10, want: 100},
		{name: "zero quota with usage", usedMB: 1, quotaMB: 0, want: 100},
		{name: "zero quota without usage", usedMB: 0, quotaMB: 0, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := UsagePercent(tc.usedMB, tc.quotaMB)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got, 0.0)
			require.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestListingFailureDistinguishableFromEmpty(t *testing.T) {
	t.Parallel()

	down := New(&fakeGateway{listErr: errors.New("boom")}).Aggregate(context.Background())
	empty := New(&fakeGateway{}).Aggregate(context.Background())

	require.True(t, down.Degraded)
	require.False(t, empty.Degraded)
	require.Equal(t, down.TotalBytes, empty.TotalBytes)
}
