package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRebuild(t *testing.T) {
	success := testutil.ToFloat64(RebuildTotal.WithLabelValues("success"))
	failure := testutil.ToFloat64(RebuildTotal.WithLabelValues("failure"))

	RecordRebuild(nil)
	RecordRebuild(errors.New("boom"))
	RecordRebuild(errors.New("boom"))

	if got := testutil.ToFloat64(RebuildTotal.WithLabelValues("success")) - success; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RebuildTotal.WithLabelValues("failure")) - failure; got != 2 {
		t.Errorf("failure delta = %v, want 2", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(ExpansionCache.WithLabelValues("hit"))
	misses := testutil.ToFloat64(ExpansionCache.WithLabelValues("miss"))

	RecordCacheLookup(true)
	RecordCacheLookup(false)

	if got := testutil.ToFloat64(ExpansionCache.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ExpansionCache.WithLabelValues("miss")) - misses; got != 1 {
		t.Errorf("miss delta = %v, want 1", got)
	}
}
