package influx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformancePointSetsExpectedFields(t *testing.T) {
	point := PerformancePoint(0, 3, 2, 1, 120.5, 4.2, true)

	assert.Equal(t, "plugin_state", point.Name())
	require.Len(t, point.TagList(), 1)
	assert.Equal(t, "sun_index", point.TagList()[0].Key)
	assert.Equal(t, "0", point.TagList()[0].Value)

	fields := map[string]any{}
	for _, f := range point.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 120.5, fields["current_time"])
	assert.Equal(t, 3, fields["vessel_count"])
	assert.Equal(t, 2, fields["celestial_count"])
	assert.Equal(t, 1, fields["bubble_vessel_count"])
	assert.Equal(t, float32(4.2), fields["last_snapshot_write_ms"])
	assert.Equal(t, true, fields["is_initializing"])
}

func TestSessionEventPointSetsExpectedFields(t *testing.T) {
	point := SessionEventPoint("new", 5)

	assert.Equal(t, "session_events", point.Name())
	require.Len(t, point.TagList(), 1)
	assert.Equal(t, "event", point.TagList()[0].Key)
	assert.Equal(t, "new", point.TagList()[0].Value)

	fields := map[string]any{}
	for _, f := range point.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 5, fields["sun_index"])
}

func TestRenderMetricPointSetsExpectedFields(t *testing.T) {
	point := RenderMetricPoint("v1", 42, 2500*time.Microsecond)

	assert.Equal(t, "render_metrics", point.Name())
	require.Len(t, point.TagList(), 1)
	assert.Equal(t, "vessel_guid", point.TagList()[0].Key)
	assert.Equal(t, "v1", point.TagList()[0].Value)

	fields := map[string]any{}
	for _, f := range point.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 42, fields["segment_count"])
	assert.Equal(t, 2.5, fields["push_duration_ms"])
}
