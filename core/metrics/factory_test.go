package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dutyplan/core/factory"
	"github.com/kilianp07/dutyplan/core/metrics"
	_ "github.com/kilianp07/dutyplan/infra/metrics"
)

func TestSinkTypes(t *testing.T) {
	assert.Subset(t, metrics.SinkTypes(), []string{"influx", "nop", "prometheus"})
}

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, m.Sinks, 2)
	assert.NoError(t, m.RecordSchedule(metrics.ScheduleRecord{RouteID: "r1"}))
}

func TestNewMetricsSink_UnknownType(t *testing.T) {
	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	assert.ErrorContains(t, err, "metrics sink 1 (statsd)")
}

func TestMetricsConfig_Decode(t *testing.T) {
	var fromYAML metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte("sinks:\n  - type: nop\n  - type: nop\n"), &fromYAML))
	s, err := metrics.NewMetricsSink(fromYAML.Sinks)
	require.NoError(t, err)
	assert.IsType(t, &metrics.MultiSink{}, s)

	var fromJSON metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}],"prometheus_addr":":9100"}`), &fromJSON))
	assert.Equal(t, ":9100", fromJSON.PrometheusAddr)
	_, err = metrics.NewMetricsSink(fromJSON.Sinks)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, metrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}}}.Validate())
	assert.ErrorContains(t, metrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}, {}}}.Validate(), "sinks[1]")
}
