package telemetry

import (
	"slices"
	"strings"
	"time"
)

// MetricAvailability is a time grain and retention pair a metric supports.
type MetricAvailability struct {
	TimeGrain string
	Retention string
}

// MetricDefinition describes one metric exposed by a resource.
type MetricDefinition struct {
	ID                        string
	Name                      string
	DisplayName               string
	Namespace                 string
	Unit                      string
	PrimaryAggregationType    string
	SupportedAggregationTypes []string
	Dimensions                []string
	Availabilities            []MetricAvailability
}

// MetricsQuery selects metric time series for a resource.
type MetricsQuery struct {
	ResourceURI  string
	MetricNames  []string
	Namespace    string
	Timespan     string
	Interval     string
	Aggregations []string
	Filter       string
	Top          int
}

// MetricValue is one aggregated data point. Nil fields were not requested.
type MetricValue struct {
	Timestamp time.Time
	Average   *float64
	Minimum   *float64
	Maximum   *float64
	Total     *float64
	Count     *float64
}

// TimeSeries is the data of one metric for one dimension combination.
type TimeSeries struct {
	Metadata map[string]string
	Data     []MetricValue
}

// Metric is the result for one metric name.
type Metric struct {
	ID          string
	Name        string
	DisplayName string
	Unit        string
	TimeSeries  []TimeSeries
}

// MetricsResult is the response of a metrics query.
type MetricsResult struct {
	Timespan       string
	Interval       string
	Namespace      string
	ResourceRegion string
	Cost           int
	Metrics        []Metric
}

// DefinitionsTable projects metric definitions into a table.
func DefinitionsTable(defs []MetricDefinition) Table {
	t := Table{
		Name: "MetricDefinitions",
		Columns: []Column{
			{Name: "name", Type: "string"},
			{Name: "unit", Type: "string"},
			{Name: "primaryAggregation", Type: "string"},
			{Name: "aggregations", Type: "string"},
			{Name: "dimensions", Type: "string"},
		},
	}
	for _, d := range defs {
		t.Rows = append(t.Rows, Row{
			d.Name,
			d.Unit,
			d.PrimaryAggregationType,
			strings.Join(d.SupportedAggregationTypes, ","),
			strings.Join(d.Dimensions, ","),
		})
	}
	return t
}

// Table flattens the metric time series into one row per data point.
// Aggregations that were not returned render as null.
func (r *MetricsResult) Table() Table {
	t := Table{
		Name: "Metrics",
		Columns: []Column{
			{Name: "metric", Type: "string"},
			{Name: "dimensions", Type: "string"},
			{Name: "timestamp", Type: "datetime"},
			{Name: "average", Type: "real"},
			{Name: "minimum", Type: "real"},
			{Name: "maximum", Type: "real"},
			{Name: "total", Type: "real"},
			{Name: "count", Type: "real"},
		},
	}
	for _, m := range r.Metrics {
		for _, ts := range m.TimeSeries {
			dims := formatDimensions(ts.Metadata)
			for _, v := range ts.Data {
				t.Rows = append(t.Rows, Row{
					m.Name,
					dims,
					v.Timestamp,
					optional(v.Average),
					optional(v.Minimum),
					optional(v.Maximum),
					optional(v.Total),
					optional(v.Count),
				})
			}
		}
	}
	return t
}

func optional(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// formatDimensions renders metadata as sorted key=value pairs.
func formatDimensions(md map[string]string) string {
	if len(md) == 0 {
		return ""
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + md[k]
	}
	return strings.Join(parts, ",")
}
