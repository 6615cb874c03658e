// Package monitor implements telemetry.MetricsClient against the resource
// metrics API.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

const (
	// DefaultEndpoint is the public resource management endpoint.
	DefaultEndpoint = "https://management.azure.com"
	apiVersion      = "2018-01-01"
)

// Client reads metric definitions and values for resources.
type Client struct {
	api *restapi.Client
}

// New creates a client for endpoint (DefaultEndpoint when empty).
func New(endpoint string, tokens auth.TokenProvider) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{api: restapi.New(endpoint, tokens)}
}

// NewWithAPI creates a client over an existing transport.
func NewWithAPI(api *restapi.Client) *Client {
	return &Client{api: api}
}

var _ telemetry.MetricsClient = (*Client)(nil)

type localizable struct {
	Value          string `json:"value"`
	LocalizedValue string `json:"localizedValue"`
}

type definitionsResponse struct {
	Value []struct {
		ID                        string        `json:"id"`
		Namespace                 string        `json:"namespace"`
		Name                      localizable   `json:"name"`
		Unit                      string        `json:"unit"`
		PrimaryAggregationType    string        `json:"primaryAggregationType"`
		SupportedAggregationTypes []string      `json:"supportedAggregationTypes"`
		Dimensions                []localizable `json:"dimensions"`
		MetricAvailabilities      []struct {
			TimeGrain string `json:"timeGrain"`
			Retention string `json:"retention"`
		} `json:"metricAvailabilities"`
	} `json:"value"`
}

type metricsResponse struct {
	Cost           json.Number `json:"cost"`
	Timespan       string      `json:"timespan"`
	Interval       string      `json:"interval"`
	Namespace      string      `json:"namespace"`
	ResourceRegion string      `json:"resourceregion"`
	Value          []struct {
		ID         string      `json:"id"`
		Name       localizable `json:"name"`
		Unit       string      `json:"unit"`
		Timeseries []struct {
			MetadataValues []struct {
				Name  localizable `json:"name"`
				Value string      `json:"value"`
			} `json:"metadatavalues"`
			Data []struct {
				TimeStamp string       `json:"timeStamp"`
				Average   *json.Number `json:"average"`
				Minimum   *json.Number `json:"minimum"`
				Maximum   *json.Number `json:"maximum"`
				Total     *json.Number `json:"total"`
				Count     *json.Number `json:"count"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"value"`
}

// ListMetricDefinitions returns the metrics available on a resource.
func (c *Client) ListMetricDefinitions(ctx context.Context, resourceURI, namespace string) ([]telemetry.MetricDefinition, error) {
	path, err := providerPath(resourceURI, "metricDefinitions")
	if err != nil {
		return nil, err
	}

	q := url.Values{"api-version": {apiVersion}}
	if namespace != "" {
		q.Set("metricnamespace", namespace)
	}

	var resp definitionsResponse
	if err := c.api.Get(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	defs := make([]telemetry.MetricDefinition, 0, len(resp.Value))
	for _, v := range resp.Value {
		def := telemetry.MetricDefinition{
			ID:                        v.ID,
			Name:                      v.Name.Value,
			DisplayName:               v.Name.LocalizedValue,
			Namespace:                 v.Namespace,
			Unit:                      v.Unit,
			PrimaryAggregationType:    v.PrimaryAggregationType,
			SupportedAggregationTypes: v.SupportedAggregationTypes,
		}
		for _, d := range v.Dimensions {
			def.Dimensions = append(def.Dimensions, d.Value)
		}
		for _, a := range v.MetricAvailabilities {
			def.Availabilities = append(def.Availabilities, telemetry.MetricAvailability{
				TimeGrain: a.TimeGrain,
				Retention: a.Retention,
			})
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// QueryResource returns metric values for a resource.
func (c *Client) QueryResource(ctx context.Context, mq telemetry.MetricsQuery) (*telemetry.MetricsResult, error) {
	if len(mq.MetricNames) == 0 {
		return nil, errors.New("at least one metric name is required")
	}
	path, err := providerPath(mq.ResourceURI, "metrics")
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"api-version": {apiVersion},
		"metricnames": {strings.Join(mq.MetricNames, ",")},
	}
	if mq.Timespan != "" {
		q.Set("timespan", mq.Timespan)
	}
	if mq.Interval != "" {
		q.Set("interval", mq.Interval)
	}
	if len(mq.Aggregations) > 0 {
		q.Set("aggregation", strings.Join(mq.Aggregations, ","))
	}
	if mq.Namespace != "" {
		q.Set("metricnamespace", mq.Namespace)
	}
	if mq.Filter != "" {
		q.Set("$filter", mq.Filter)
	}
	if mq.Top > 0 {
		q.Set("top", strconv.Itoa(mq.Top))
	}

	var resp metricsResponse
	if err := c.api.Get(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	cost, _ := resp.Cost.Int64()
	result := &telemetry.MetricsResult{
		Timespan:       resp.Timespan,
		Interval:       resp.Interval,
		Namespace:      resp.Namespace,
		ResourceRegion: resp.ResourceRegion,
		Cost:           int(cost),
	}

	for _, v := range resp.Value {
		m := telemetry.Metric{
			ID:          v.ID,
			Name:        v.Name.Value,
			DisplayName: v.Name.LocalizedValue,
			Unit:        v.Unit,
		}
		for _, ts := range v.Timeseries {
			series := telemetry.TimeSeries{}
			if len(ts.MetadataValues) > 0 {
				series.Metadata = make(map[string]string, len(ts.MetadataValues))
				for _, md := range ts.MetadataValues {
					series.Metadata[md.Name.Value] = md.Value
				}
			}
			for _, d := range ts.Data {
				stamp, err := time.Parse(time.RFC3339Nano, d.TimeStamp)
				if err != nil {
					return nil, fmt.Errorf("parse timestamp %q: %w", d.TimeStamp, err)
				}
				series.Data = append(series.Data, telemetry.MetricValue{
					Timestamp: stamp,
					Average:   number(d.Average),
					Minimum:   number(d.Minimum),
					Maximum:   number(d.Maximum),
					Total:     number(d.Total),
					Count:     number(d.Count),
				})
			}
			m.TimeSeries = append(m.TimeSeries, series)
		}
		result.Metrics = append(result.Metrics, m)
	}

	return result, nil
}

func providerPath(resourceURI, kind string) (string, error) {
	resourceURI = strings.TrimRight(strings.TrimSpace(resourceURI), "/")
	if resourceURI == "" {
		return "", errors.New("resource URI is required")
	}
	if !strings.HasPrefix(resourceURI, "/") {
		resourceURI = "/" + resourceURI
	}
	return resourceURI + "/providers/Microsoft.Insights/" + kind, nil
}

func number(n *json.Number) *float64 {
	if n == nil {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}
