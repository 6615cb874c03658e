package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joacominatel/telequery/internal/auth"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/telemetry/restapi"
)

const resourceURI = "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.Storage/storageAccounts/acct"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithAPI(restapi.New(server.URL, auth.StaticToken("tok")).WithBaseDelay(time.Millisecond))
}

func TestListMetricDefinitions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != resourceURI+"/providers/Microsoft.Insights/metricDefinitions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != apiVersion {
			t.Errorf("expected api-version %q, got %q", apiVersion, got)
		}
		if got := r.URL.Query().Get("metricnamespace"); got != "Microsoft.Storage/storageAccounts" {
			t.Errorf("unexpected namespace %q", got)
		}
		_, _ = w.Write([]byte(`{"value":[{
			"id":"def-1","namespace":"Microsoft.Storage/storageAccounts",
			"name":{"value":"Ingress","localizedValue":"Ingress"},
			"unit":"Bytes","primaryAggregationType":"Total",
			"supportedAggregationTypes":["Total","Average","Minimum","Maximum"],
			"dimensions":[{"value":"ApiName","localizedValue":"API name"}],
			"metricAvailabilities":[{"timeGrain":"PT1M","retention":"P93D"}]
		}]}`))
	})

	defs, err := client.ListMetricDefinitions(context.Background(), resourceURI, "Microsoft.Storage/storageAccounts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	d := defs[0]
	if d.Name != "Ingress" || d.Unit != "Bytes" || d.PrimaryAggregationType != "Total" {
		t.Errorf("unexpected definition %+v", d)
	}
	if len(d.Dimensions) != 1 || d.Dimensions[0] != "ApiName" {
		t.Errorf("unexpected dimensions %v", d.Dimensions)
	}
	if len(d.Availabilities) != 1 || d.Availabilities[0].TimeGrain != "PT1M" {
		t.Errorf("unexpected availabilities %v", d.Availabilities)
	}
}

func TestQueryResource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("metricnames") != "Ingress,Egress" {
			t.Errorf("unexpected metric names %q", q.Get("metricnames"))
		}
		if q.Get("timespan") != "PT1H" || q.Get("interval") != "PT5M" {
			t.Errorf("unexpected timespan/interval %q/%q", q.Get("timespan"), q.Get("interval"))
		}
		if q.Get("aggregation") != "Average,Count" {
			t.Errorf("unexpected aggregation %q", q.Get("aggregation"))
		}
		if q.Get("$filter") != "ApiName eq '*'" {
			t.Errorf("unexpected filter %q", q.Get("$filter"))
		}
		_, _ = w.Write([]byte(`{"cost":59,"timespan":"2024-05-01T10:00:00Z/2024-05-01T11:00:00Z","interval":"PT5M",
			"namespace":"Microsoft.Storage/storageAccounts","resourceregion":"westus",
			"value":[{"id":"m-1","name":{"value":"Ingress","localizedValue":"Ingress"},"unit":"Bytes",
				"timeseries":[{"metadatavalues":[{"name":{"value":"apiname"},"value":"GetBlob"}],
					"data":[{"timeStamp":"2024-05-01T10:00:00Z","average":1024.5,"count":4},{"timeStamp":"2024-05-01T10:05:00Z"}]}]}]}`))
	})

	result, err := client.QueryResource(context.Background(), telemetry.MetricsQuery{
		ResourceURI:  resourceURI,
		MetricNames:  []string{"Ingress", "Egress"},
		Timespan:     "PT1H",
		Interval:     "PT5M",
		Aggregations: []string{"Average", "Count"},
		Filter:       "ApiName eq '*'",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Cost != 59 || result.ResourceRegion != "westus" || result.Interval != "PT5M" {
		t.Errorf("unexpected result metadata %+v", result)
	}
	if len(result.Metrics) != 1 || len(result.Metrics[0].TimeSeries) != 1 {
		t.Fatalf("unexpected metrics %+v", result.Metrics)
	}

	series := result.Metrics[0].TimeSeries[0]
	if series.Metadata["apiname"] != "GetBlob" {
		t.Errorf("unexpected metadata %v", series.Metadata)
	}
	if len(series.Data) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series.Data))
	}
	if series.Data[0].Average == nil || *series.Data[0].Average != 1024.5 {
		t.Errorf("unexpected average %v", series.Data[0].Average)
	}
	if series.Data[0].Minimum != nil {
		t.Errorf("expected missing minimum")
	}
	if series.Data[1].Count != nil {
		t.Errorf("expected empty second point")
	}
}

func TestQueryResource_Validation(t *testing.T) {
	client := New("http://127.0.0.1:0", nil)

	if _, err := client.QueryResource(context.Background(), telemetry.MetricsQuery{ResourceURI: resourceURI}); err == nil {
		t.Error("expected error without metric names")
	}
	if _, err := client.QueryResource(context.Background(), telemetry.MetricsQuery{MetricNames: []string{"x"}}); err == nil {
		t.Error("expected error without resource URI")
	}
}

func TestProviderPath(t *testing.T) {
	got, err := providerPath("subscriptions/s/resourceGroups/rg/ ", "metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Insights/metrics"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
