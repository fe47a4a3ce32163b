package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient reads back what the planner wrote. The bucket and token are
// created by the container's setup mode.
type InfluxClient struct {
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a query client. It assumes the server is already
// running and reachable.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// Count returns the number of records of a measurement field tagged with
// caseName over the last day.
func (c *InfluxClient) Count(ctx context.Context, measurement, field, caseName string) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start: -1d, stop: 2d)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.case == %q)`,
		c.bucket, measurement, field, caseName)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
