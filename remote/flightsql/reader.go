package flightsql

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/flight/flightsql"

	"github.com/hugr-lab/remote-scan/scan"
)

// endpointReader reads the endpoints of a FlightInfo one after another.
type endpointReader struct {
	refCount  atomic.Int64
	ctx       context.Context
	client    *flightsql.Client
	endpoints []*flight.FlightEndpoint
	schema    *arrow.Schema
	current   *flight.Reader
	err       error
}

var _ array.RecordReader = (*endpointReader)(nil)

func newEndpointReader(ctx context.Context, client *flightsql.Client, endpoints []*flight.FlightEndpoint, schema *arrow.Schema) (*endpointReader, error) {
	r := &endpointReader{
		ctx:       ctx,
		client:    client,
		endpoints: endpoints,
		schema:    schema,
	}
	r.refCount.Store(1)

	if schema == nil {
		if len(endpoints) == 0 {
			return nil, errors.New("flightsql: result has neither schema nor endpoints")
		}
		if !r.open() {
			return nil, r.err
		}
		r.schema = r.current.Schema()
	}
	return r, nil
}

func (r *endpointReader) Schema() *arrow.Schema { return r.schema }
func (r *endpointReader) Err() error            { return r.err }

func (r *endpointReader) RecordBatch() arrow.RecordBatch {
	if r.current == nil {
		return nil
	}
	return r.current.RecordBatch()
}

func (r *endpointReader) Record() arrow.RecordBatch { return r.RecordBatch() }

func (r *endpointReader) Retain() { r.refCount.Add(1) }

func (r *endpointReader) Release() {
	if r.refCount.Add(-1) == 0 {
		r.closeCurrent()
		r.endpoints = nil
	}
}

func (r *endpointReader) Next() bool {
	for r.err == nil {
		if r.current == nil && !r.open() {
			return false
		}
		if r.current.Next() {
			return true
		}
		if err := r.current.Err(); err != nil {
			r.err = remoteError(scan.OpExecuteQuery, err)
		}
		r.closeCurrent()
	}
	return false
}

// open starts reading the next endpoint. It returns false when no endpoint
// is left or the request failed.
func (r *endpointReader) open() bool {
	if len(r.endpoints) == 0 {
		return false
	}
	ep := r.endpoints[0]
	r.endpoints = r.endpoints[1:]

	rdr, err := r.client.DoGet(r.ctx, ep.GetTicket())
	if err != nil {
		r.err = remoteError(scan.OpExecuteQuery, err)
		return false
	}
	r.current = rdr
	return true
}

func (r *endpointReader) closeCurrent() {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
}
