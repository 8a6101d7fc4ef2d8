package remotescan

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/remote-scan/filter"
	"github.com/hugr-lab/remote-scan/query"
	"github.com/hugr-lab/remote-scan/scan"
)

func benchFilters(n int) (filter.Set, filter.Columns) {
	set := make(filter.Set, n)
	cols := make(filter.Columns, n)
	for i := 0; i < n; i++ {
		cols[i] = fmt.Sprintf("col_%d", i)
		switch i % 3 {
		case 0:
			set[i] = &filter.ConstantComparison{Op: filter.CompareGreaterThan, Value: filter.Int(int64(i))}
		case 1:
			set[i] = &filter.InSet{Values: []filter.Value{filter.String("a"), filter.String("b'c"), filter.String("d")}}
		default:
			set[i] = &filter.Or{Children: []filter.Filter{
				&filter.IsNull{},
				&filter.ConstantComparison{Op: filter.CompareEqual, Value: filter.Double(1.5)},
			}}
		}
	}
	return set, cols
}

// BenchmarkCompileFilters benchmarks compiling a filter set to a WHERE clause.
func BenchmarkCompileFilters(b *testing.B) {
	set, cols := benchFilters(30)
	c := filter.NewCompiler(nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		res, err := c.CompileSet(set, cols)
		if err != nil {
			b.Fatalf("CompileSet failed: %v", err)
		}
		_ = res
	}
}

// BenchmarkRewrite benchmarks placing a projection and WHERE clause into
// query text with trailing clauses.
func BenchmarkRewrite(b *testing.B) {
	const q = `SELECT * FROM "sales" s JOIN regions r ON s.region_id = r.id ORDER BY s.id`
	where := `"id" > 10 AND "region" IN ('a', 'b')`

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := query.Rewrite(q, `"id", "region"`, where); err != nil {
			b.Fatalf("Rewrite failed: %v", err)
		}
	}
}

// BenchmarkStream benchmarks streaming a filtered DuckDB table.
func BenchmarkStream(b *testing.B) {
	ctx := context.Background()
	config := Config{Allocator: memory.NewGoAllocator()}
	conn, err := OpenDuckDB(ctx, "", config)
	if err != nil {
		b.Fatalf("OpenDuckDB failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.DB().Exec(`CREATE TABLE events AS
		SELECT i::BIGINT AS id, 'kind_' || (i % 10) AS kind FROM range(100000) t(i)`); err != nil {
		b.Fatalf("Create table failed: %v", err)
	}

	f, err := NewTableScan(conn, query.TableRef{Name: "events"}, config)
	if err != nil {
		b.Fatalf("NewTableScan failed: %v", err)
	}
	defer f.Close()

	gt := &filter.ConstantComparison{Op: filter.CompareGreaterThan, Value: filter.Int(50000)}
	if err := f.UpdatePushdownParameters([]string{"id", "kind"}, filter.Set{0: gt}, scan.KeepLimit, 0); err != nil {
		b.Fatalf("UpdatePushdownParameters failed: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	var rows int64
	for i := 0; i < b.N; i++ {
		s, err := f.Stream(ctx)
		if err != nil {
			b.Fatalf("Stream failed: %v", err)
		}
		for s.Next() {
			rows += s.RecordBatch().NumRows()
		}
		if err := s.Err(); err != nil {
			b.Fatalf("Stream error: %v", err)
		}
		s.Release()
	}

	b.StopTimer()
	b.ReportMetric(float64(rows)/float64(b.N), "rows/op")
}
