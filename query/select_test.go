package query

import (
	"testing"
)

func TestTableRefString(t *testing.T) {
	tests := []struct {
		ref      TableRef
		expected string
	}{
		{TableRef{Name: "t"}, `"t"`},
		{TableRef{Schema: "public", Name: "orders"}, `"public"."orders"`},
		{TableRef{Catalog: "db", Schema: "s", Name: "user"}, `"db"."s"."user"`},
		{TableRef{Catalog: "my db", Name: `we"ird`}, `"my db"."we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.ref.String(); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestSelectString(t *testing.T) {
	table := TableRef{Catalog: "db", Schema: "main", Name: "events"}

	tests := []struct {
		name     string
		sel      Select
		expected string
	}{
		{
			name:     "table scan",
			sel:      Select{Table: table},
			expected: `SELECT * FROM "db"."main"."events"`,
		},
		{
			name:     "projection and where",
			sel:      Select{Table: table, Projection: `"id", "kind"`, Where: `"id" > 100`},
			expected: `SELECT "id", "kind" FROM "db"."main"."events" WHERE "id" > 100`,
		},
		{
			name:     "limit and offset",
			sel:      Select{Table: table, Where: `"kind" = 'click'`, Limit: 10, Offset: 5},
			expected: `SELECT * FROM "db"."main"."events" WHERE "kind" = 'click' LIMIT 10 OFFSET 5`,
		},
		{
			name:     "count",
			sel:      Select{Table: table, Projection: `"id"`, Where: `"id" > 1`, Count: &CountSpec{Alias: "count_star()"}},
			expected: `SELECT COUNT(*) AS "count_star()" FROM "db"."main"."events" WHERE "id" > 1`,
		},
		{
			name:     "count after limit",
			sel:      Select{Table: table, Limit: 3, Count: &CountSpec{Column: "id"}},
			expected: `SELECT COUNT("id") FROM (SELECT * FROM "db"."main"."events" LIMIT 3) AS "pushdown_count"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.String(); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
