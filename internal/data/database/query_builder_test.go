package database

import (
	"reflect"
	"testing"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name      string
		opts      *ListQueryOptions
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "basic select",
			opts:      NewListQueryOptions("ce_activity"),
			wantQuery: `SELECT * FROM "ce_activity"`,
			wantArgs:  []any{},
		},
		{
			name:      "columns and qualified table",
			opts:      NewListQueryOptions("public.ce_activity", WithColumns("id", "ce_activity.status")),
			wantQuery: `SELECT "id", "ce_activity"."status" FROM "public"."ce_activity"`,
			wantArgs:  []any{},
		},
		{
			name: "count only ignores ordering and pagination",
			opts: NewListQueryOptions("ce_activity",
				WithCountOnly(),
				WithCondition(WhereCond("is_last", Equal, true)),
				WithOrderBy("executed_at", "DESC"),
				WithLimit(10),
			),
			wantQuery: `SELECT COUNT(*) FROM "ce_activity" WHERE "is_last" = $1`,
			wantArgs:  []any{true},
		},
		{
			name: "conditions are numbered in order",
			opts: NewListQueryOptions("ce_activity",
				WithCondition(WhereCond("entity_id", Equal, "p1")),
				WithCondition(WhereCond("execution_time_ms", GreaterThanOrEqual, 100)),
				WithCondition(WhereCond("status", In, []string{"FAILED", "CANCELED"})),
			),
			wantQuery: `SELECT * FROM "ce_activity" WHERE "entity_id" = $1 AND "execution_time_ms" >= $2 AND "status" IN ($3, $4)`,
			wantArgs:  []any{"p1", 100, "FAILED", "CANCELED"},
		},
		{
			name: "null checks take no argument",
			opts: NewListQueryOptions("ce_activity",
				WithCondition(WhereCond("analysis_id", IsNotNull, nil)),
				WithCondition(WhereCond("entity_id", Equal, "p1")),
			),
			wantQuery: `SELECT * FROM "ce_activity" WHERE "analysis_id" IS NOT NULL AND "entity_id" = $1`,
			wantArgs:  []any{"p1"},
		},
		{
			name: "empty in list and empty field are skipped",
			opts: NewListQueryOptions("ce_activity",
				WithCondition(WhereCond("status", In, []string{})),
				WithCondition(WhereCond("", Equal, "x")),
			),
			wantQuery: `SELECT * FROM "ce_activity"`,
			wantArgs:  []any{},
		},
		{
			name: "multi-column order with pagination",
			opts: NewListQueryOptions("ce_activity",
				WithCondition(WhereCond("job_type", Equal, "REPORT")),
				WithOrderBy("executed_at", "desc"),
				WithOrderBy("id", "sideways"),
				WithLimit(20),
				WithOffset(40),
			),
			wantQuery: `SELECT * FROM "ce_activity" WHERE "job_type" = $1 ORDER BY "executed_at" DESC, "id" LIMIT $2 OFFSET $3`,
			wantArgs:  []any{"REPORT", 20, 40},
		},
		{
			name:      "zero limit is honoured and negative offset ignored",
			opts:      NewListQueryOptions("ce_activity", WithLimit(0), WithOffset(-5)),
			wantQuery: `SELECT * FROM "ce_activity" LIMIT $1`,
			wantArgs:  []any{0},
		},
		{
			name:      "identifier injection is quoted",
			opts:      NewListQueryOptions("ce_activity", WithOrderBy(`id"; DROP TABLE x; --`, "ASC")),
			wantQuery: `SELECT * FROM "ce_activity" ORDER BY "id""; DROP TABLE x; --" ASC`,
			wantArgs:  []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := BuildListQuery(tt.opts)
			if query != tt.wantQuery {
				t.Errorf("query = %q, want %q", query, tt.wantQuery)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildListQuery_NilOptions(t *testing.T) {
	query, args := BuildListQuery(nil)
	if query != "" || args != nil {
		t.Errorf("BuildListQuery(nil) = %q, %v", query, args)
	}
}
