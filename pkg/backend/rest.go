package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const restPath = "/rest/v1/"

const (
	acceptObject         = "application/vnd.pgrst.object+json"
	preferRepresentation = "return=representation"
	preferMerge          = "resolution=merge-duplicates,return=representation"
)

type Filter struct {
	Column string
	Value  string
}

// Query describes a row select: equality filters, one ordering column, optional limit.
// Single asks for exactly one row decoded as an object instead of an array.
type Query struct {
	Table     string
	Columns   string
	Eq        []Filter
	OrderBy   string
	Ascending bool
	Limit     int
	Single    bool
}

func (q Query) values() url.Values {
	v := url.Values{}
	cols := q.Columns
	if cols == "" {
		cols = "*"
	}
	v.Set("select", cols)
	for _, f := range q.Eq {
		v.Add(f.Column, "eq."+f.Value)
	}
	if q.OrderBy != "" {
		dir := "desc"
		if q.Ascending {
			dir = "asc"
		}
		v.Set("order", q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (c *Client) Select(ctx context.Context, token string, q Query, dst interface{}) error {
	headers := map[string]string{}
	if q.Single {
		headers["Accept"] = acceptObject
	}
	return c.do(ctx, request{
		op:      "rest.select." + q.Table,
		method:  http.MethodGet,
		path:    restPath + q.Table,
		query:   q.values(),
		token:   token,
		headers: headers,
	}, dst)
}

// Insert creates one row and decodes the stored representation into dst.
func (c *Client) Insert(ctx context.Context, token, table string, row, dst interface{}) error {
	return c.do(ctx, request{
		op:     "rest.insert." + table,
		method: http.MethodPost,
		path:   restPath + table,
		token:  token,
		headers: map[string]string{
			"Prefer": preferRepresentation,
			"Accept": acceptObject,
		},
		body: row,
	}, dst)
}

// Upsert inserts row or merges it into the existing row with the same onConflict key.
func (c *Client) Upsert(ctx context.Context, token, table, onConflict string, row, dst interface{}) error {
	return c.do(ctx, request{
		op:     "rest.upsert." + table,
		method: http.MethodPost,
		path:   restPath + table,
		query:  url.Values{"on_conflict": {onConflict}},
		token:  token,
		headers: map[string]string{
			"Prefer": preferMerge,
			"Accept": acceptObject,
		},
		body: row,
	}, dst)
}
