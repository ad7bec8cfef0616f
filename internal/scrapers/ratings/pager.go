package ratings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_pager_walk      = "pager.walk"
	report_pager_max_pages = "pager.max-pages"
)

var pageCounter, _ = meter.Int64Counter(
	"ratings.pager.pages",
	metric.WithDescription("connection pages requested"),
)

// Node is anything that can be deduplicated across pages.
type Node interface {
	// NodeID returns the remote id of the node, nodes with an empty id are
	// never deduplicated.
	NodeID() string
}

// PageRequest describes a walk over a connection shaped like
// `{pageInfo: {hasNextPage, endCursor}, edges: [{node}]}`.
type PageRequest struct {
	Name      string
	Query     string
	Variables map[string]any
	// Path is the list of keys leading from `data` to the connection,
	// ex. `newSearch`, `teachers`.
	Path []string
	// CursorVar is the variable the end cursor is passed in, defaults to `after`.
	CursorVar string
	// PageSizeVar is the variable the page size is passed in, defaults to `first`.
	PageSizeVar string
	PageSize    int
	// MaxPages is a hard cap on the amount of requests made, regardless of
	// what the remote says about further pages.
	MaxPages int
	// Pacing is waited between two consecutive page requests.
	Pacing time.Duration
}

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type connection[T any] struct {
	PageInfo pageInfo `json:"pageInfo"`
	Edges    []struct {
		Node *T `json:"node"`
	} `json:"edges"`
}

// lookupConnection follows path through data, ok is false when any of the
// objects on the way is missing or null.
func lookupConnection[T any](data json.RawMessage, path []string) (conn connection[T], ok bool, err error) {
	current := data
	for _, key := range path {
		if isNull(current) {
			return conn, false, nil
		}
		var object map[string]json.RawMessage
		err = json.Unmarshal(current, &object)
		if err != nil {
			return conn, false, fmt.Errorf("decode %s: %w", key, err)
		}
		current = object[key]
	}
	if isNull(current) {
		return conn, false, nil
	}
	err = json.Unmarshal(current, &conn)
	if err != nil {
		return conn, false, fmt.Errorf("decode connection: %w", err)
	}
	return conn, true, nil
}

// Walk visits every node of a connection, page after page, starting from
// the first page. The walk ends when the remote reports no further pages,
// when MaxPages requests were made, or when visit returns an error
// (ErrStopWalk ends it without one). Nodes already seen in an earlier page
// are not visited again.
//
// Errors wrap either ErrRemoteTransport or ErrRemoteSchema, the nodes
// visited until then stay valid.
func Walk[T Node](ctx context.Context, c *Client, req PageRequest, visit func(T) error) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("walk:%s", req.Name))
	defer span.End()

	cursorVar := req.CursorVar
	if cursorVar == "" {
		cursorVar = "after"
	}
	pageSizeVar := req.PageSizeVar
	if pageSizeVar == "" {
		pageSizeVar = "first"
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	seen := make(map[string]struct{})
	var after *string
	pages := 0
	defer func() {
		span.SetAttributes(attribute.Int("pages", pages), attribute.Int("nodes", len(seen)))
	}()

	for pages < maxPages {
		if pages > 0 {
			err := c.clock.Sleep(ctx, req.Pacing)
			if err != nil {
				return transportError(req.Name, "pacing", err)
			}
		}

		variables := maps.Clone(req.Variables)
		if variables == nil {
			variables = map[string]any{}
		}
		if req.PageSize > 0 {
			variables[pageSizeVar] = req.PageSize
		}
		if after != nil {
			variables[cursorVar] = *after
		} else {
			variables[cursorVar] = nil
		}

		var data json.RawMessage
		err := graphqlQuery(ctx, c, req.Name, req.Query, variables, &data)
		pages++
		pageCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", req.Name)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "page request failed")
			c.tel.ReportWarning(report_pager_walk, err, req.Name, pages)
			return err
		}

		conn, ok, err := lookupConnection[T](data, req.Path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "malformed connection")
			return transportError(req.Name, "connection", err)
		}
		if !ok {
			return nil
		}

		for _, edge := range conn.Edges {
			if edge.Node == nil {
				continue
			}
			node := *edge.Node
			if id := node.NodeID(); id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			err = visit(node)
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			if err != nil {
				return err
			}
		}

		if !conn.PageInfo.HasNextPage {
			return nil
		}
		if conn.PageInfo.EndCursor == nil || *conn.PageInfo.EndCursor == "" {
			c.tel.ReportWarning(report_pager_walk, "next page without a cursor", req.Name, pages)
			return nil
		}
		after = conn.PageInfo.EndCursor
	}

	c.tel.ReportWarning(report_pager_max_pages, req.Name, maxPages)
	return nil
}

// Collect walks a whole connection and returns its nodes in the order they
// were received, along with the error that ended the walk if any.
func Collect[T Node](ctx context.Context, c *Client, req PageRequest) ([]T, error) {
	var out []T
	err := Walk(ctx, c, req, func(node T) error {
		out = append(out, node)
		return nil
	})
	return out, err
}
