package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cuemby/ovconverge/pkg/types"
)

// collection is the REST Collection bound to one kind
type collection struct {
	api  *Client
	kind Kind
}

func (c *collection) Kind() Kind {
	return c.kind
}

func (c *collection) GetByName(ctx context.Context, name string) (types.Record, error) {
	members, err := c.GetBy(ctx, "name", name)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members[0], nil
}

func (c *collection) GetByURI(ctx context.Context, uri string) (types.Record, error) {
	rec, err := c.api.Do(ctx, http.MethodGet, uri, nil)
	if IsNotFound(err) {
		return nil, nil
	}
	return rec, err
}

func (c *collection) GetAll(ctx context.Context) ([]types.Record, error) {
	return c.list(ctx, c.kind.Path)
}

// GetBy filters server side and re-checks the field locally, since the
// controller matches filters case-insensitively.
func (c *collection) GetBy(ctx context.Context, field, value string) ([]types.Record, error) {
	filter := fmt.Sprintf("\"%s='%s'\"", field, strings.ReplaceAll(value, "'", "''"))
	members, err := c.list(ctx, c.kind.Path+"?filter="+url.QueryEscape(filter))
	if err != nil {
		return nil, err
	}
	return FilterMembers(members, field, value), nil
}

// list walks every page of a collection
func (c *collection) list(ctx context.Context, uri string) ([]types.Record, error) {
	var members []types.Record
	seen := map[string]bool{}
	for uri != "" && !seen[uri] {
		seen[uri] = true
		page, err := c.api.Do(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, err
		}
		list, _ := types.AsList(page["members"])
		for _, m := range list {
			if rec, ok := types.AsRecord(m); ok {
				members = append(members, rec)
			}
		}
		uri = types.String(page, "nextPageUri")
	}
	return members, nil
}

func (c *collection) Create(ctx context.Context, body types.Record) (types.Record, error) {
	return c.api.Do(ctx, http.MethodPost, c.kind.Path, body)
}

func (c *collection) Update(ctx context.Context, body types.Record) (types.Record, error) {
	uri := types.String(body, "uri")
	if uri == "" {
		return nil, NewValueError("cannot update %s without a uri", c.kind.Label)
	}
	return c.api.Do(ctx, http.MethodPut, uri, body)
}

func (c *collection) Delete(ctx context.Context, resource types.Record) error {
	uri := types.String(resource, "uri")
	if uri == "" {
		return NewValueError("cannot delete %s without a uri", c.kind.Label)
	}
	_, err := c.api.Do(ctx, http.MethodDelete, uri, nil)
	return err
}

func (c *collection) Patch(ctx context.Context, uri, op, path string, value interface{}) (types.Record, error) {
	body := types.List{types.Record{"op": op, "path": path, "value": value}}
	return c.api.Do(ctx, http.MethodPatch, uri, body)
}

// FilterMembers keeps the records whose field equals value
func FilterMembers(members []types.Record, field, value string) []types.Record {
	var out []types.Record
	for _, m := range members {
		if v, ok := types.Lookup(m, field); ok && fmt.Sprint(v) == value {
			out = append(out, m)
		}
	}
	return out
}
