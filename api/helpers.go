package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/admin"
)

const dateLayout = "2006-01-02"

// mapError maps domain errors to HTTP responses. Authorization failures
// become 403, missing or foreign records 404, and validation failures a
// 422 JSON body.
func mapError(ctx forge.Context, err error) error {
	if err == nil {
		return nil
	}
	switch bastion.StatusCode(err) {
	case http.StatusForbidden:
		return forge.Forbidden(err.Error())
	case http.StatusNotFound:
		if errors.Is(err, bastion.ErrCrossTenant) {
			return forge.NotFound("not found")
		}
		return forge.NotFound(err.Error())
	case http.StatusUnprocessableEntity:
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	default:
		return err
	}
}

// guarded runs h behind the Forge middleware mw.
func guarded[Req, Resp any](mw forge.Middleware, h func(forge.Context, *Req) (*Resp, error)) func(forge.Context, *Req) (*Resp, error) {
	return func(ctx forge.Context, req *Req) (*Resp, error) {
		var resp *Resp
		err := mw(func(ctx forge.Context) error {
			var herr error
			resp, herr = h(ctx, req)
			return herr
		})(ctx)
		return resp, err
	}
}

// pagination converts page/per_page query values into a limit and offset.
func pagination(page, perPage int) (limit, offset int) {
	if perPage <= 0 || perPage > admin.MaxPageSize {
		perPage = admin.DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func pageMeta(total int64, limit, offset int) PageMeta {
	last := int((total + int64(limit) - 1) / int64(limit))
	if last < 1 {
		last = 1
	}
	return PageMeta{
		Total:       total,
		PerPage:     limit,
		CurrentPage: offset/limit + 1,
		LastPage:    last,
	}
}

// dateRange parses inclusive YYYY-MM-DD bounds. Empty values are nil.
func dateRange(from, to string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: created_from must be YYYY-MM-DD", bastion.ErrValidation)
		}
		start = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: created_to must be YYYY-MM-DD", bastion.ErrValidation)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("%w: created_to must not precede created_from", bastion.ErrValidation)
	}
	return start, end, nil
}
