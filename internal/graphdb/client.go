// Package graphdb reaches an external model store over HTTP. The store
// serves the records and schemas of data models and accepts output records:
//
//	GET  /datamodels/{id}/schema
//	GET  /datamodels/{id}/records?offset=&limit=
//	GET  /datamodels/{id}/records/{recordId}
//	POST /datamodels/{id}/records
//
// Client implements the record source and sink of the job executor.
package graphdb

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// DefaultPageSize is the number of records fetched per request.
const DefaultPageSize = 500

// Config configures a Client.
type Config struct {
	URL      string
	Timeout  time.Duration
	PageSize int
}

// Client is an HTTP model store client.
type Client struct {
	http     *resty.Client
	pageSize int
}

type recordPage struct {
	Records []model.Record `json:"records"`
}

type apiError struct {
	Error string `json:"error"`
}

// New creates a client for the store at cfg.URL.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("graphdb: empty URL")
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	h := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})

	if cfg.Timeout > 0 {
		h.SetTimeout(cfg.Timeout)
	}

	return &Client{http: h, pageSize: cfg.PageSize}, nil
}

func (c *Client) request(ctx context.Context, dataModelID model.ID) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(int64(dataModelID), 10))
}

// check turns an unsuccessful response into an error.
func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}

	if !resp.IsError() {
		return nil
	}

	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		msg = e.Error
	}

	return errors.Newf("%s: %s", op, msg)
}

// GetSchema fetches the schema of a data model.
func (c *Client) GetSchema(ctx context.Context, dataModelID model.ID) (*model.Schema, error) {
	var s model.Schema

	resp, err := c.request(ctx, dataModelID).
		SetResult(&s).
		Get("/datamodels/{id}/schema")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, domain.NewUnresolvedReference(model.KindDataModel.String(), int64(dataModelID), "no schema in graph store")
	}

	if err := check(resp, err, "get schema"); err != nil {
		return nil, err
	}

	return &s, nil
}

// GetObjects streams records page by page, or fetches the listed records
// one by one. Records the store does not know are skipped.
func (c *Client) GetObjects(
	ctx context.Context,
	dataModelID model.ID,
	recordIDs []string,
	limit int,
) iter.Seq2[model.Record, error] {
	if len(recordIDs) > 0 {
		return c.selected(ctx, dataModelID, recordIDs, limit)
	}

	return func(yield func(model.Record, error) bool) {
		offset := 0

		for {
			size := c.pageSize
			if limit > 0 {
				size = min(size, limit-offset)
			}

			if size <= 0 {
				return
			}

			var page recordPage

			resp, err := c.request(ctx, dataModelID).
				SetQueryParam("offset", strconv.Itoa(offset)).
				SetQueryParam("limit", strconv.Itoa(size)).
				SetResult(&page).
				Get("/datamodels/{id}/records")
			if err := check(resp, err, "get records"); err != nil {
				yield(model.Record{}, err)
				return
			}

			for _, r := range page.Records {
				if !yield(r, nil) {
					return
				}
			}

			if len(page.Records) < size {
				return
			}

			offset += len(page.Records)
		}
	}
}

func (c *Client) selected(
	ctx context.Context,
	dataModelID model.ID,
	recordIDs []string,
	limit int,
) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		n := 0

		for _, id := range recordIDs {
			if limit > 0 && n >= limit {
				return
			}

			var rec model.Record

			resp, err := c.request(ctx, dataModelID).
				SetPathParam("record", id).
				SetResult(&rec).
				Get("/datamodels/{id}/records/{record}")
			if err == nil && resp.StatusCode() == http.StatusNotFound {
				continue
			}

			if err := check(resp, err, "get record "+id); err != nil {
				yield(model.Record{}, err)
				return
			}

			if !yield(rec, nil) {
				return
			}

			n++
		}
	}
}

// CreateObjects posts records in pages.
func (c *Client) CreateObjects(ctx context.Context, dataModelID model.ID, records []model.Record) error {
	for start := 0; start < len(records); start += c.pageSize {
		page := recordPage{Records: records[start:min(start+c.pageSize, len(records))]}

		resp, err := c.request(ctx, dataModelID).
			SetBody(page).
			Post("/datamodels/{id}/records")
		if err := check(resp, err, "create records"); err != nil {
			return err
		}
	}

	return nil
}
