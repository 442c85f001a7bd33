package udemy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"coursemetrics/lib/pagestore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrRemoteFetch means a page request failed (transport error or non-2xx
// status). There is no automatic retry; rerunning the pipeline resumes from
// the cached pages.
var ErrRemoteFetch = errors.New("remote fetch failed")

// page is the wire shape of one paginated response. A missing `next` key
// and `next: null` both decode to nil and terminate the walk; a missing
// `results` key is an empty page, not an error.
type page struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// FetchAll extracts every resource in declaration order.
func (c *Client) FetchAll(ctx context.Context) error {
	for _, res := range Resources {
		if _, err := c.FetchDataset(ctx, res); err != nil {
			return fmt.Errorf("fetch %s: %w", res.Name, err)
		}
	}
	return nil
}

// FetchDataset walks a resource's pages cache-first, then writes the
// accumulated records as the resource's consolidated dataset. Pages already
// committed to the store are never refetched. On any error the consolidated
// dataset is not written, so a rerun reprocesses the resource from cache.
func (c *Client) FetchDataset(ctx context.Context, res Resource) ([]json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "fetch:"+res.Name)
	defer span.End()

	records := []json.RawMessage{}
	next := res.Endpoint
	pageNo := 0
	fetched := 0

	for {
		pageNo++

		var body []byte
		var err error
		if c.store.Has(res.Name, pageNo) {
			body, err = c.store.Load(res.Name, pageNo)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to load cached page")
				return nil, err
			}
			slog.DebugContext(
				ctx, "page loaded from cache",
				"resource", res.Name,
				"page", pageNo,
			)
		} else {
			body, err = c.fetchPage(ctx, next, pageNo == 1)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch page")
				return nil, err
			}
			if err := c.store.Store(res.Name, pageNo, body); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to persist page")
				return nil, err
			}
			fetched++
			if c.throttle > 0 {
				time.Sleep(c.throttle)
			}
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", pagestore.ErrCorruptPage, res.Name, pageNo, err)
		}
		records = append(records, p.Results...)

		if p.Next == nil || *p.Next == "" {
			break
		}
		next = *p.Next
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	if err := pagestore.WriteAtomic(c.store.DatasetPath(res.Name), data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write consolidated dataset")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("custom.pages", pageNo),
		attribute.Int("custom.records", len(records)),
	)
	slog.InfoContext(
		ctx, "resource consolidated",
		"resource", res.Name,
		"pages", pageNo,
		"fetched", fetched,
		"cached", pageNo-fetched,
		"records", len(records),
	)
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, url string, first bool) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if first {
		// later pages follow the cursor url verbatim, which already
		// carries page and page_size params
		req.SetQueryParam("page_size", strconv.Itoa(c.pageSize))
	}

	res, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetch, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: GET %s returned %s", ErrRemoteFetch, url, res.Status())
	}
	return res.Body(), nil
}
