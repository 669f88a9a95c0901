// Package pager holds the incremental pagination state behind session lists.
//
// Every fetch is issued under an epoch. Changing the filter or page size starts
// a new epoch, and results tagged with an older epoch are dropped on arrival.
package pager

import (
	"context"
	"fmt"

	"github.com/allysonai/allyson/pkg/domain"
)

// DefaultThreshold is the remaining scroll distance, in rows, at which the next
// page is requested.
const DefaultThreshold = 3

// Request identifies one page fetch.
type Request struct {
	Epoch  uint64
	Page   int
	Limit  int
	Filter domain.StatusFilter
}

// Pager accumulates pages of sessions for one filter epoch at a time.
type Pager struct {
	epoch    uint64
	page     int
	pageSize int
	filter   domain.StatusFilter
	items    []domain.Session
	hasMore  bool
	loading  bool
}

// New returns a pager that has not issued any fetch yet.
func New(pageSize int, filter domain.StatusFilter) Pager {
	if pageSize < 1 {
		pageSize = 1
	}
	return Pager{
		page:     1,
		pageSize: pageSize,
		filter:   filter,
		hasMore:  true,
	}
}

// Reset starts a new epoch and returns the request for its first page.
func (p *Pager) Reset() Request {
	p.epoch++
	p.page = 1
	p.items = nil
	p.hasMore = true
	p.loading = true
	return p.request()
}

// SetFilter switches the status filter. It reports false when f is already active.
func (p *Pager) SetFilter(f domain.StatusFilter) (Request, bool) {
	if f == p.filter {
		return Request{}, false
	}
	p.filter = f
	return p.Reset(), true
}

// SetPageSize switches the page size. It reports false when n is unchanged or invalid.
func (p *Pager) SetPageSize(n int) (Request, bool) {
	if n < 1 || n == p.pageSize {
		return Request{}, false
	}
	p.pageSize = n
	return p.Reset(), true
}

// Next returns the request for the following page when the viewer is within
// the threshold of the bottom, nothing is in flight and more pages exist.
func (p *Pager) Next(remaining int) (Request, bool) {
	if p.loading || !p.hasMore || remaining > DefaultThreshold {
		return Request{}, false
	}
	p.loading = true
	return p.request(), true
}

// Apply records a fetched page. Results from a previous epoch are discarded
// and Apply reports false.
func (p *Pager) Apply(req Request, sessions []domain.Session) bool {
	if req.Epoch != p.epoch {
		return false
	}
	p.loading = false
	p.items = append(p.items, sessions...)
	if len(sessions) < p.pageSize {
		p.hasMore = false
	}
	p.page++
	return true
}

// Fail clears the in-flight flag after a failed fetch. The list, hasMore and
// the page number are left as they were so the same page is requested again.
func (p *Pager) Fail(req Request) bool {
	if req.Epoch != p.epoch {
		return false
	}
	p.loading = false
	return true
}

func (p *Pager) request() Request {
	return Request{Epoch: p.epoch, Page: p.page, Limit: p.pageSize, Filter: p.filter}
}

// Items returns the sessions accumulated in the current epoch.
func (p Pager) Items() []domain.Session { return p.items }

// Len returns the number of accumulated sessions.
func (p Pager) Len() int { return len(p.items) }

// HasMore reports whether another page may exist.
func (p Pager) HasMore() bool { return p.hasMore }

// Loading reports whether a fetch is in flight.
func (p Pager) Loading() bool { return p.loading }

// Page returns the number of the next page to request.
func (p Pager) Page() int { return p.page }

// PageSize returns the current page size.
func (p Pager) PageSize() int { return p.pageSize }

// Filter returns the current status filter.
func (p Pager) Filter() domain.StatusFilter { return p.filter }

// Epoch returns the current epoch.
func (p Pager) Epoch() uint64 { return p.epoch }

// FetchFunc loads the page described by req.
type FetchFunc func(ctx context.Context, req Request) ([]domain.Session, error)

// Collect pages through the listing from page 1 until the server runs out of
// sessions or max sessions have been gathered (max <= 0 means no limit).
func Collect(ctx context.Context, p *Pager, fetch FetchFunc, max int) ([]domain.Session, error) {
	req := p.Reset()
	for {
		sessions, err := fetch(ctx, req)
		if err != nil {
			p.Fail(req)
			return p.Items(), fmt.Errorf("fetch page %d: %w", req.Page, err)
		}
		p.Apply(req, sessions)
		if max > 0 && p.Len() >= max {
			return p.Items()[:max], nil
		}
		next, ok := p.Next(0)
		if !ok {
			return p.Items(), nil
		}
		req = next
	}
}
