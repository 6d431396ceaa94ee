package testmo

import (
	"context"
	"fmt"
)

const (
	FirstPage      = 1   // Testmo pages are 1-based
	DefaultPerPage = 100 // largest page size the API accepts
)

// Page is one page of a Testmo listing.
type Page[T any] struct {
	Page     int  `json:"page"`
	PrevPage *int `json:"prev_page"`
	NextPage *int `json:"next_page"`
	LastPage int  `json:"last_page"`
	PerPage  int  `json:"per_page"`
	Total    int  `json:"total,omitempty"`
	Result   []T  `json:"result"`
}

// PageFunc fetches a single page of a listing.
type PageFunc[T any] func(ctx context.Context, page int) (*Page[T], error)

// CollectPages requests pages starting at FirstPage until a page reports no next_page,
// waiting on pacer between consecutive requests. The first failing page aborts the walk
// and nothing collected so far is returned.
func CollectPages[T any](ctx context.Context, pacer Pacer, fetch PageFunc[T]) ([]T, error) {
	items := make([]T, 0)
	for page := FirstPage; ; page++ {
		p, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		items = append(items, p.Result...)
		if p.NextPage == nil {
			return items, nil
		}
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}
}
