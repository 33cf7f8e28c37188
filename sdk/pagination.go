package sdk

import (
	"context"
	"sync"
)

// PageSize is the number of items the server returns for a full page.
const PageSize = 50

// PageFetcher loads one page. Pages are numbered from 1.
type PageFetcher[T any] func(ctx context.Context, page int) ([]T, error)

// PageList accumulates pages of a list endpoint into one collection.
//
// Responses may arrive in any order, so only the first page or the page right
// after the current one is merged; anything else is dropped. Page 1 always
// replaces the collection, which is how a pull to refresh restarts the list.
//
// Example:
//
//	rooms := sdk.NewPageList(func(ctx context.Context, page int) ([]requests.RoomInfo, error) {
//	    return sdk.Do[[]requests.RoomInfo](ctx, provider, requests.RoomList{Page: page})
//	}, func(items []requests.RoomInfo, canLoadMore bool) {
//	    render(items, canLoadMore)
//	})
//	_ = rooms.Refresh(ctx)
//	_ = rooms.LoadMore(ctx)
type PageList[T any] struct {
	// notifyMu keeps change notifications in merge order
	notifyMu sync.Mutex

	mu          sync.Mutex
	items       []T
	currentPage int
	canLoadMore bool

	fetch    PageFetcher[T]
	onChange func(items []T, canLoadMore bool)
	observer Observer
}

// NewPageList creates an empty list. onChange is called with a copy of the whole
// collection after every accepted merge; it may read the list but must not merge.
// Either argument may be nil.
func NewPageList[T any](fetch PageFetcher[T], onChange func(items []T, canLoadMore bool)) *PageList[T] {
	return &PageList[T]{
		fetch:       fetch,
		onChange:    onChange,
		canLoadMore: true,
		observer:    NoopObserver{},
	}
}

// WithObserver reports every merge outcome to observer.
func (l *PageList[T]) WithObserver(observer Observer) *PageList[T] {
	if observer != nil {
		l.observer = observer
	}
	return l
}

// Merge folds one page into the collection and reports whether it was accepted.
func (l *PageList[T]) Merge(items []T, page int) bool {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	switch {
	case page == 1:
		l.items = append(make([]T, 0, len(items)), items...)
	case l.currentPage > 0 && page == l.currentPage+1:
		l.items = append(l.items, items...)
	default:
		l.mu.Unlock()
		l.observer.OnPageMerged(page, false)
		return false
	}
	l.currentPage = page
	l.canLoadMore = len(items) >= PageSize
	snapshot := append([]T(nil), l.items...)
	canLoadMore := l.canLoadMore
	l.mu.Unlock()

	l.observer.OnPageMerged(page, true)
	if l.onChange != nil {
		l.onChange(snapshot, canLoadMore)
	}
	return true
}

// Items returns a copy of the collection.
func (l *PageList[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// CurrentPage returns the last merged page, 0 before the first merge.
func (l *PageList[T]) CurrentPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentPage
}

// CanLoadMore reports whether the last merged page was full.
func (l *PageList[T]) CanLoadMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canLoadMore
}

// NextPage returns the page LoadMore would request.
func (l *PageList[T]) NextPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentPage + 1
}

// Reset empties the list without notifying.
func (l *PageList[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.currentPage = 0
	l.canLoadMore = true
}

// Refresh fetches page 1 and replaces the collection with it.
func (l *PageList[T]) Refresh(ctx context.Context) error {
	return l.load(ctx, 1)
}

// LoadMore fetches the next page when the last one was full.
func (l *PageList[T]) LoadMore(ctx context.Context) error {
	if !l.CanLoadMore() {
		return nil
	}
	return l.load(ctx, l.NextPage())
}

func (l *PageList[T]) load(ctx context.Context, page int) error {
	if l.fetch == nil {
		return nil
	}
	items, err := l.fetch(ctx, page)
	if err != nil {
		return err
	}
	l.Merge(items, page)
	return nil
}
