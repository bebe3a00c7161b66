package orderbook

import (
	"slices"
	"sort"
)

// priceLadder keeps the buckets of one side ordered by price. prices is
// sorted worst first so the best level sits at the end and removing it after
// a sweep does not shift the slice.
type priceLadder struct {
	prices  []int64
	buckets map[int64]*bucket
	better  func(a, b int64) bool
}

func newPriceLadder(better func(a, b int64) bool) *priceLadder {
	return &priceLadder{
		buckets: make(map[int64]*bucket),
		better:  better,
	}
}

func (l *priceLadder) Len() int {
	return len(l.prices)
}

func (l *priceLadder) get(price int64) *bucket {
	return l.buckets[price]
}

func (l *priceLadder) getOrCreate(price int64) *bucket {
	if b, ok := l.buckets[price]; ok {
		return b
	}
	b := newBucket(price)
	l.buckets[price] = b
	i := l.search(price)
	l.prices = slices.Insert(l.prices, i, price)
	return b
}

func (l *priceLadder) delete(price int64) {
	if _, ok := l.buckets[price]; !ok {
		return
	}
	delete(l.buckets, price)
	i := l.search(price)
	l.prices = slices.Delete(l.prices, i, i+1)
}

// best returns the top of book, or nil when the side is empty.
func (l *priceLadder) best() *bucket {
	if len(l.prices) == 0 {
		return nil
	}
	return l.buckets[l.prices[len(l.prices)-1]]
}

// ascend visits buckets best first until fn returns false. fn must not add
// or remove buckets.
func (l *priceLadder) ascend(fn func(*bucket) bool) {
	for i := len(l.prices) - 1; i >= 0; i-- {
		if !fn(l.buckets[l.prices[i]]) {
			return
		}
	}
}

// search returns the index of price in prices or where it would be
// inserted.
func (l *priceLadder) search(price int64) int {
	return sort.Search(len(l.prices), func(i int) bool {
		return !l.better(price, l.prices[i])
	})
}
