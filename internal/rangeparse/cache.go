// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rangeparse

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/labref/pkg/types"
)

// Cached memoizes Extract results. Catalogs repeat the same range strings
// across age groups and categories. Safe for concurrent use.
type Cached struct {
	cache *lru.Cache[string, types.ParsedRange]
}

// NewCached returns an extractor holding up to size results.
func NewCached(size int) (*Cached, error) {
	c, err := lru.New[string, types.ParsedRange](size)
	if err != nil {
		return nil, fmt.Errorf("creating extraction cache: %w", err)
	}
	return &Cached{cache: c}, nil
}

// New returns a Cached extractor when size is positive and Default otherwise.
func New(size int) (Extractor, error) {
	if size <= 0 {
		return Default, nil
	}
	return NewCached(size)
}

// Extract returns the cached result for raw, computing it on a miss.
// The returned bounds are copies; callers may keep or modify them.
func (c *Cached) Extract(raw string) types.ParsedRange {
	if pr, ok := c.cache.Get(raw); ok {
		return clone(pr)
	}
	pr := Extract(raw)
	c.cache.Add(raw, pr)
	return clone(pr)
}

// Len reports the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func clone(pr types.ParsedRange) types.ParsedRange {
	if pr.Low != nil {
		pr.Low = ptr(*pr.Low)
	}
	if pr.High != nil {
		pr.High = ptr(*pr.High)
	}
	return pr
}
