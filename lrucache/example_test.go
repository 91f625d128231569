/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache_test

import (
	"fmt"
	"time"

	"github.com/acronis/go-recordcache/lrucache"
)

func Example() {
	cache, err := lrucache.NewWithOpts[int64, string](2, nil, lrucache.Options{DefaultTTL: time.Minute})
	if err != nil {
		panic(err)
	}

	cache.Add(1, "John Doe")
	cache.Add(2, "Jane Smith")
	cache.Get(1)
	cache.Add(3, "Alice Johnson") // evicts 2

	_, found := cache.Get(2)
	fmt.Printf("found: %v\n", found)
	fmt.Printf("stats: %+v\n", cache.Stats())

	// Output:
	// found: false
	// stats: {Hits:1 Misses:1 Size:2 MaxSize:2 TTLSeconds:60}
}
