// Package middleware decorates a ports.RunStore with at-rest protections.
package middleware

import "github.com/tripmazer/wayfarer/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain wraps store with mws. The first middleware is the outermost, so it
// sees a result first on Save and last on Load.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
