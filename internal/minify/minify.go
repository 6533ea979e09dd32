// Package minify provides the CSS minification collaborator used to compare
// raw stylesheet sources with the generator's combined output.
package minify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	tdminify "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

const mediaTypeCSS = "text/css"

// Func transforms CSS source text into its minified form. Implementations must
// be deterministic for a given input.
type Func func(src string) (string, error)

// Minifier minifies CSS and memoises results by content hash, which keeps
// repeated verification cycles in watch mode cheap.
type Minifier struct {
	m     *tdminify.M
	cache *gocache.Cache
}

// New returns a Minifier whose memo entries expire after ttl.
func New(ttl time.Duration) *Minifier {
	m := tdminify.New()
	m.AddFunc(mediaTypeCSS, css.Minify)
	return &Minifier{
		m:     m,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// CSS returns the minified form of src.
func (mn *Minifier) CSS(src string) (string, error) {
	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])
	if v, ok := mn.cache.Get(key); ok {
		return v.(string), nil
	}
	out, err := mn.m.String(mediaTypeCSS, src)
	if err != nil {
		return "", fmt.Errorf("minify css: %w", err)
	}
	mn.cache.SetDefault(key, out)
	return out, nil
}

// Cached returns the number of memoised results.
func (mn *Minifier) Cached() int { return mn.cache.ItemCount() }

var defaultMinifier = New(10 * time.Minute)

// CSS minifies src with the package default Minifier.
func CSS(src string) (string, error) {
	return defaultMinifier.CSS(src)
}
