package cache

import (
	"net/url"
	"slices"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/pkg/hashutil"
	"github.com/rohmanhakim/fetchkit/pkg/urlutil"
)

type KeyParam struct {
	URL             url.URL
	Formats         []fetcher.Format
	OnlyMainContent bool
	IncludeTags     []string
	ExcludeTags     []string
}

// keyDocument is the canonical JSON hashed into a cache key. Field order is
// fixed by the struct; slices are sorted so request order never matters.
type keyDocument struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
}

// DeriveKey hashes the parts of a request that change its result.
func DeriveKey(param KeyParam, algo hashutil.HashAlgo) (string, error) {
	canonical := urlutil.CanonicalizeWithQuery(param.URL)
	return hashutil.HashJSON(keyDocument{
		URL:             canonical.String(),
		Formats:         fetcher.SortedFormats(param.Formats),
		OnlyMainContent: param.OnlyMainContent,
		IncludeTags:     sortedDistinct(param.IncludeTags),
		ExcludeTags:     sortedDistinct(param.ExcludeTags),
	}, algo)
}

func sortedDistinct(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
