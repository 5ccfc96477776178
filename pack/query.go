package pack

import (
	"strconv"
	"strings"

	"github.com/ije/gox/utils"
)

// ResolveResult is the outcome of a successful URL resolution: the target
// module plus the preserved `?query` and `#hash` parts of the original URL,
// and the original unaliased base when the alias table rewrote the path.
type ResolveResult struct {
	Module *Module
	Query  string
	Hash   string
	Alias  string
}

// QueryValueKind discriminates the outcome of a ResolveQuery lookup.
type QueryValueKind uint8

const (
	// QueryNone means the name is absent from the query.
	QueryNone QueryValueKind = iota
	// QueryFlag means the name is present without a numeric value
	// (`?__inline`, `?__inline=true`, `?__inline=yes`, `?__inline=on`).
	QueryFlag
	// QueryBytes means the name carries a numeric value (`?__inline=100`).
	QueryBytes
)

// QueryValue is the discriminated value of a url query marker.
type QueryValue struct {
	Kind  QueryValueKind
	Bytes int64
}

// ResolveQuery looks up a marker in the result's preserved query string and
// strips the consumed pair from it, so markers never leak into emitted urls.
func ResolveQuery(res *ResolveResult, name string) QueryValue {
	if res.Query == "" {
		return QueryValue{}
	}
	pairs := strings.Split(strings.TrimPrefix(res.Query, "?"), "&")
	kept := make([]string, 0, len(pairs))
	value := QueryValue{}
	for _, pair := range pairs {
		key, v := utils.SplitByFirstByte(pair, '=')
		if key != name || value.Kind != QueryNone {
			kept = append(kept, pair)
			continue
		}
		switch v {
		case "", "true", "yes", "on":
			value = QueryValue{Kind: QueryFlag}
		default:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				value = QueryValue{Kind: QueryFlag}
			} else {
				value = QueryValue{Kind: QueryBytes, Bytes: n}
			}
		}
	}
	if value.Kind != QueryNone {
		if len(kept) == 0 {
			res.Query = ""
		} else {
			res.Query = "?" + strings.Join(kept, "&")
		}
	}
	return value
}

// splitUrl splits a raw url into its path, query and hash parts.
func splitUrl(rawUrl string) (pathname string, query string, hash string) {
	pathname = rawUrl
	if strings.ContainsRune(pathname, '#') {
		pathname, hash = utils.SplitByFirstByte(pathname, '#')
		hash = "#" + hash
	}
	if strings.ContainsRune(pathname, '?') {
		pathname, query = utils.SplitByFirstByte(pathname, '?')
		query = "?" + query
	}
	return
}
