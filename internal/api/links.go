package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/bikemap/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/style>; rel="style"`,
		`</api/v1/feed>; rel="feed"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/style": {
		`</api/v1/filters>; rel="filters"`,
		`</api/v1/feed/data>; rel="source"`,
	},
	"/api/v1/feed": {
		`</api/v1/feed/data>; rel="data"`,
		`</api/v1/feed/features>; rel="features"`,
		`</api/v1/feed/files>; rel="files"`,
		`</api/v1/stats>; rel="stats"`,
	},
	"/api/v1/feed/files": {
		`</api/v1/feed>; rel="feed"`,
	},
	"/api/v1/sessions/{session}/nodes/{id}": {
		`</api/v1/filters>; rel="filters"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
		`</api/v1/stats>; rel="stats"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link
// headers: static links per operation, a self link on item endpoints,
// actions offered by an [humastar.Actor] body and pagination links.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if a, ok := v.(humastar.Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		if p, ok := v.(humastar.Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		return v, nil
	}
}
