package humastar

import "fmt"

// Action is a state-dependent hypermedia action, emitted as an RFC 8288
// Link header with method and title parameters:
//
//	</api/v1/sessions/42/all>; rel="check-all"; method="POST"; title="Show every facility"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies that offer actions depending on
// their state.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// ActionDef is an action template whose Pattern has one %s for the
// resource id.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// For returns the concrete action for id.
func (d ActionDef) For(id string) Action {
	return Action{Rel: d.Rel, Href: fmt.Sprintf(d.Pattern, id), Method: d.Method, Title: d.Title}
}
