package humastar

import (
	"strings"
	"testing"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		offset, limit int
		want          []int
	}{
		{0, 2, []int{1, 2}},
		{4, 2, []int{5}},
		{9, 2, []int{}},
		{-1, 0, []int{1}},
	}
	for _, tt := range tests {
		p := Paginate(items, tt.offset, tt.limit)
		if p.Total != 5 || len(p.Data) != len(tt.want) {
			t.Errorf("Paginate(%d, %d): got %+v", tt.offset, tt.limit, p)
			continue
		}
		for i := range tt.want {
			if p.Data[i] != tt.want[i] {
				t.Errorf("Paginate(%d, %d): got %v, want %v", tt.offset, tt.limit, p.Data, tt.want)
			}
		}
	}
}

func TestPaginationLinks(t *testing.T) {
	p := Paginate([]int{1, 2, 3, 4, 5}, 2, 2)
	got := strings.Join(p.PaginationLinks("/items"), "\n")
	for _, want := range []string{
		`</items?offset=0&limit=2>; rel="first"`,
		`</items?offset=0&limit=2>; rel="prev"`,
		`</items?offset=4&limit=2>; rel="next"`,
		`</items?offset=4&limit=2>; rel="last"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in\n%s", want, got)
		}
	}

	last := Paginate([]int{1, 2, 3}, 2, 2)
	if strings.Contains(strings.Join(last.PaginationLinks("/items"), ""), `rel="next"`) {
		t.Error("last page should have no next link")
	}
}

func TestActionLinkHeader(t *testing.T) {
	d := ActionDef{Rel: "delete", Pattern: "/api/v1/sessions/%s", Method: "DELETE", Title: "End session"}
	got := d.For("42").LinkHeader()
	want := `</api/v1/sessions/42>; rel="delete"; method="DELETE"; title="End session"`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got := (Action{Rel: "self", Href: "/x"}).LinkHeader(); got != `</x>; rel="self"` {
		t.Errorf("bare action: got %s", got)
	}
}

func TestSignals(t *testing.T) {
	in := SignalsInput{RawBody: []byte(`{"checked":true,"zoom":12.5,"name":"x"}`)}
	s, err := in.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Bool("checked") || s.Float("zoom") != 12.5 || s.String("name") != "x" {
		t.Errorf("got %v", s)
	}
	if s.Has("missing") || s.Bool("name") {
		t.Error("wrong-typed or missing keys should read as zero")
	}

	empty, err := (&SignalsInput{}).Parse()
	if err != nil || len(empty) != 0 {
		t.Errorf("empty body: %v %v", empty, err)
	}
	if _, err := (&SignalsInput{RawBody: []byte("{")}).Parse(); err == nil {
		t.Error("expected error for bad JSON")
	}
}
