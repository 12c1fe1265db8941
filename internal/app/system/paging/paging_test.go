package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/items", nil)
	p := Parse(r)
	if p.Page != 1 || p.Limit != DefaultLimit {
		t.Errorf("Parse() = %+v, want page=1 limit=%d", p, DefaultLimit)
	}
}

func TestParse_Explicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/items?page=3&limit=50", nil)
	p := Parse(r)
	if p.Page != 3 || p.Limit != 50 {
		t.Errorf("Parse() = %+v, want page=3 limit=50", p)
	}
}

func TestParse_ClampsLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/items?limit=5000", nil)
	p := Parse(r)
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want clamped to %d", p.Limit, MaxLimit)
	}
}

func TestParse_InvalidValues(t *testing.T) {
	tests := []string{
		"/items?page=0",
		"/items?page=-5",
		"/items?page=abc",
		"/items?limit=0",
		"/items?limit=-1",
		"/items?limit=xyz",
	}
	for _, url := range tests {
		r := httptest.NewRequest("GET", url, nil)
		p := Parse(r)
		if p.Page != 1 || p.Limit != DefaultLimit {
			t.Errorf("Parse(%q) = %+v, want defaults", url, p)
		}
	}
}

func TestSkip(t *testing.T) {
	tests := []struct {
		page, limit int
		want        int64
	}{
		{1, 20, 0},
		{2, 20, 20},
		{5, 10, 40},
	}
	for _, tt := range tests {
		p := Params{Page: tt.page, Limit: tt.limit}
		if got := p.Skip(); got != tt.want {
			t.Errorf("Skip(page=%d,limit=%d) = %d, want %d", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestMetaFor(t *testing.T) {
	tests := []struct {
		page, limit int
		total       int64
		wantPages   int
	}{
		{1, 20, 0, 0},
		{1, 20, 20, 1},
		{1, 20, 21, 2},
		{2, 10, 95, 10},
	}
	for _, tt := range tests {
		p := Params{Page: tt.page, Limit: tt.limit}
		m := p.MetaFor(tt.total)
		if m.TotalPages != tt.wantPages {
			t.Errorf("MetaFor(total=%d,limit=%d).TotalPages = %d, want %d",
				tt.total, tt.limit, m.TotalPages, tt.wantPages)
		}
		if m.Total != tt.total || m.Page != tt.page || m.Limit != tt.limit {
			t.Errorf("MetaFor echoed wrong params: %+v", m)
		}
	}
}
