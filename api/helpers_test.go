package api

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/bastion"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		page, perPage       int
		wantLimit, wantOffs int
	}{
		{0, 0, 10, 0},
		{1, 25, 25, 0},
		{3, 25, 25, 50},
		{2, 500, 10, 10},
		{-1, 5, 5, 0},
	}
	for _, tt := range tests {
		limit, offset := pagination(tt.page, tt.perPage)
		if limit != tt.wantLimit || offset != tt.wantOffs {
			t.Errorf("pagination(%d, %d) = %d, %d; want %d, %d",
				tt.page, tt.perPage, limit, offset, tt.wantLimit, tt.wantOffs)
		}
	}
}

func TestPageMeta(t *testing.T) {
	m := pageMeta(21, 10, 20)
	if m.LastPage != 3 || m.CurrentPage != 3 || m.Total != 21 || m.PerPage != 10 {
		t.Fatalf("unexpected meta: %+v", m)
	}
	if m := pageMeta(0, 10, 0); m.LastPage != 1 || m.CurrentPage != 1 {
		t.Fatalf("empty result should report one page: %+v", m)
	}
}

func TestDateRange(t *testing.T) {
	from, to, err := dateRange("2026-03-01", "2026-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if !from.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", from)
	}
	if to.Day() != 1 || to.Hour() != 23 {
		t.Fatalf("end bound should cover the whole day, got %v", to)
	}

	from, to, err = dateRange("", "")
	if err != nil || from != nil || to != nil {
		t.Fatalf("empty bounds should be nil, got %v %v %v", from, to, err)
	}

	for _, bad := range [][2]string{{"03/01/2026", ""}, {"", "yesterday"}, {"2026-03-02", "2026-03-01"}} {
		_, _, err := dateRange(bad[0], bad[1])
		if !errors.Is(err, bastion.ErrValidation) {
			t.Errorf("dateRange(%q, %q): expected validation error, got %v", bad[0], bad[1], err)
		}
	}
}
