package qcerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelWrapping(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{Shape("labels", "face %d", 3), ErrInputShape},
		{Config("compose", "columns %d", 0), ErrConfiguration},
		{Degenerate("cuts", "no foreground"), ErrDegenerateGeometry},
		{Missing("labels", "colour table", 42), ErrMissingMapping},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Errorf("%v does not match %v", c.err, c.want)
		}
		wrapped := fmt.Errorf("job failed: %w", c.err)
		if !errors.Is(wrapped, c.want) {
			t.Errorf("wrapped %v does not match %v", wrapped, c.want)
		}
	}
}

func TestMissingMappingNamesCode(t *testing.T) {
	err := Missing("labels", "colour table", 42)

	var mm *MissingMappingError
	if !errors.As(err, &mm) {
		t.Fatalf("Expected *MissingMappingError, got %T", err)
	}
	if mm.Code != "42" {
		t.Errorf("Expected code 42, got %s", mm.Code)
	}
	if errors.Is(err, ErrInputShape) {
		t.Error("MissingMappingError must not match ErrInputShape")
	}
}
