package release

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"privilege", fmt.Errorf("%w: drop_caches", ErrInsufficientPrivilege), ErrKindInsufficientPrivilege},
		{"partial", fmt.Errorf("%w: one of two", ErrPartialFailure), ErrKindPartialFailure},
		{"generic", fmt.Errorf("%w: whatever", ErrRelease), ErrKindRelease},
		{"unclassified", errors.New("something else"), ErrKindRelease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapOSError(t *testing.T) {
	err := wrapOSError("drop_caches", os.ErrPermission)
	if !errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("permission error not classified as ErrInsufficientPrivilege: %v", err)
	}

	err = wrapOSError("drop_caches", errors.New("device busy"))
	if !errors.Is(err, ErrRelease) {
		t.Errorf("generic error not classified as ErrRelease: %v", err)
	}
	if errors.Is(err, ErrInsufficientPrivilege) {
		t.Errorf("generic error wrongly classified as privilege failure: %v", err)
	}
}
