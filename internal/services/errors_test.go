package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"vqa/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrTool, "analysis", "ffmpeg psnr", "run failed", base)
	if !errors.Is(err, services.ErrTool) {
		t.Fatalf("expected wrapped error to match ErrTool: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to retain cause: %v", err)
	}
	for _, fragment := range []string{"analysis", "ffmpeg psnr", "run failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "batch", "", "worker stopped", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestKindClassification(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{services.ErrTimeout, services.KindTimeout},
		{services.ErrCancelled, services.KindCancelled},
		{fmt.Errorf("wrapped: %w", services.ErrParse), services.KindParse},
		{services.Wrap(services.ErrMissingInput, "batch", "", "gone", nil), services.KindMissingInput},
		{services.ErrInsufficientData, services.KindInsufficientData},
		{services.Wrap(services.ErrTool, "analysis", "encode", "", errors.New("exit 1")), services.KindTool},
		{errors.New("anything else"), services.KindTransient},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
}
