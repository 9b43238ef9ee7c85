package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestUpstreamTemporary(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		err := fmt.Errorf("Wrap: %w", UpstreamError{Service: "test", StatusCode: code})
		if !Temporary(err) {
			t.Errorf("%d must be temporary", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404} {
		if Temporary(UpstreamError{Service: "test", StatusCode: code}) {
			t.Errorf("%d must not be temporary", code)
		}
	}
}

func TestAuthFailure(t *testing.T) {
	err := fmt.Errorf("Wrap: %w", AuthFailureError{Endpoint: "token", Attempts: 5, Err: UpstreamError{StatusCode: 503}})
	if Temporary(err) {
		t.Error("AuthFailure must not be temporary")
	}
	var upstream UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != 503 {
		t.Error("AuthFailure must unwrap its cause")
	}
}

func TestMergeErrors(t *testing.T) {
	tmp := MakeTemporary(fmt.Errorf("tmp"))
	fatal := fmt.Errorf("fatal")
	if err := MergeErrors(false, tmp, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := MergeErrors(true, nil, tmp, fatal); err == nil || Temporary(err) {
		t.Errorf("expected the fatal error first, got %v", err)
	}
}
