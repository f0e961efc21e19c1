package dispatch

import "testing"

func TestStatusClassification(t *testing.T) {
	for _, code := range []int{6, 1000, 1800} {
		if !IsSuccess(code) || IsFail(code) || IsPending(code) {
			t.Errorf("code %d should classify as success", code)
		}
	}
	for _, code := range []int{100, 104} {
		if !IsPending(code) || IsFail(code) || IsSuccess(code) {
			t.Errorf("code %d should classify as pending", code)
		}
	}
	// Everything else, known or not, is a failure.
	for _, code := range []int{7, 8, 3004, 9999, 42} {
		if !IsFail(code) {
			t.Errorf("code %d should classify as fail", code)
		}
	}
}

func TestLabelFallback(t *testing.T) {
	if Label(6) != "SMS 성공" {
		t.Errorf("unexpected label for 6: %s", Label(6))
	}
	if Label(424242) != "코드 424242" {
		t.Errorf("unknown codes need a fallback label, got %s", Label(424242))
	}
}
