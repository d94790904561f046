package mastery

import (
	"errors"
	"testing"
)

func TestParseParamsValid(t *testing.T) {
	p, err := ParseParams([]byte(`{"p_l0":0.25,"p_t":0.2,"p_s":0.1,"p_g":0.2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PL0 != 0.25 || p.PT != 0.2 {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestParseParamsRejectsDegenerateSlip(t *testing.T) {
	_, err := ParseParams([]byte(`{"p_l0":0.25,"p_t":0.2,"p_s":0.5,"p_g":0.2}`))
	if !errors.Is(err, ErrDegenerateParams) {
		t.Fatalf("expected ErrDegenerateParams, got %v", err)
	}
}

func TestParseParamsRejectsDegenerateGuess(t *testing.T) {
	_, err := ParseParams([]byte(`{"p_l0":0.25,"p_t":0.2,"p_s":0.1,"p_g":0.6}`))
	if !errors.Is(err, ErrDegenerateParams) {
		t.Fatalf("expected ErrDegenerateParams, got %v", err)
	}
}

func TestParseParamsRejectsOutOfRange(t *testing.T) {
	_, err := ParseParams([]byte(`{"p_l0":1.5,"p_t":0.2,"p_s":0.1,"p_g":0.2}`))
	if err == nil {
		t.Fatalf("expected error for p_l0 > 1")
	}
}
