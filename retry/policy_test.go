package retry

import (
	"context"
	"errors"
	"testing"
)

func TestTransientServerErrorBackoffRetriesUntilSuccess(t *testing.T) {
	p := TransientServerErrorBackoff()

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return ErrTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestTransientServerErrorBackoffDoesNotRetryTerminalErrors(t *testing.T) {
	p := TransientServerErrorBackoff()

	terminal := errors.New("not found")
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected the terminal error to surface unchanged, got: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a terminal error, got %d", attempts)
	}
}

func TestDefaultTransientClassifierPassesNilThrough(t *testing.T) {
	if err := DefaultTransientClassifier(nil); err != nil {
		t.Fatalf("expected nil to classify as nil, got: %v", err)
	}
}

func TestGetReturnsTheActionsValueOnSuccess(t *testing.T) {
	p := TransientServerErrorBackoff()

	attempts := 0
	v, err := Get(context.Background(), p, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, ErrTransient
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestGetSurfacesTerminalErrorsWithZeroValue(t *testing.T) {
	p := TransientServerErrorBackoff()

	terminal := errors.New("not found")
	v, err := Get(context.Background(), p, func(ctx context.Context) (int, error) {
		return 7, terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected the terminal error to surface unchanged, got: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected the zero value on a terminal error, got %d", v)
	}
}
