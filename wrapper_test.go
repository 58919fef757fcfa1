package cloudqueue

import "testing"

func TestDecodeWrapperRoundTrip(t *testing.T) {
	s := JSONSerializer{}
	data, err := s.Serialize(wireWrapper{Container: "c", Name: "n"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	w, ok := decodeWrapper(s, data)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if w.Container != "c" || w.Name != "n" {
		t.Fatalf("unexpected wrapper: %+v", w)
	}
}

func TestDecodeWrapperRejectsForeignPayload(t *testing.T) {
	s := JSONSerializer{}
	data, err := s.Serialize(struct {
		Body string `json:"body"`
	}{Body: "x"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if _, ok := decodeWrapper(s, data); ok {
		t.Fatalf("expected decode to fail for an unrelated payload shape")
	}
}

func TestDecodeWrapperRejectsMissingFields(t *testing.T) {
	s := JSONSerializer{}
	data, err := s.Serialize(wireWrapper{Container: "c"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if _, ok := decodeWrapper(s, data); ok {
		t.Fatalf("expected decode to reject a wrapper missing its blob name")
	}
}
