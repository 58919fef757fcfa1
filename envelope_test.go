package cloudqueue

import "testing"

func TestDecodeEnvelopeRoundTrip(t *testing.T) {
	s := JSONSerializer{}
	data, err := s.Serialize(wireEnvelope{DequeueCount: 3, RawMessage: []byte("hello")})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	env, ok := decodeEnvelope(s, data)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if env.DequeueCount != 3 || string(env.RawMessage) != "hello" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestDecodeEnvelopeRejectsForeignPayload(t *testing.T) {
	s := JSONSerializer{}
	data, err := s.Serialize(struct {
		ID int `json:"id"`
	}{ID: 7})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if _, ok := decodeEnvelope(s, data); ok {
		t.Fatalf("expected decode to fail for an unrelated payload shape")
	}
}

func TestDecodeEnvelopeRejectsEmptyRawMessage(t *testing.T) {
	s := JSONSerializer{}
	data, err := s.Serialize(wireEnvelope{DequeueCount: 1})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if _, ok := decodeEnvelope(s, data); ok {
		t.Fatalf("expected decode to reject an envelope with an empty raw message")
	}
}
