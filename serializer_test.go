package cloudqueue

import (
	"encoding/xml"
	"testing"
)

func TestJSONSerializerRoundTrip(t *testing.T) {
	s := JSONSerializer{}

	type payload struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	data, err := s.Serialize(payload{ID: 1, Name: "alice"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	var got payload
	if err := s.TryDeserialize(data, &got); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.ID != 1 || got.Name != "alice" {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestJSONSerializerRejectsUnknownFields(t *testing.T) {
	s := JSONSerializer{}

	type narrow struct {
		ID int `json:"id"`
	}
	type wide struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	data, err := s.Serialize(wide{ID: 1, Name: "alice"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	var got narrow
	if err := s.TryDeserialize(data, &got); err == nil {
		t.Fatalf("expected decode into a narrower type to fail on the unknown field")
	}
}

func TestUnpackXMLProjectsNestedShape(t *testing.T) {
	s := JSONSerializer{}

	type payload struct {
		ID   int      `json:"id"`
		Tags []string `json:"tags"`
	}

	data, err := s.Serialize(payload{ID: 1, Tags: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	xmlBytes, ok := s.UnpackXML(data)
	if !ok {
		t.Fatalf("expected UnpackXML to succeed")
	}

	var generic struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(xmlBytes, &generic); err != nil {
		t.Fatalf("projected XML should itself be well-formed: %v", err)
	}
}
