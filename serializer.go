package cloudqueue

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
)

// JSONSerializer is the default Serializer, backed by encoding/json. No
// third-party serialization library in the retrieved example corpus fits
// this role any better than the standard library: the only non-JSON wire
// format present anywhere (dogmatiq-verity's protocol buffers) encodes gRPC
// transport messages, not arbitrary user payload types, so it does not
// transfer here. UnpackXML is a best-effort structural projection built on
// encoding/xml, used only to give humans something to look at in
// GetPersisted.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

// TryDeserialize rejects unknown fields. Get peels an envelope first, then
// tries a typed decode before falling back to the wrapper wire format; a
// lenient decoder would silently accept foreign-shaped bytes into any
// permissive struct (missing fields simply zero-valued), defeating that
// ordering.
func (JSONSerializer) TryDeserialize(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data after JSON value")
	}
	return nil
}

func (JSONSerializer) UnpackXML(data []byte) ([]byte, bool) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, false
	}
	node := buildXMLNode("payload", generic)
	out, err := xml.MarshalIndent(node, "", "  ")
	if err != nil {
		return nil, false
	}
	return out, true
}

// xmlNode is a generic XML element that can represent the shape of an
// arbitrary decoded JSON value: scalars become character data, objects and
// arrays become nested elements.
type xmlNode struct {
	name     string
	text     string
	isText   bool
	children []xmlNode
}

func (n xmlNode) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: n.name}
	start.Attr = nil

	if n.isText {
		return e.EncodeElement(n.text, start)
	}

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := e.Encode(c); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func buildXMLNode(name string, v any) xmlNode {
	name = sanitizeXMLName(name)

	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		children := make([]xmlNode, 0, len(keys))
		for _, k := range keys {
			children = append(children, buildXMLNode(k, val[k]))
		}
		return xmlNode{name: name, children: children}

	case []any:
		children := make([]xmlNode, 0, len(val))
		for _, item := range val {
			children = append(children, buildXMLNode("item", item))
		}
		return xmlNode{name: name, children: children}

	case nil:
		return xmlNode{name: name, isText: true, text: ""}

	default:
		return xmlNode{name: name, isText: true, text: fmt.Sprint(val)}
	}
}

func sanitizeXMLName(name string) string {
	if name == "" {
		return "_"
	}
	r := rune(name[0])
	if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
		return "_" + name
	}
	return name
}
