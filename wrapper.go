package cloudqueue

// wireWrapper marks an overflow message: it points at the blob that holds
// the real, oversize payload.
type wireWrapper struct {
	Container string `json:"container_name"`
	Name      string `json:"blob_name"`
}

// decodeWrapper attempts to interpret data as a wireWrapper. Both fields
// are required to be non-empty for a match, for the same reason
// decodeEnvelope requires a non-empty RawMessage.
func decodeWrapper(s Serializer, data []byte) (wireWrapper, bool) {
	var w wireWrapper
	if err := s.TryDeserialize(data, &w); err != nil {
		return wireWrapper{}, false
	}
	if w.Container == "" || w.Name == "" {
		return wireWrapper{}, false
	}
	return w, true
}
