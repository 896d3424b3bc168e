package normalize

// Envelope keys checked, in order, when resolving a metadata payload.
const (
	envelopeMetadata = "metadata"
	envelopeData     = "data"
)

// Metadata resolves a metric metadata response into an ordered list of
// entries ({"metric", "type", "help", "unit"}).
//
// The payload is taken from the "metadata" key if present, else from the
// "data" key, else the whole response is used. A list is returned as-is;
// a single object (or any other non-nil value) becomes a one-element list
// and nil becomes an empty list. Entries are not validated.
func Metadata(data interface{}) []interface{} {
	payload := data
	if m, ok := data.(map[string]interface{}); ok {
		if v, found := m[envelopeMetadata]; found {
			payload = v
		} else if v, found := m[envelopeData]; found {
			payload = v
		}
	}

	switch v := payload.(type) {
	case []interface{}:
		return v
	case nil:
		return []interface{}{}
	default:
		return []interface{}{v}
	}
}
