package handlers

import "encoding/json"

// marshalJSON re-encodes an already-decoded value back into a
// json.RawMessage, used where a handler accepts a nested object as part of
// its own request but needs to forward it verbatim to an adapter.
func marshalJSON(v interface{}) (json.RawMessage, error) {
	return json.Marshal(v)
}
