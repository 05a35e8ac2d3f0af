package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ArgumentDigest hashes the canonical JSON form of the arguments, so key order
// and whitespace do not change the digest. Numbers keep their literal text;
// they are never rounded through float64.
func ArgumentDigest(args json.RawMessage) string {
	canonical := []byte("null")
	if len(args) > 0 {
		if b, err := canonicalJSON(args); err == nil {
			canonical = b
		} else {
			canonical = args
		}
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
