package pagination

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResumeToken is the opaque continuation token (pre-encoding) issued by
// collaborators that paginate by key rather than by a server-side token.
// Short field names keep the encoded payload small. It is serialized to
// minified JSON and encoded with URL-safe base64.
//
// Fields:
//   - v:   version of the token schema
//   - src: listing scope the token was issued for (e.g. "files")
//   - qh:  hash of the query the token belongs to
//   - k:   last key returned; the next page starts strictly after it
//   - iat: issued-at timestamp (unix seconds)
type ResumeToken struct {
	V   int    `json:"v"`
	Src string `json:"src"`
	Qh  string `json:"qh,omitempty"`
	K   string `json:"k"`
	Iat int64  `json:"iat"`
}

// EncodeResumeToken serializes and encodes the token as URL-safe base64 (without padding).
func EncodeResumeToken(t ResumeToken) (string, error) {
	if err := validateToken(&t); err != nil {
		return "", err
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeResumeToken decodes a URL-safe base64 token and parses the JSON payload.
// Every failure wraps ErrInvalidCursor.
func DecodeResumeToken(token string) (*ResumeToken, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidCursor)
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrInvalidCursor, err)
	}
	var t ResumeToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrInvalidCursor, err)
	}
	if err := validateToken(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// HashQuery returns a short stable digest used to bind tokens to their query.
func HashQuery(q string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(q)))
	return hex.EncodeToString(sum[:8])
}

// validateToken performs structural checks and defaulting.
func validateToken(t *ResumeToken) error {
	if t.V <= 0 {
		t.V = 1
	}
	if t.Iat == 0 {
		t.Iat = time.Now().Unix()
	}
	if strings.TrimSpace(t.Src) == "" {
		return fmt.Errorf("%w: src required", ErrInvalidCursor)
	}
	if t.K == "" {
		return fmt.Errorf("%w: k (resume key) required", ErrInvalidCursor)
	}
	return nil
}
