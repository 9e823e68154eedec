package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the staff bearer credential store. The token is persisted
// with an embedded expiry timestamp that is checked on every read; an expired
// or undecodable credential is cleared and the read reports "not
// authenticated", which forces re-login instead of sending a dead token.
type Credentials struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewCredentials builds a credential store backed by the given file.
func NewCredentials(path string) *Credentials {
	return &Credentials{path: path, now: time.Now}
}

// Save persists a bearer token. A zero expiry falls back to the token's own
// `exp` claim when it is a JWT; tokens without any expiry never self-expire.
func (c *Credentials) Save(token string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiresAt.IsZero() {
		expiresAt = jwtExpiry(token)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return errors.Wrap(err, "create credentials dir")
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("token")
	e.Str(token)
	if !expiresAt.IsZero() {
		e.FieldStart("expiresAt")
		e.Str(expiresAt.UTC().Format(time.RFC3339))
	}
	e.ObjEnd()

	if err := os.WriteFile(c.path, e.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "write credentials")
	}
	return nil
}

// Token implements the API client's token source. It re-reads the file on
// every call and never returns an expired credential.
func (c *Credentials) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}

	token, expiresAt, err := decodeCredentials(raw)
	if err != nil || token == "" {
		_ = os.Remove(c.path)
		return "", false
	}
	if !expiresAt.IsZero() && !expiresAt.After(c.now()) {
		_ = os.Remove(c.path)
		return "", false
	}
	return token, true
}

// Clear drops the stored credential, e.g. after the server answered 401/403.
func (c *Credentials) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove credentials")
	}
	return nil
}

func decodeCredentials(raw []byte) (token string, expiresAt time.Time, err error) {
	d := jx.DecodeBytes(raw)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "token":
			v, err := d.Str()
			token = v
			return err
		case "expiresAt":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, v)
			expiresAt = t
			return err
		default:
			return d.Skip()
		}
	})
	return token, expiresAt, err
}

// jwtExpiry extracts the `exp` claim from a JWT without verifying the
// signature. Verification is the server's job; the client only wants to stop
// using tokens it already knows are dead.
func jwtExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
