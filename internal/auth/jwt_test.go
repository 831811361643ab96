package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	ts := TokenService{Secret: []byte("test-secret"), Issuer: "mangashelf", Duration: time.Hour}
	u := &User{ID: "u1", Username: "alice", TokenVersion: 3}

	token, exp, err := ts.Sign(u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Error("expiry should be in the future")
	}

	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" || claims.TokenVersion != 3 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	ts := TokenService{Secret: []byte("test-secret"), Issuer: "mangashelf", Duration: time.Hour}
	token, _, err := ts.Sign(&User{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := TokenService{Secret: []byte("different"), Issuer: "mangashelf", Duration: time.Hour}
	if _, err := other.Parse(token); err == nil {
		t.Fatal("token signed with another secret should not parse")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	ts := TokenService{Secret: []byte("test-secret"), Issuer: "mangashelf", Duration: -time.Minute}
	token, _, err := ts.Sign(&User{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ts.Parse(token); err == nil {
		t.Fatal("expired token should not parse")
	}
}
