package engine

import (
	"encoding/base64"
	"testing"
)

func TestSessionStoreEnvParsing(t *testing.T) {
	t.Parallel()

	blobA := base64.StdEncoding.EncodeToString([]byte("session-a"))
	blobB := base64.StdEncoding.EncodeToString([]byte("session-b"))
	s := NewSessionStore(t.TempDir(), "alice:"+blobA+" , bob:"+blobB+", malformed, :nope,")

	got, ok := s.FromEnv("alice")
	if !ok || string(got) != "session-a" {
		t.Fatalf("FromEnv(alice) = %q, %v", got, ok)
	}
	got, ok = s.FromEnv("bob")
	if !ok || string(got) != "session-b" {
		t.Fatalf("FromEnv(bob) = %q, %v", got, ok)
	}
	if _, ok := s.FromEnv("carol"); ok {
		t.Fatal("expected no session for carol")
	}
	if _, ok := s.FromEnv("malformed"); ok {
		t.Fatal("expected malformed pair to be skipped")
	}
}

func TestSessionStoreEnvBadBase64(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(t.TempDir(), "alice:!!!not-base64!!!")
	if _, ok := s.FromEnv("alice"); ok {
		t.Fatal("expected undecodable blob to be treated as absent")
	}
}

func TestSessionStoreSaveLoad(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(t.TempDir(), "")
	if _, ok := s.Load("alice"); ok {
		t.Fatal("expected no session before save")
	}
	if err := s.Save("alice", []byte("cookies")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, ok := s.Load("alice")
	if !ok || string(got) != "cookies" {
		t.Fatalf("Load() = %q, %v", got, ok)
	}
}
