package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{UserID: 1, SessionID: 3}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestSessionID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{SessionID: 12})
	if SessionID(ctx) != 12 {
		t.Errorf("SessionID = %d, want 12", SessionID(ctx))
	}
}

func TestSessionIDMissing(t *testing.T) {
	if SessionID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}
