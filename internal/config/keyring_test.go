package config

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringManager_SaveAndGetPassword(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()
	defer km.DeleteNeo4jPassword()

	if err := km.SetNeo4jPassword("s3cret-pass"); err != nil {
		t.Fatalf("Failed to save password: %v", err)
	}

	got, err := km.GetNeo4jPassword()
	if err != nil {
		t.Fatalf("Failed to get password: %v", err)
	}
	if got != "s3cret-pass" {
		t.Errorf("Expected password %q, got %q", "s3cret-pass", got)
	}
}

func TestKeyringManager_DeletePassword(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()

	if err := km.SetNeo4jPassword("to-delete"); err != nil {
		t.Fatalf("Failed to save password: %v", err)
	}
	if err := km.DeleteNeo4jPassword(); err != nil {
		t.Fatalf("Failed to delete password: %v", err)
	}

	got, err := km.GetNeo4jPassword()
	if err != nil {
		t.Fatalf("Unexpected error after delete: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty password after delete, got %q", got)
	}

	// Deleting again is not an error
	if err := km.DeleteNeo4jPassword(); err != nil {
		t.Errorf("Deleting a missing password should succeed, got %v", err)
	}
}

func TestKeyringManager_SetEmptyPassword(t *testing.T) {
	keyring.MockInit()
	if err := NewKeyringManager().SetNeo4jPassword(""); err == nil {
		t.Error("Expected error for empty password")
	}
}

func TestKeyringManager_IsAvailable(t *testing.T) {
	keyring.MockInit()
	if !NewKeyringManager().IsAvailable() {
		t.Error("Mock keyring should be available")
	}
}
