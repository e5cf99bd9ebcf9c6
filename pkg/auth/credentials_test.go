package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, _ := NewMockManager()

	account := &Account{
		Username: "repostbot",
		Password: "a-long-test-password",
	}

	if err := manager.Store(account); err != nil {
		t.Errorf("Failed to store account: %v", err)
	}

	retrieved, err := manager.Retrieve("repostbot")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Username != account.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, account.Username)
	}
	if retrieved.Password != account.Password {
		t.Errorf("Password mismatch: got %s, want %s", retrieved.Password, account.Password)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) == 0 {
		t.Error("Expected at least one account in list")
	}

	sanitized := SanitizeAccount(account)
	if sanitized.Password == account.Password {
		t.Error("Password should be masked")
	}

	if err := manager.Delete("repostbot"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("repostbot"); err == nil {
		t.Error("Expected error retrieving deleted account")
	}
}

func TestManagerValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Account{Password: "pw"}); err == nil {
		t.Error("Expected error storing account without username")
	}
	if err := manager.Store(&Account{Username: "user"}); err == nil {
		t.Error("Expected error storing account without password")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGREPOST_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	account := &Account{
		Username:     "repostbot",
		Password:     "secret-password",
		LastModified: time.Now(),
	}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	// The file must not leak the password in plaintext
	content, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to read store file: %v", err)
	}
	if string(content) == "" {
		t.Fatal("Store file is empty")
	}
	if strings.Contains(string(content), "secret-password") {
		t.Error("Password stored in plaintext")
	}

	// A fresh store with the same passphrase reads it back
	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	retrieved, err := reopened.Retrieve("repostbot")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if retrieved.Password != account.Password {
		t.Errorf("Password mismatch after reopen: got %s", retrieved.Password)
	}

	// Deleting the only account removes the file
	if err := reopened.Delete("repostbot"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "credentials.enc")); !os.IsNotExist(err) {
		t.Error("Expected store file to be removed")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IG_USERNAME", "envuser")
	t.Setenv("IG_PASSWORD", "envpass")

	store := NewEnvironmentStore()
	if !store.Exists("envuser") {
		t.Error("Expected environment credentials to exist")
	}

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if account.Username != "envuser" || account.Password != "envpass" {
		t.Errorf("Unexpected account: %+v", account)
	}

	if _, err := store.Retrieve("someoneelse"); err == nil {
		t.Error("Expected mismatch error for different username")
	}

	if err := store.Store(account); err != ErrStoreUnavailable {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}
