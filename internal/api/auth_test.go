package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lifepulse/internal/repository"
)

func TestLoginStoresCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "user@example.com" || body["password"] != "secret" {
			t.Errorf("unexpected login body: %v", body)
		}
		fmt.Fprint(w, `{"user":{"id":"user-123","email":"user@example.com"},"token":"token-abc"}`)
	}))
	defer server.Close()

	settings := newMemorySettings(map[string]string{
		repository.SettingAPIBaseURL: server.URL,
	})
	client := NewClient(settings, nil, nil)

	result, err := client.Login(context.Background(), "user@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !result.Success || result.UserID != "user-123" || result.Token != "token-abc" {
		t.Errorf("result = %+v", result)
	}

	for key, want := range map[string]string{
		repository.SettingUserID:    "user-123",
		repository.SettingAuthToken: "token-abc",
		repository.SettingUserEmail: "user@example.com",
	} {
		if got, _ := settings.Get(context.Background(), key); got != want {
			t.Errorf("setting %q = %q, want %q", key, got, want)
		}
	}
	if !client.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() = false after successful login")
	}
}

func TestLoginRejectionIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid credentials"}`)
	}))
	defer server.Close()

	settings := newMemorySettings(map[string]string{
		repository.SettingAPIBaseURL: server.URL,
	})
	client := NewClient(settings, nil, nil)

	result, err := client.Login(context.Background(), "user@example.com", "wrong")
	if err != nil {
		t.Fatalf("Login() error = %v, rejection should resolve into the result", err)
	}
	if result.Success {
		t.Error("result.Success = true for rejected login")
	}
	if result.ErrorMessage != "invalid credentials" {
		t.Errorf("ErrorMessage = %q", result.ErrorMessage)
	}
	if client.IsAuthenticated(context.Background()) {
		t.Error("rejected login should not store credentials")
	}
}

func TestValidateTokenValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.Header.Get("Authorization") != "Bearer token-abc" {
			t.Errorf("unexpected request: %s auth=%q", r.Method, r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, `{"valid":true,"user":{"id":"user-456","email":"new@example.com"}}`)
	}))
	defer server.Close()

	settings := authedSettings(server.URL)
	client := NewClient(settings, nil, nil)

	valid, err := client.ValidateToken(context.Background())
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if !valid {
		t.Fatal("ValidateToken() = false, want true")
	}
	// User info refreshed from the validation response
	if got, _ := settings.Get(context.Background(), repository.SettingUserID); got != "user-456" {
		t.Errorf("user id = %q, want user-456", got)
	}
}

func TestValidateTokenRejectedClearsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	settings := authedSettings(server.URL)
	client := NewClient(settings, nil, nil)

	valid, err := client.ValidateToken(context.Background())
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if valid {
		t.Error("ValidateToken() = true for rejected token")
	}
	if client.IsAuthenticated(context.Background()) {
		t.Error("rejected token should clear stored credentials")
	}
}

func TestValidateTokenWithoutStoredToken(t *testing.T) {
	client := NewClient(newMemorySettings(nil), nil, nil)
	valid, err := client.ValidateToken(context.Background())
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if valid {
		t.Error("ValidateToken() = true with no stored token")
	}
}

func TestLogoutClearsCredentials(t *testing.T) {
	settings := authedSettings("http://unused")
	client := NewClient(settings, nil, nil)

	client.Logout(context.Background())

	if client.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() = true after logout")
	}
	// The base URL override survives logout
	if got, _ := settings.Get(context.Background(), repository.SettingAPIBaseURL); got != "http://unused" {
		t.Errorf("api base url = %q, should survive logout", got)
	}
}
