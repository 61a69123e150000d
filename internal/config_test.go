package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/saga/internal/entity"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestEntitiesConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	sc, err := cfg.Entities.ServiceConfig()
	if err != nil {
		t.Fatalf("ServiceConfig: %v", err)
	}
	if sc.Mode != entity.Flatten || sc.Location != time.UTC || sc.Locale != "en-US" {
		t.Errorf("service config = %+v", sc)
	}
}

func TestEntitiesConfig_Nested(t *testing.T) {
	cfg := EntitiesConfig{CustomFieldsMode: "nested", Locale: "fr", Timezone: "Europe/Paris", ForwardDates: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid entities config rejected: %v", err)
	}
	sc, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatalf("ServiceConfig: %v", err)
	}
	if sc.Mode != entity.Nested || !sc.ForwardDate || sc.Location.String() != "Europe/Paris" {
		t.Errorf("service config = %+v", sc)
	}
}

func TestEntitiesConfig_Invalid(t *testing.T) {
	tests := []EntitiesConfig{
		{CustomFieldsMode: "sideways"},
		{Locale: "not a locale!"},
		{Timezone: "Mars/Olympus"},
	}
	for _, cfg := range tests {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%+v should fail validation", cfg)
		}
	}
}
