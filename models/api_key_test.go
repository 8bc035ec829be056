package models

import (
	"testing"
	"time"
	"unicode/utf8"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"long secret", "sk-1234567890abcdefWXYZ", "sk-1234567***WXYZ"},
		{"exactly fourteen", "abcdefghijklmn", "abcdefghij***klmn"},
		{"short secret overlaps", "sk-abc", "sk-abc***-abc"},
		{"empty", "", "***"},
		{"multi-byte characters", "ключключключключ", "ключключкл***ключ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskSecret(tt.secret)
			if got != tt.want {
				t.Errorf("MaskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("MaskSecret(%q) produced invalid UTF-8", tt.secret)
			}
		})
	}
}

func TestAPIKey_Masked(t *testing.T) {
	key := APIKey{ID: 1, Name: "k1", Key: "sk-1234567890abcdefWXYZ", IsActive: true}

	masked := key.Masked()
	if masked.Key != "sk-1234567***WXYZ" {
		t.Errorf("masked key = %s", masked.Key)
	}
	if key.Key != "sk-1234567890abcdefWXYZ" {
		t.Error("Masked must not modify the receiver")
	}
	if masked.ID != key.ID || masked.Name != key.Name || !masked.IsActive {
		t.Error("Masked should keep the other fields")
	}
}

func TestAPIKey_Summary(t *testing.T) {
	now := time.Now()
	key := APIKey{ID: 3, Name: "prod", Key: "secret", IsActive: true, TokensUsed: 42, CreatedAt: now}

	s := key.Summary()
	if s.ID != 3 || s.Name != "prod" || s.TokensUsed != 42 || !s.IsActive {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestFirstActive(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		if FirstActive(nil) != nil {
			t.Error("expected nil for no keys")
		}
	})

	t.Run("none active", func(t *testing.T) {
		keys := []APIKey{{ID: 1}, {ID: 2}}
		if FirstActive(keys) != nil {
			t.Error("expected nil when no key is active")
		}
	})

	t.Run("first by order wins", func(t *testing.T) {
		keys := []APIKey{{ID: 1}, {ID: 2, IsActive: true}, {ID: 3, IsActive: true}}
		got := FirstActive(keys)
		if got == nil || got.ID != 2 {
			t.Errorf("expected key 2, got %+v", got)
		}
	})
}
