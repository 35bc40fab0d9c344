package provider

import (
	"strings"
	"testing"
)

func TestMatchTreeEntry(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		prefix    string
		delimiter string
		want      bool
	}{
		{"prefix and suffix match", "/home/user/data.csv", "/home/user/", ".csv", true},
		{"prefix match only", "/home/user/data.txt", "/home/user/", ".csv", false},
		{"prefix mismatch", "/var/log/data.csv", "/home/user/", ".csv", false},
		{"empty delimiter matches any suffix", "/home/user/data.txt", "/home/user/", "", true},
		{"subdirectory entry", "/home/user/sub/data.csv", "/home/user/", ".csv", true},
		{"mid-name prefix", "/exports/batch_01.csv", "/exports/batch_", ".csv", true},
		{"mid-name prefix mismatch", "/exports/other_01.csv", "/exports/batch_", ".csv", false},
		{"empty prefix matches everything", "/anything/data.csv", "", ".csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchTreeEntry(tt.path, tt.prefix, tt.delimiter); got != tt.want {
				t.Errorf("MatchTreeEntry(%q, %q, %q) = %v, want %v", tt.path, tt.prefix, tt.delimiter, got, tt.want)
			}
		})
	}
}

func TestBuildAuthMethods(t *testing.T) {
	t.Run("no method configured", func(t *testing.T) {
		_, err := buildAuthMethods(SFTPConfig{User: "bob"})
		if err == nil {
			t.Fatal("expected an error when no auth method is configured")
		}
		if !strings.Contains(err.Error(), "bob") {
			t.Errorf("error should name the user, got %q", err.Error())
		}
	})

	t.Run("password", func(t *testing.T) {
		auth, err := buildAuthMethods(SFTPConfig{User: "bob", Password: "secret"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(auth) != 1 {
			t.Errorf("expected 1 auth method, got %d", len(auth))
		}
	})

	t.Run("missing private key file", func(t *testing.T) {
		_, err := buildAuthMethods(SFTPConfig{User: "bob", PrivateKeyPath: "/nonexistent/id_rsa"})
		if err == nil {
			t.Fatal("expected an error for a missing key file")
		}
	})
}
