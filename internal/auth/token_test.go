package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env     string
		wantEnv string
	}{
		{EnvLive, EnvLive},
		{EnvTest, EnvTest},
		{"staging", EnvLive},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Parallel()

			gen, err := GenerateToken(tt.env)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			parsed, err := ParseToken(gen.Plaintext)
			if err != nil {
				t.Fatalf("ParseToken(%q) error = %v", gen.Plaintext, err)
			}
			if parsed.Env != tt.wantEnv || parsed.Prefix != gen.Prefix {
				t.Errorf("parsed = %+v, want env %s prefix %s", parsed, tt.wantEnv, gen.Prefix)
			}
			if len(parsed.Secret) != TokenSecretLen {
				t.Errorf("secret length = %d, want %d", len(parsed.Secret), TokenSecretLen)
			}
			if ok, err := VerifyToken(gen.Plaintext, gen.Hash); err != nil || !ok {
				t.Errorf("VerifyToken() = %v, %v; want true", ok, err)
			}
			if !strings.HasPrefix(gen.KeyringEntry(), gen.Prefix+"=$argon2id$") {
				t.Errorf("KeyringEntry() = %q", gen.KeyringEntry())
			}
		})
	}
}

func TestParseToken_Invalid(t *testing.T) {
	t.Parallel()

	for _, token := range []string{
		"",
		"aw_live_abc123",
		"pk_live_abc123_0123456789abcdef0123456789abcdef",
		"aw_prod_abc123_0123456789abcdef0123456789abcdef",
		"aw_live_ABC123_0123456789abcdef0123456789abcdef",
		"aw_live_abc123_0123456789abcdef0123456789abcde",
	} {
		if _, err := ParseToken(token); !errors.Is(err, ErrInvalidTokenFormat) {
			t.Errorf("ParseToken(%q) error = %v, want ErrInvalidTokenFormat", token, err)
		}
	}
}

func TestParseKeyring(t *testing.T) {
	t.Parallel()

	k, err := ParseKeyring([]string{"", "  ", "abc123=$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"})
	if err != nil {
		t.Fatalf("ParseKeyring() error = %v", err)
	}
	if k.Len() != 1 {
		t.Errorf("Len() = %d, want 1", k.Len())
	}

	for _, bad := range []string{"no-separator", "abc=$argon2id$x", "abc123=$bcrypt$x"} {
		if _, err := ParseKeyring([]string{bad}); !errors.Is(err, ErrInvalidKeyringEntry) {
			t.Errorf("ParseKeyring(%q) error = %v, want ErrInvalidKeyringEntry", bad, err)
		}
	}
}

func TestKeyring_Verify(t *testing.T) {
	t.Parallel()

	gen, err := GenerateToken(EnvTest)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	other, err := GenerateToken(EnvTest)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	k, err := ParseKeyring([]string{gen.KeyringEntry()})
	if err != nil {
		t.Fatalf("ParseKeyring() error = %v", err)
	}

	prefix, ok := k.Verify(gen.Plaintext)
	if !ok || prefix != gen.Prefix {
		t.Errorf("Verify(configured) = %q, %v; want %q, true", prefix, ok, gen.Prefix)
	}
	// second call is served from the verified set
	if _, ok := k.Verify(gen.Plaintext); !ok {
		t.Error("Verify(configured) second call = false")
	}
	if _, ok := k.Verify(other.Plaintext); ok {
		t.Error("Verify(unconfigured) = true")
	}
	if _, ok := k.Verify("garbage"); ok {
		t.Error("Verify(garbage) = true")
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Error("PrincipalFromContext(empty) ok = true")
	}
	ctx := ContextWithPrincipal(context.Background(), Principal{TokenPrefix: "abc123"})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.TokenPrefix != "abc123" {
		t.Errorf("PrincipalFromContext() = %+v, %v", p, ok)
	}
}
