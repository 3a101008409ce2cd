package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_Hash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{
			name:     "simple password",
			password: "password123",
		},
		{
			name:     "complex password",
			password: "P@ssw0rd!#$%^&*()",
		},
		{
			name:     "unicode password",
			password: "密码123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}

			if hash == "" || hash == tt.password {
				t.Errorf("Hash() = %q, want an opaque hash", hash)
			}

			if !hasher.Verify(tt.password, hash) {
				t.Error("Verify() returned false for correct password")
			}
		})
	}
}

func TestPasswordHasher_Verify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	password := "testpassword123"

	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{
			name:     "correct password",
			password: password,
			hash:     hash,
			want:     true,
		},
		{
			name:     "wrong password",
			password: "wrongpassword",
			hash:     hash,
			want:     false,
		},
		{
			name:     "empty password",
			password: "",
			hash:     hash,
			want:     false,
		},
		{
			name:     "similar password",
			password: password + "1",
			hash:     hash,
			want:     false,
		},
		{
			name:     "garbage hash",
			password: password,
			hash:     "not-a-bcrypt-hash",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hasher.Verify(tt.password, tt.hash)
			if got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordHasher_UniqueHashes(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	password := "samepassword"

	hash1, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	hash2, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// Same password should produce different hashes (due to salt)
	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestPasswordHasher_Cost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{name: "configured", cost: 12, want: 12},
		{name: "minimum", cost: bcrypt.MinCost, want: bcrypt.MinCost},
		{name: "below range", cost: 1, want: DefaultBcryptCost},
		{name: "above range", cost: 99, want: DefaultBcryptCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPasswordHasher(tt.cost).Cost(); got != tt.want {
				t.Errorf("Cost() = %d, want %d", got, tt.want)
			}
		})
	}

	hash, err := NewPasswordHasher(11).Hash("abc")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != 11 {
		t.Errorf("hash cost = %d, want 11", cost)
	}
}

func TestPasswordHasher_CompareDecoy(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost + 1)

	for _, password := range []string{"", "decoy-password", "Passw0rd!"} {
		if hasher.CompareDecoy(password) {
			t.Errorf("CompareDecoy(%q) = true, want false", password)
		}
	}

	cost, err := bcrypt.Cost(hasher.decoy)
	if err != nil {
		t.Fatalf("decoy hash is not a bcrypt hash: %v", err)
	}
	if cost != hasher.Cost() {
		t.Errorf("decoy cost = %d, want %d", cost, hasher.Cost())
	}
}
