// Package accounts builds the auth stub's account table, either from the
// built-in demo identities or from a YAML seed file.
package accounts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/service"
)

// seedFile mirrors the YAML layout:
//
//	accounts:
//	  - id: 3
//	    username: ops
//	    email: ops@zmooth.local
//	    role: admin
//	    password: ops123
type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	domain.Identity `yaml:",inline"`
	Password        string `yaml:"password"`
	PasswordHash    string `yaml:"password_hash"`
}

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

// Default returns the demo identities with hashed passwords, so the stub
// accepts the same credentials the console does offline.
func Default() ([]domain.Account, error) {
	demo := service.DemoCredentials()
	out := make([]domain.Account, 0, len(demo))
	for _, d := range demo {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash demo password for %s: %w", d.Identity.Username, err)
		}
		out = append(out, domain.Account{Identity: d.Identity, PasswordHash: string(hash)})
	}
	return out, nil
}

// LoadFile reads a YAML seed file.
func LoadFile(path string) ([]domain.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes seed accounts. Each entry needs an id, a username or email,
// and exactly one of password or password_hash.
func Load(r io.Reader) ([]domain.Account, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var seed seedFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("accounts file is empty")
		}
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	out := make([]domain.Account, 0, len(seed.Accounts))
	for i, s := range seed.Accounts {
		acct, err := s.toAccount()
		if err != nil {
			return nil, fmt.Errorf("account #%d: %w", i+1, err)
		}
		out = append(out, acct)
	}
	return out, nil
}

func (s seedAccount) toAccount() (domain.Account, error) {
	switch {
	case s.ID == 0:
		return domain.Account{}, errors.New("id is required")
	case s.Username == "" && s.Email == "":
		return domain.Account{}, errors.New("username or email is required")
	case s.Password != "" && s.PasswordHash != "":
		return domain.Account{}, errors.New("set password or password_hash, not both")
	case s.Password == "" && s.PasswordHash == "":
		return domain.Account{}, errors.New("password or password_hash is required")
	}

	if s.Role == "" {
		s.Role = domain.RoleAdmin
	}

	hash := s.PasswordHash
	if hash == "" {
		b, err := bcrypt.GenerateFromPassword([]byte(s.Password), hashCost)
		if err != nil {
			return domain.Account{}, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	} else if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return domain.Account{}, fmt.Errorf("password_hash is not a bcrypt hash: %w", err)
	}

	return domain.Account{Identity: s.Identity, PasswordHash: hash}, nil
}
