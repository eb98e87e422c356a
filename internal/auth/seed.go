package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nawrec86/school-management-backend/internal/model"
	"github.com/nawrec86/school-management-backend/internal/repository"
)

type seedFile struct {
	Users []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
}

// SeedFromFile creates the accounts listed in a YAML file, skipping any
// username that already exists. Used at startup so a fresh deployment has
// at least one admin account.
func (s *Service) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, entry := range file.Users {
		if entry.Username == "" || entry.Password == "" {
			continue
		}
		role, ok := model.ParseRole(entry.Role)
		if !ok {
			return fmt.Errorf("seed user %q: %w", entry.Username, ErrInvalidRole)
		}
		if _, err := s.Register(ctx, entry.Username, entry.Password, role); err != nil {
			if errors.Is(err, repository.ErrUsernameTaken) {
				continue
			}
			return fmt.Errorf("seed user %q: %w", entry.Username, err)
		}
	}
	return nil
}
