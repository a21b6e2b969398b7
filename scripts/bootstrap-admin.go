package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Perms    int    `json:"perms"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		userID      = flag.String("user-id", "admin", "User ID for the bootstrap account")
		email       = flag.String("email", "admin@modelvault.local", "User email")
		name        = flag.String("name", "Bootstrap Admin", "Display name")
		password    = flag.String("password", "", "Password (generated if empty)")
		permsInput  = flag.String("perms", "admin", "Comma-separated permissions (user,admin,super)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	perms, err := parsePerms(*permsInput)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	plaintext := *password
	if plaintext == "" {
		plaintext, err = generatePassword()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate password:", err)
			os.Exit(1)
		}
	}

	hash, err := auth.HashPassword(plaintext)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	user := &model.User{
		ID:           *userID,
		Email:        *email,
		Name:         *name,
		PasswordHash: hash,
		Perms:        perms,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		fmt.Fprintln(os.Stderr, "create user:", err)
		os.Exit(1)
	}

	out := output{
		UserID:   *userID,
		Email:    *email,
		Password: plaintext,
		Perms:    int(perms),
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Password)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func parsePerms(input string) (model.Perm, error) {
	if strings.TrimSpace(input) == "" {
		return model.PermAdmin, nil
	}

	var perms model.Perm
	for _, part := range strings.Split(input, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "user":
			perms |= model.PermUser
		case "admin":
			perms |= model.PermAdmin
		case "super":
			perms |= model.PermSuper
		default:
			return 0, fmt.Errorf("invalid permission: %s", strings.TrimSpace(part))
		}
	}
	if perms == 0 {
		perms = model.PermAdmin
	}
	return perms, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
