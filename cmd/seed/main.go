package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ygodeck/internal/config"
	"ygodeck/internal/db"
	apperrors "ygodeck/internal/errors"
	"ygodeck/internal/logging"
	"ygodeck/internal/model"
	"ygodeck/internal/repository"
	"ygodeck/internal/service"
)

//go:embed decks/*.ydk
var starterDecks embed.FS

func main() {
	username := flag.String("username", "demo", "Demo account username")
	email := flag.String("email", "demo@example.com", "Demo account email")
	password := flag.String("password", "demo1234", "Demo account password")
	deckName := flag.String("name", "Starter Deck", "Name of the imported deck")
	source := flag.String("ydk", "", "Path or http(s) URL of a .ydk file; the bundled starter deck when empty")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewJSON(logging.ParseLevel(cfg.LogLevel))
	logging.SetDefault(logger)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		fatal(logger, "connect database", err)
	}
	if err := gormDB.AutoMigrate(&model.User{}, &model.Deck{}, &model.DeckCard{}); err != nil {
		fatal(logger, "run migrations", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	user, created, err := ensureUser(ctx, userRepo, *username, *email, *password)
	if err != nil {
		fatal(logger, "seed user", err)
	}
	logger.Info("demo user ready", "user_id", user.ID, "username", user.Username, "created", created)

	raw, err := loadDeck(ctx, *source)
	if err != nil {
		fatal(logger, "load deck", err)
	}

	deckService := service.NewDeckService(repository.NewDeckRepository(gormDB))
	detail, err := deckService.ImportYDK(ctx, user.ID, *deckName, bytes.NewReader(raw))
	switch {
	case errors.Is(err, apperrors.ErrDeckNameTaken):
		logger.Info("deck already seeded", "name", *deckName)
		return
	case err != nil:
		fatal(logger, "import deck", err)
	}

	logger.Info("seed completed",
		"deck_id", detail.ID,
		"deck", detail.Name,
		"main_entries", len(detail.MainDeck),
		"extra_entries", len(detail.ExtraDeck),
	)
}

// ensureUser returns the account matching username, creating it when absent.
func ensureUser(ctx context.Context, repo repository.UserRepository, username, email, password string) (*model.User, bool, error) {
	existing, err := repo.FindByIdentifier(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("look up %s: %w", username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", username, err)
	}
	return user, true, nil
}

// loadDeck reads a .ydk from a URL, a file, or the bundled starter deck.
func loadDeck(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "":
		return starterDecks.ReadFile("decks/starter.ydk")
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetchDeck(ctx, source)
	default:
		return os.ReadFile(source)
	}
}

func fetchDeck(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func fatal(logger *logging.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	_ = logger.Sync()
	os.Exit(1)
}
