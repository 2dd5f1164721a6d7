package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pulsedash/pulsedash/internal/api"
	dbstore "github.com/pulsedash/pulsedash/internal/db"
	"github.com/pulsedash/pulsedash/internal/geo"
	"github.com/pulsedash/pulsedash/internal/logger"
	"github.com/pulsedash/pulsedash/internal/middleware"
	"github.com/pulsedash/pulsedash/internal/services"
	"github.com/pulsedash/pulsedash/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	log, err := logger.New(utils.SafeEnv("PULSEDASH_MODE", "dev"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	addr := utils.SafeEnv("PULSEDASH_ADDR", ":8080")
	pageSize := utils.SafeEnvInt("PULSEDASH_PAGE_SIZE", services.DefaultPageSize)
	commit := os.Getenv("PULSEDASH_COMMIT")
	buildTime := os.Getenv("PULSEDASH_BUILD_TIME")

	store, err := openStore(log)
	if err != nil {
		log.Fatal("open store", "error", err)
	}

	if err := bootstrapAdmin(store); err != nil {
		log.Fatal("bootstrap admin user", "error", err)
	}

	var boundaries services.BoundaryProvider
	if geoURL := os.Getenv("PULSEDASH_GEOJSON_URL"); geoURL != "" {
		timeout := time.Duration(utils.SafeEnvInt("PULSEDASH_GEOJSON_TIMEOUT", 5)) * time.Second
		boundaries = geo.NewHTTPProvider(geoURL, timeout)
		log.Info("boundary provider configured", "url", geoURL, "timeout", timeout)
	} else {
		log.Warn("PULSEDASH_GEOJSON_URL not set, demographic views render without the map layer")
	}

	mux := http.NewServeMux()
	api.NewRouter(store, boundaries, pageSize).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "PulseDash API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.RequestID(
		middleware.NoStore(
			middleware.SecureHeaders(
				middleware.CORS(
					middleware.WithAuth(mux)))))

	log.Info("server listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal("server error", "error", err)
	}
}

// openStore opens the SQLite-backed store, or an in-memory store when no
// path is configured (useful for local demos).
func openStore(log *logger.Logger) (api.Store, error) {
	sqlitePath := os.Getenv("PULSEDASH_SQLITE_PATH")
	if sqlitePath == "" {
		log.Warn("PULSEDASH_SQLITE_PATH not set, using volatile in-memory store")
		return api.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := dbstore.RunMigrations(conn, os.Getenv("PULSEDASH_MIGRATIONS_DIR")); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := dbstore.NewStore(conn)
	if err != nil {
		return nil, err
	}
	log.Info("sqlite store ready", "path", sqlitePath)
	return store, nil
}

// bootstrapAdmin creates the initial admin account from the environment on
// first start. An existing account is left untouched.
func bootstrapAdmin(store api.Store) error {
	username := os.Getenv("PULSEDASH_ADMIN_USER")
	password := os.Getenv("PULSEDASH_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}
	existing, err := store.FindUser(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	auth := services.NewAuthService(store, middleware.SignToken)
	system := services.Session{Username: "system", Role: services.RoleAdmin}
	_, err = auth.Register(system, username, password, services.RoleAdmin)
	return err
}
