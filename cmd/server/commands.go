package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/gorilla/securecookie"
	"github.com/sifan077/spectra/config"
	apprepository "github.com/sifan077/spectra/internal/app/repository"
	appservice "github.com/sifan077/spectra/internal/app/service"
)

const defaultRootEmail = "admin@localhost"

// generateCookieKey returns a base64 key of twice the minimum length.
func generateCookieKey() (string, error) {
	raw := securecookie.GenerateRandomKey(2 * config.MinCookieKeyLength)
	if raw == nil {
		return "", errors.New("failed to read random bytes")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func genKey(args []string) error {
	fs := newFlagSet("gen-key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := generateCookieKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, key)
	return nil
}

func initConfig(args []string) error {
	fs := newFlagSet("init-config")
	path := fs.StringP("config", "c", "config.yaml", "where to write the config file")
	force := fs.BoolP("force", "f", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return writeDefaultConfig(*path, *force)
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, pass --force to overwrite", path)
	}
	cfg := config.Default()
	key, err := generateCookieKey()
	if err != nil {
		return err
	}
	cfg.Server.CookieKey = key
	if err := config.Write(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", path)
	return nil
}

func resetAdmin(args []string) error {
	fs := newFlagSet("reset-admin")
	configPath := fs.StringP("config", "c", "", "path to config.yaml")
	email := fs.StringP("email", "e", defaultRootEmail, "email of the root account when it is created")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	users := appservice.NewUserService(appservice.UserDeps{Users: apprepository.NewUserRepository(db)})
	password, err := users.ResetRoot(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "root password: %s\n", password)
	return nil
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Spectra sharing service
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.User}}
WorkingDirectory={{.WorkDir}}
ExecStart={{.Binary}} serve --config {{.Config}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`))

type unitData struct {
	User    string
	WorkDir string
	Binary  string
	Config  string
}

func genService(args []string) error {
	fs := newFlagSet("gen-service")
	configPath := fs.StringP("config", "c", "config.yaml", "config file the service loads")
	user := fs.StringP("user", "u", "spectra", "account the service runs as")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if runtime.GOOS != "linux" {
		return fmt.Errorf("systemd units are only supported on linux, not %s", runtime.GOOS)
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cfgAbs, err := filepath.Abs(*configPath)
	if err != nil {
		return err
	}
	return writeUnit(os.Stdout, unitData{
		User:    *user,
		WorkDir: filepath.Dir(cfgAbs),
		Binary:  binary,
		Config:  cfgAbs,
	})
}

func writeUnit(w io.Writer, data unitData) error {
	return unitTemplate.Execute(w, data)
}
