// Command sirius-admin manages admin accounts in the SQLite database and
// checks passwords against the configured policy.
//
// Usage:
//
//	sirius-admin [-config config.yaml] create -email chief@example.com
//	sirius-admin [-config config.yaml] set-password -email chief@example.com
//	sirius-admin [-config config.yaml] check-password
//
// Passwords are read from SIRIUS_ADMIN_PASSWORD, or from the first line of
// stdin when that variable is unset.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/config"
	"github.com/siriusexpedition/sirius/server/internal/password"
	"github.com/siriusexpedition/sirius/server/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: sirius-admin [-config path] create|set-password|check-password [flags]")
		flag.PrintDefaults()
	}
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sirius-admin:", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, flag.Arg(0), flag.Args()[1:], os.Stdin, os.Stdout); err != nil {
		var pe *auth.PolicyError
		if errors.As(err, &pe) {
			fmt.Fprintln(os.Stderr, "password rejected:")
			for _, v := range pe.Violations {
				fmt.Fprintln(os.Stderr, "  -", v)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "sirius-admin:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.FromEnv()
	}
	return cfg, err
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	rules := func() password.Rules { return cfg.Server.Password }

	switch cmd {
	case "check-password":
		pw, err := readPassword(stdin)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(password.Check(pw, rules()))

	case "create", "set-password":
		fset := flag.NewFlagSet(cmd, flag.ContinueOnError)
		email := fset.String("email", "", "admin email address")
		if err := fset.Parse(args); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("-email is required")
		}
		pw, err := readPassword(stdin)
		if err != nil {
			return err
		}

		db, err := sqlite.Open(cfg.Server.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		svc := auth.NewService(db, nil, rules)

		if cmd == "create" {
			a, err := svc.CreateAdmin(ctx, *email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "created admin %s (%s)\n", a.Email, a.ID)
			return nil
		}

		a, err := db.AdminByEmail(ctx, *email)
		if err != nil {
			return err
		}
		if err := svc.SetPassword(ctx, a.ID, pw); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "password updated for %s\n", a.Email)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func readPassword(stdin io.Reader) (string, error) {
	if pw := os.Getenv("SIRIUS_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given on stdin or in SIRIUS_ADMIN_PASSWORD")
	}
	return line, nil
}
