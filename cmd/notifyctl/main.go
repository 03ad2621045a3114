package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/shared/infrastructure/config"
	"github.com/attendify/notify-agent/internal/shared/infrastructure/logger"
	"github.com/attendify/notify-agent/internal/shared/utils"
	"github.com/attendify/notify-agent/pkg/migration"
)

const version = "0.1.0"

const usage = `Notification agent control.

Configuration is read the same way as the server: CONFIG_FILE plus the
environment.

Usage:
    notifyctl migrate (up | down | version)
    notifyctl migrate force <version>
    notifyctl token --user=<uuid> [--role=<role>] [--ttl=<ttl>]
    notifyctl -h | --help
    notifyctl --version

Options:
    -h --help       Show this screen.
    --version       Show version.
    --user=<uuid>   User id carried in the token.
    --role=<role>   Role carried in the token [default: superadmin].
    --ttl=<ttl>     Token lifetime [default: 24h].`

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := run(os.Args[1:], cfg, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(args []string, cfg *config.Config, out io.Writer) error {
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpAndExit}
	opts, err := parser.ParseArgs(usage, args, version)
	if err != nil {
		return err
	}

	if migrate, _ := opts.Bool("migrate"); migrate {
		return migrateCmd(opts, cfg, out)
	}
	if token, _ := opts.Bool("token"); token {
		return tokenCmd(opts, cfg, out)
	}
	return nil
}

func migrateCmd(opts docopt.Opts, cfg *config.Config, out io.Writer) error {
	zl, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	runner := migration.NewRunner(&migration.Config{
		MigrationsPath: cfg.Journal.MigrationsPath,
		DatabaseURL:    cfg.Journal.URL(),
		Logger:         zl.Named("migrate"),
	})

	if force, _ := opts.Bool("force"); force {
		raw, _ := opts.String("<version>")
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", raw, err)
		}
		return runner.Force(v)
	}
	if up, _ := opts.Bool("up"); up {
		return runner.Up()
	}
	if down, _ := opts.Bool("down"); down {
		return runner.Down()
	}

	v, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	zl.Debug("migration version read", zap.Uint("version", v), zap.Bool("dirty", dirty))
	_, err = fmt.Fprintf(out, "version %d dirty=%t\n", v, dirty)
	return err
}

// tokenCmd mints a token signed with the configured secret, for calling the
// agent's endpoints during development.
func tokenCmd(opts docopt.Opts, cfg *config.Config, out io.Writer) error {
	rawUser, _ := opts.String("--user")
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}

	role, _ := opts.String("--role")
	if role == "" {
		role = domain.RoleSuperAdmin
	}

	rawTTL, _ := opts.String("--ttl")
	ttl, err := time.ParseDuration(rawTTL)
	if err != nil || ttl <= 0 {
		return fmt.Errorf("invalid --ttl %q", rawTTL)
	}

	token, err := utils.GenerateToken(userID, role, cfg.JWT.Secret, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
