// Command blogctl runs maintenance tasks against the blog database and content store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/gorm"

	"maiblog/internal/auth"
	"maiblog/internal/cache"
	"maiblog/internal/config"
	"maiblog/internal/content"
	"maiblog/internal/db"
	"maiblog/internal/events"
	"maiblog/internal/importer"
	"maiblog/internal/model"
	"maiblog/internal/observability"
	"maiblog/internal/repository"
	"maiblog/internal/service"
)

const usage = `usage: blogctl <command> [flags]

commands:
  import       --dir DIR [--visibility public|registered|member]
  clear        --all --yes | --slug SLUG [SLUG...]
  create-user  --email EMAIL [--role user|member|admin]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "import":
		err = runImport(ctx, cfg, logger, args)
	case "clear":
		err = runClear(ctx, cfg, logger, args)
	case "create-user":
		err = runCreateUser(ctx, cfg, logger, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error(cmd+" failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}
	return gormDB, nil
}

// newPostService builds the post service on the server's cache so writes evict what the server serves.
// The returned func releases the cache connection.
func newPostService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.PostService, func(), error) {
	gormDB, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := content.Open(ctx, cfg.Content)
	if err != nil {
		return nil, nil, err
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, cached posts may be served until they expire", zap.Error(err))
	}
	closeCache := func() { _ = cacheClient.Close() }

	posts := service.NewPostService(repository.NewPostRepository(gormDB), store, auth.NewGate(nil), cacheClient, logger)
	return posts, closeCache, nil
}

func runImport(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory containing *.md files")
	visibility := fs.String("visibility", model.VisibilityRegistered, "visibility for imported posts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("--dir is required")
	}
	if !model.ValidVisibility(*visibility) {
		return fmt.Errorf("invalid visibility %q", *visibility)
	}

	posts, closeCache, err := newPostService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	result, err := importer.New(posts, logger).ImportDir(ctx, *dir, *visibility)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d post(s), skipped %d\n", result.Created, result.Skipped)
	return nil
}

type clearOptions struct {
	all   bool
	yes   bool
	slugs []string
}

func parseClearArgs(args []string) (clearOptions, error) {
	var opts clearOptions
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.BoolVar(&opts.all, "all", false, "delete every post")
	fs.BoolVar(&opts.yes, "yes", false, "confirm --all")
	fs.Func("slug", "slug to delete; further positional arguments are slugs too", func(v string) error {
		opts.slugs = append(opts.slugs, v)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if len(opts.slugs) > 0 {
		opts.slugs = append(opts.slugs, fs.Args()...)
	} else if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments %v", fs.Args())
	}

	switch {
	case opts.all && len(opts.slugs) > 0:
		return opts, errors.New("--all and --slug are mutually exclusive")
	case opts.all && !opts.yes:
		return opts, errors.New("--all requires --yes")
	case !opts.all && len(opts.slugs) == 0:
		return opts, errors.New("either --all or --slug is required")
	}
	return opts, nil
}

func runClear(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	opts, err := parseClearArgs(args)
	if err != nil {
		return err
	}
	posts, closeCache, err := newPostService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	if opts.all {
		n, err := posts.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d post(s)\n", n)
		return nil
	}

	deleted := 0
	for _, slug := range opts.slugs {
		if err := posts.DeleteBySlug(ctx, slug); err != nil {
			logger.Warn("delete failed", zap.String("slug", slug), zap.Error(err))
			continue
		}
		deleted++
	}
	fmt.Printf("deleted %d of %d post(s)\n", deleted, len(opts.slugs))
	return nil
}

func runCreateUser(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	role := fs.String("role", model.RoleUser, "user, member or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}
	if !model.ValidRole(*role) {
		return fmt.Errorf("invalid role %q", *role)
	}

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	gormDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	users := service.NewAuthService(
		repository.NewUserRepository(gormDB),
		auth.NewHasher(cfg.Auth.SecretKey),
		auth.NewTokenCodec(cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTLMinutes),
		events.NopPublisher{},
		logger,
	)
	user, err := users.CreateUser(ctx, *email, password, *role)
	if err != nil {
		return err
	}
	fmt.Printf("created user %d <%s> with role %s\n", user.ID, user.Email, user.Role)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
