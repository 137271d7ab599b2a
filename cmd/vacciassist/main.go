package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"vacciassist/internal/config"
	"vacciassist/internal/schedule"
	"vacciassist/internal/server"
	"vacciassist/internal/session"
	"vacciassist/internal/tui"
)

const configKey = "config"

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vacciassist",
		Usage: "Vaccination assistant that answers questions from an uploaded leaflet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file (default ./config.yaml or ~/.config/vacciassist/config.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set logging format (text, json); overrides the config file",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Open the interactive chat",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "doc",
						Aliases: []string{"d"},
						Usage:   "Document to index before the chat starts",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Re-index the document when it changes on disk",
					},
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "Write logs to this file (the terminal belongs to the chat)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address; overrides the config file",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question and exit",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "doc",
						Aliases: []string{"d"},
						Usage:   "Document to ground the answer in",
					},
				},
			},
			{
				Name:   "schedule",
				Usage:  "List the vaccines due for a birth date",
				Action: scheduleCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "birth",
						Aliases:  []string{"b"},
						Usage:    "Birth date (YYYY-MM-DD)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "on",
						Usage: "Reference date (YYYY-MM-DD), default today",
					},
				},
			},
			{
				Name:      "init-config",
				Usage:     "Write the default configuration",
				ArgsUsage: "[path]",
				Action:    initConfigCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

// setup loads the configuration and installs the default logger.
func setup(c *cli.Context) error {
	var (
		cfg  *config.AppConfig
		path string
		err  error
	)
	switch {
	case c.String("config") != "":
		path = c.String("config")
		cfg, err = config.Load(path)
	case c.Args().First() == "init-config" || c.Args().First() == "schedule":
		// these must not create files as a side effect
		cfg = config.Default()
	default:
		cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	logger, err := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if path != "" {
		slog.Debug("config loaded", "path", path)
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func appConfig(c *cli.Context) *config.AppConfig {
	if cfg, ok := c.App.Metadata[configKey].(*config.AppConfig); ok {
		return cfg
	}
	return config.Default()
}

func chatCommand(c *cli.Context) error {
	cfg := appConfig(c)
	doc := c.String("doc")
	if c.Bool("watch") && doc == "" {
		return errors.New("--watch needs --doc")
	}

	var logOut io.Writer = io.Discard
	if p := c.String("log-file"); p != "" {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := newLogger(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	completer, err := buildCompleter(cfg.LLM, true)
	if err != nil {
		return err
	}
	newSession, err := sessionFactory(cfg, completer, true)
	if err != nil {
		return err
	}
	s := newSession()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if doc != "" {
		data, err := os.ReadFile(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Indexing %s...\n", doc)
		if _, err := s.Upload(ctx, filepath.Base(doc), data); err != nil {
			return err
		}
	}

	p := tea.NewProgram(tui.New(ctx, s, tui.Options{}), tea.WithAltScreen(), tea.WithContext(ctx))
	if c.Bool("watch") {
		stopWatch, err := tui.Watch(doc, p.Send)
		if err != nil {
			return fmt.Errorf("watch %s: %w", doc, err)
		}
		defer stopWatch()
	}
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg := appConfig(c)
	addr := cfg.Server.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}

	completer, err := buildCompleter(cfg.LLM, false)
	if err != nil {
		return err
	}
	newSession, err := sessionFactory(cfg, completer, false)
	if err != nil {
		return err
	}

	srv := server.New(session.NewStore(newSession), schedule.PNI(), server.Config{
		BodyLimitMB: cfg.Server.BodyLimitMB,
		IdleTimeout: time.Duration(cfg.Session.IdleTimeoutMin) * time.Minute,
	})
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, addr)
}

func askCommand(c *cli.Context) error {
	cfg := appConfig(c)
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	completer, err := buildCompleter(cfg.LLM, true)
	if err != nil {
		return err
	}
	newSession, err := sessionFactory(cfg, completer, true)
	if err != nil {
		return err
	}
	return ask(c.Context, c.App.Writer, newSession(), c.String("doc"), question)
}

// ask indexes doc (when given) and prints the answer with its sources.
func ask(ctx context.Context, w io.Writer, s *session.Session, doc, question string) error {
	if doc != "" {
		data, err := os.ReadFile(doc)
		if err != nil {
			return err
		}
		res, err := s.Upload(ctx, filepath.Base(doc), data)
		if err != nil {
			return err
		}
		slog.Info("document indexed", "name", res.Document.Name, "segments", res.Document.Segments)
	}
	ans, err := s.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, ans.Text)
	if ans.Grounded {
		fmt.Fprintln(w)
		for _, seg := range ans.Sources {
			fmt.Fprintf(w, "[%d] %s\n", seg.Index, oneLine(seg.Text, 120))
		}
	} else {
		fmt.Fprintln(w, "\n(general knowledge)")
	}
	return nil
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}

func scheduleCommand(c *cli.Context) error {
	birth, err := schedule.ParseDate(c.String("birth"))
	if err != nil {
		return err
	}
	ref := time.Now()
	if v := c.String("on"); v != "" {
		if ref, err = schedule.ParseDate(v); err != nil {
			return err
		}
	}
	rec, err := schedule.PNI().Recommend(birth, ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Age: %d months\n", rec.Months)
	for _, v := range rec.Vaccines {
		fmt.Fprintf(c.App.Writer, "  - %s\n", v)
	}
	return nil
}

func initConfigCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		var err error
		if path, err = config.DefaultUserConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}
