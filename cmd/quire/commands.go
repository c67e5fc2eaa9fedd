package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/iw2rmb/quire"
	"github.com/iw2rmb/quire/config"
	"github.com/iw2rmb/quire/document"
)

var (
	configPath string
	logFile    string
	autosave   string
	encoding   string
	forcePut   bool

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "quire",
		Short: "Edit documents that stay in sync with their store",
		Long: `quire keeps an edited buffer consistent with the document in a
file, badger, or Google Cloud Storage store. It saves on request or after a
delay, detects concurrent modification, and reloads external changes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	editCmd = &cobra.Command{
		Use:   "edit <resource>",
		Short: "Open a document in the terminal editor",
		Args:  cobra.ExactArgs(1),
		RunE:  runEdit,
	}

	catCmd = &cobra.Command{
		Use:   "cat <resource>",
		Short: "Print a document as the store holds it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}

	putCmd = &cobra.Command{
		Use:   "put <resource>",
		Short: "Replace a document with standard input and save it",
		Args:  cobra.ExactArgs(1),
		RunE:  runPut,
	}

	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		// The file may not exist yet.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runInitConfig,
	}

	versionCmd = &cobra.Command{
		Use:               "version",
		Short:             "Print the quire version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), quire.VersionTag())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir/quire/quire.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().StringVar(&autosave, "autosave", "", "override autosave mode (off, after_delay)")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "", "override the preferred encoding")

	putCmd.Flags().BoolVar(&forcePut, "force", false, "overwrite even if the stored document changed")

	rootCmd.AddCommand(editCmd, catCmd, putCmd, initConfigCmd, versionCmd)
}

func loadConfig() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if autosave != "" {
		c.Autosave.Mode = autosave
	}
	if encoding != "" {
		c.Encoding = encoding
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// newLogger writes to --log-file when set. The editor owns the terminal, so
// without a file its logs are dropped.
func newLogger(fallback io.Writer) (*slog.Logger, func(), error) {
	w, closeFn := fallback, func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w, closeFn = f, func() { _ = f.Close() }
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(h), closeFn, nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	msgs := make(chan tea.Msg, 64)
	s, err := openSession(ctx, cfg, args[0], sessionOptions{
		Logger: logger,
		Notify: func(msg string) { trySend(msgs, noticeMsg(msg)) },
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Open(ctx); err != nil {
		return err
	}

	m := newModel(s, msgs)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func runCat(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	s, err := openSession(ctx, cfg, args[0], sessionOptions{Logger: logger, Notify: func(string) {}})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ctrl.Load(ctx, document.LoadOptions{}); err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), s.buf.Text())
	return err
}

func runPut(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	s, err := openSession(ctx, cfg, args[0], sessionOptions{Logger: logger, Notify: func(string) {}})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Open(ctx); err != nil {
		return err
	}
	s.buf.SetText(string(data))
	return s.ctrl.Save(ctx, document.SaveOptions{
		Force:               true,
		IgnoreModifiedSince: forcePut,
		Reason:              "put",
	})
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
