package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iw2rmb/quire"
	"github.com/iw2rmb/quire/config"
	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/store"
	"github.com/iw2rmb/quire/store/memstore"
)

func memoryConfig() config.Config {
	c := config.Default()
	c.Store.Kind = config.StoreMemory
	c.Watch.Enabled = false
	return c
}

func openMemorySession(t *testing.T, notify func(string)) *session {
	t.Helper()
	s, err := openSession(context.Background(), memoryConfig(), "doc", sessionOptions{Notify: notify})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Open(context.Background()))
	return s
}

func TestOpenStore_Kinds(t *testing.T) {
	ctx := context.Background()

	be, err := openStore(ctx, config.StoreConfig{Kind: config.StoreMemory}, nil)
	require.NoError(t, err)
	assert.Nil(t, be.files)
	require.NoError(t, be.close())

	dir := t.TempDir()
	be, err = openStore(ctx, config.StoreConfig{Kind: config.StoreFile, Root: dir}, nil)
	require.NoError(t, err)
	require.NotNil(t, be.files)
	assert.Equal(t, filepath.Join(dir, "a.txt"), be.files.Path("a.txt"))

	be, err = openStore(ctx, config.StoreConfig{Kind: config.StoreBadger, Path: filepath.Join(dir, "db")}, nil)
	require.NoError(t, err)
	require.NoError(t, be.close())

	_, err = openStore(ctx, config.StoreConfig{Kind: "ftp"}, nil)
	assert.Error(t, err)
}

func TestSession_OpensMissingResourceAsNew(t *testing.T) {
	var notices []string
	s := openMemorySession(t, func(msg string) { notices = append(notices, msg) })

	assert.Empty(t, s.buf.Text())
	assert.False(t, s.ctrl.IsResolved())
	assert.Empty(t, notices)

	s.buf.SetText("fresh")
	require.NoError(t, s.ctrl.Save(context.Background(), document.SaveOptions{}))
	got, ok := s.backend.Store.(*memstore.Store).Content("doc")
	require.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestDocumentErrors_QuietUntilResolved(t *testing.T) {
	var notices []string
	s := openMemorySession(t, func(msg string) { notices = append(notices, msg) })
	h := newDocumentErrors(func(msg string) { notices = append(notices, msg) })

	h.HandleError(context.Background(), s.ctrl, store.ErrNotFound)
	assert.Empty(t, notices)

	h.HandleError(context.Background(), s.ctrl, errors.New("disk full"))
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "disk full")
}

func TestModel_EditAndSave(t *testing.T) {
	s := openMemorySession(t, nil)
	m := tea.Model(newModel(s, make(chan tea.Msg, 8)))

	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 5})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	assert.Equal(t, "hi", s.buf.Text())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	done, ok := cmd().(opDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	got, _ := s.backend.Store.(*memstore.Store).Content("doc")
	assert.Equal(t, "hi", got)
	assert.Equal(t, document.StateSaved, s.ctrl.State())

	m, _ = m.Update(done)
	view := m.View()
	assert.Contains(t, view, "doc")
	assert.Contains(t, view, "saved")
}

func TestModel_NoticesAndQuit(t *testing.T) {
	s := openMemorySession(t, nil)
	msgs := make(chan tea.Msg, 8)
	m := tea.Model(newModel(s, msgs))
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 5})

	trySend(msgs, noticeMsg("remote changed"))
	msg := m.Init()()
	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "remote changed")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
}

func TestCommands_PutThenCat(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "quire.yaml")
	yaml := "store:\n  kind: file\n  root: " + dir + "\nwatch:\n  enabled: false\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	rootCmd.SetIn(strings.NewReader("first line\n"))
	rootCmd.SetArgs([]string{"--config", cfgPath, "put", "notes.txt"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first line\n", string(data))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "cat", "notes.txt"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "first line\n", out.String())

	rootCmd.SetIn(strings.NewReader("second\n"))
	rootCmd.SetArgs([]string{"--config", cfgPath, "put", "notes.txt"})
	require.NoError(t, rootCmd.Execute())
	data, err = os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

func TestCommands_Version(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, quire.VersionTag()+"\n", out.String())
}
