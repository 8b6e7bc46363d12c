package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"qkd-demo/configs"
)

var logger = logrus.New()

// SetLogger replaces the package logger. The TUI owns the terminal, so callers
// usually point it at a file.
func SetLogger(l *logrus.Logger) {
	logger = l
}

// App wires the terminal page, the relay connection and the router together
type App struct {
	cfg    *configs.Config
	tui    *TUI
	conn   *Conn
	router *Router
	wg     sync.WaitGroup
}

// NewApp creates an App for cfg
func NewApp(cfg *configs.Config) *App {
	return &App{cfg: cfg, tui: NewTUI(cfg.EncryptionModels)}
}

// Run connects to the relay and runs the terminal page until the user quits
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.tui.InitGui(); err != nil {
		return err
	}
	defer app.tui.Gui.Close()

	conn, err := Dial(ctx, app.cfg.WebSocketURL())
	if err != nil {
		return err
	}
	app.conn = conn
	app.router = NewRouter(app.tui, conn)

	if err := app.tui.Bind(app.router, app.quit); err != nil {
		conn.Close()
		return err
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.listen(ctx)
	}()

	logger.Infof("Connected to %s", app.cfg.WebSocketURL())
	err = app.tui.Gui.MainLoop()
	cancel()
	conn.Close()
	app.wg.Wait()
	if err != nil && !errors.Is(err, gocui.ErrQuit) {
		return fmt.Errorf("error in gocui main loop: %w", err)
	}
	return nil
}

// listen forwards inbound events to the router on the gocui main loop
func (app *App) listen(ctx context.Context) {
	dispatch := func(name string, payload json.RawMessage) {
		app.tui.Post(func() {
			app.router.Dispatch(name, payload)
		})
	}
	onError := func(err error) {
		app.tui.Post(func() {
			app.router.Drop("frame", err)
		})
	}

	if err := app.conn.Listen(ctx, dispatch, onError); err != nil {
		logger.Errorf("Error reading from relay: %v", err)
		app.tui.Post(func() {
			app.tui.AppendLog("System", "disconnected: "+err.Error())
		})
	}
}

// quit handles quitting the application
func (app *App) quit(_ *gocui.Gui, _ *gocui.View) error {
	logger.Info("Shutting down gracefully...")
	if app.conn != nil {
		app.conn.Close()
	}
	return gocui.ErrQuit
}
