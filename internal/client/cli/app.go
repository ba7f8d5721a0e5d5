package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	email       string
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the state database and connects the API client.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.StatePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing state database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, client.WithTimeout(c.RequestTimeout))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, db)

	return &App{
		config:      c,
		authService: as,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.email != ""
}

func (a *App) status() string {
	if a.email == "" {
		return "anonymous"
	}
	return a.email
}

// Run restores the saved session, if any, and serves commands until the
// input ends or the user exits.
func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.authService.Close(ctx) }()

	fmt.Fprintln(a.out, "Welcome to gophauth CLI (type 'help' for commands)")

	email, err := a.authService.Restore(ctx)
	if err != nil {
		a.fail(err)
	}
	a.email = email

	if err := a.authService.Ping(ctx); err != nil {
		fmt.Fprintln(a.out, "Server is not reachable right now:", err)
	}

	runREPL(ctx, a, a.status, a.reader)
}
