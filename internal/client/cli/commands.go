package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// getSimpleText and getPassword are indirections swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// fail prints err in a form fit for the user and returns it.
func (a *App) fail(err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "error: server unavailable")
	default:
		fmt.Fprintln(a.out, "error:", common.Message(err))
	}
	return err
}

func (a *App) printUser(u *pb.User) {
	if u == nil {
		return
	}
	fmt.Fprintf(a.out, "id:        %s\nemail:     %s\nfull name: %s\ncreated:   %s\n",
		u.ID, u.Email, u.FullName, u.CreatedAt.Local().Format("2006-01-02 15:04:05"))
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return a.fail(fmt.Errorf("%w: log in first", client.ErrNotLoggedIn))
	}
	return nil
}

// Register prompts for email, full name and password and creates an
// account. It does not log in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.fail(err)
	}
	fullName, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return a.fail(err)
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return a.fail(err)
	}

	u, err := a.authService.Register(ctx, email, fullName, password)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "User registered successfully")
	a.printUser(u)
	return nil
}

// Login prompts for credentials and starts a session. A successful login
// replaces any session the CLI held before.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.fail(err)
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return a.fail(err)
	}

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return a.fail(err)
	}

	a.email = email
	if u != nil && u.Email != "" {
		a.email = u.Email
	}
	fmt.Fprintln(a.out, "Logged in as", a.email)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	u, err := a.authService.CurrentUser(ctx)
	if err != nil {
		a.forgetIfRejected(err)
		return a.fail(err)
	}

	a.printUser(u)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	if err := a.authService.Refresh(ctx); err != nil {
		a.forgetIfRejected(err)
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	current, err := getPassword(a.out, "Enter current password")
	if err != nil {
		return a.fail(err)
	}
	next, err := getPassword(a.out, "Enter new password")
	if err != nil {
		common.WipeByteArray(current)
		return a.fail(err)
	}

	if err := a.authService.ChangePassword(ctx, current, next); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Password changed successfully")
	return nil
}

// Logout ends the session. The local session is forgotten even when the
// server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	err := a.authService.Logout(ctx)
	a.email = ""
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) forgetIfRejected(err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		a.email = ""
		fmt.Fprintln(a.out, "Session is no longer valid, please log in again")
	}
}
