package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mediavault/mediavault/internal/common"
)

// Register prompts for the account fields and creates the account. A
// successful registration leaves the user logged in.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.creds.Register(ctx, email, string(pw), username, false)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			printlnFn("That email is already used")
			return nil
		}
		if errors.Is(err, common.ErrValidation) {
			printlnFn("Invalid input:", err.Error())
			return nil
		}
		return err
	}

	a.setUser(user)
	printlnFn("Registered and logged in as", user.Username)
	return nil
}

// Login prompts for credentials and opens a session. A failed login never
// reveals which part of the credentials was wrong.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	remember, err := GetConfirmation(a.reader, "Stay logged in?", os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.creds.Login(ctx, email, string(pw), remember)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			printlnFn("Invalid credentials")
			return nil
		}
		return err
	}

	a.setUser(user)
	printlnFn("Logged in as", user.Username)
	return nil
}

// Logout clears the session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.creds.Logout(ctx); err != nil {
		return err
	}
	a.setUser(nil)
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the current account.
func (a *App) WhoAmI(ctx context.Context) error {
	current := a.currentUser()
	if current == nil {
		printlnFn("Not logged in")
		return nil
	}
	u := current.Sanitized()
	printlnFn(fmt.Sprintf("%s <%s> plan=%s checks=%d storage=%dB",
		u.Username, u.Email, u.Plan, u.ChecksRemaining, u.StorageUsed))
	return nil
}

// restoreSession picks up a previously stored session, if any is valid.
func (a *App) restoreSession(ctx context.Context) {
	user, err := a.sessions.Validate(ctx)
	if err != nil {
		return
	}
	a.setUser(user)
	printlnFn("Welcome back,", user.Username)
}
