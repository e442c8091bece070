package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"comicshelf/internal/gateway"
)

// AuthRegister creates an account and stores the issued token.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	u, err := r.client.SignUp(ctx, cmd.String("username"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	r.logger.Info("account created", "username", u.Username)
	return r.writePlain("✓ signed in as %s\n", u.Username)
}

// AuthLogin signs in and stores the token for later commands.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	u, err := r.client.SignIn(ctx, cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ signed in as %s\n", u.Username)
}

// AuthLogout revokes the stored token and deletes it. The local session is
// dropped even when the server cannot be reached.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.client.LoadToken(); err != nil {
		return err
	}
	if err := r.client.SignOut(ctx); err != nil {
		r.logger.Warn("server-side revoke failed", "err", err)
	}
	return r.writePlain("✓ signed out\n")
}

// AuthWhoami shows the account the stored token belongs to.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	u, err := r.client.RestoreSession(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrAuthRequired) {
			return fmt.Errorf("not signed in")
		}
		return err
	}
	return r.writePlain("%s <%s>\n", u.Username, u.Email)
}
