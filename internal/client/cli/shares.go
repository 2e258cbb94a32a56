package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/models"
)

// Share grants another user access to one of the stored files.
func (a *App) Share(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	owner := a.currentUser().ID

	fileID, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		return err
	}
	if _, err := a.files.GetByID(ctx, owner, fileID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No such file:", fileID)
			return nil
		}
		return err
	}

	target, err := GetSimpleText(a.reader, "Share with (email)", os.Stdout)
	if err != nil {
		return err
	}

	share := &models.ShareRecord{OwnerID: owner, FileID: fileID, Target: target}
	if err := a.shares.Create(ctx, share); err != nil {
		return err
	}
	printlnFn("Shared", fileID, "with", target)
	return nil
}

// Shares lists the user's share grants.
func (a *App) Shares(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	grants, err := a.shares.ListByOwner(ctx, a.currentUser().ID)
	if err != nil {
		return err
	}
	if len(grants) == 0 {
		printlnFn("No shares yet")
		return nil
	}
	for _, s := range grants {
		printlnFn(fmt.Sprintf("%s  file=%s -> %s", s.ID, s.FileID, s.Target))
	}
	return nil
}
