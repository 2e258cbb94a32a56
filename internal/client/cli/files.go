package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/repositories/files"
	"github.com/mediavault/mediavault/internal/scan"
)

// List prints the logged-in user's file records.
func (a *App) List(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	records, err := a.files.ListByOwner(ctx, a.currentUser().ID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printlnFn("No files yet")
		return nil
	}
	for _, f := range records {
		printlnFn(fmt.Sprintf("%s  %-30s %8dB  %s  scan=%s", f.ID, f.Name, f.Size, f.ContentType, f.ScanStatus))
	}
	return nil
}

// Upload reads a local file, validates it against the plan, spends a
// content check, scans it, and stores the record with progress feedback.
func (a *App) Upload(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	current := a.currentUser()

	path, err := GetSimpleText(a.reader, "Enter file path", os.Stdout)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Cannot read file:", err.Error())
		return nil
	}

	record := &models.FileRecord{
		OwnerID:     current.ID,
		Name:        filepath.Base(path),
		Size:        int64(len(content)),
		ContentType: contentTypeFor(path),
		Content:     string(content),
	}

	if err := files.ValidateUpload(current, record); err != nil {
		printlnFn("Upload rejected:", err.Error())
		return nil
	}

	user, err := a.creds.ConsumeCheck(ctx, current.ID)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			printlnFn("Upload rejected:", err.Error())
			return nil
		}
		return err
	}
	a.setUser(user)
	current = user

	verdict := a.scans.Check(ctx, record)
	record.ScanID = verdict.ScanID
	record.ScanStatus = verdict.Status
	record.ScanScore = verdict.Score
	if verdict.Status == scan.StatusFlagged {
		printlnFn("Upload rejected: content was flagged by the scan")
		return nil
	}

	task := scan.StartUpload(ctx, 200*time.Millisecond, func(ctx context.Context) error {
		if err := a.files.Save(ctx, record); err != nil {
			return err
		}
		_, err := a.recon.SyncFiles(ctx, current.ID)
		return err
	})
	for pct := range task.Progress() {
		printlnFn(fmt.Sprintf("Uploading... %d%%", pct))
	}
	if err := task.Wait(); err != nil {
		return err
	}

	if err := a.local.AppendActivity(models.ActivityEntry{
		OwnerID:   current.ID,
		Action:    "upload",
		Detail:    record.Name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		a.log.Warn(ctx, "recording activity failed", "error", err)
	}

	printlnFn("Stored", record.Name, "as", record.ID)
	return nil
}

// Delete removes one of the user's file records.
func (a *App) Delete(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	id, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		return err
	}
	owner := a.currentUser().ID
	if err := a.files.Delete(ctx, owner, id); err != nil {
		return err
	}
	if _, err := a.recon.SyncFiles(ctx, owner); err != nil {
		a.log.Warn(ctx, "post-delete sync failed", "error", err)
	}
	printlnFn("Deleted", id)
	return nil
}

// Sync reconciles the user's files and shares with the remote store.
func (a *App) Sync(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	owner := a.currentUser().ID
	merged, err := a.recon.SyncFiles(ctx, owner)
	if err != nil {
		return err
	}
	if _, err := a.recon.SyncOwner(ctx, models.CollectionShares, owner); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Synced %d file record(s)", len(merged)))
	return nil
}

var contentTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".pdf":  "application/pdf",
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[filepath.Ext(path)]; ok {
		return ct
	}
	return "application/octet-stream"
}
