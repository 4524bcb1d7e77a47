package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrCheckpointInMemory  = errors.New("in-memory databases cannot be checkpointed")
)

// maxAutoCheckpoints bounds how many automatic checkpoints are kept.
const maxAutoCheckpoints = 5

// CheckpointManager snapshots the database file so that taxonomy-wide
// rewrites such as merges and imports can be rolled back.
type CheckpointManager struct {
	db             *sql.DB
	dbPath         string
	checkpointsDir string
}

// CheckpointInfo describes one snapshot.
type CheckpointInfo struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	FileSize      int64     `json:"file_size"`
	Transactions  int       `json:"transactions"`
	Tags          int       `json:"tags"`
	Rules         int       `json:"rules"`
	SchemaVersion int       `json:"schema_version"`
	IsAuto        bool      `json:"is_auto"`
}

// NewCheckpointManager returns a manager writing next to the database file.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	if s.dbPath == ":memory:" {
		return nil, ErrCheckpointInMemory
	}
	dir := filepath.Join(filepath.Dir(s.dbPath), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve checkpoints directory: %w", err)
	}
	return &CheckpointManager{db: s.db, dbPath: s.dbPath, checkpointsDir: abs}, nil
}

// Create snapshots the database under id. An empty id is generated from the clock.
func (cm *CheckpointManager) Create(ctx context.Context, id, description string) (*CheckpointInfo, error) {
	return cm.create(ctx, id, description, false)
}

func (cm *CheckpointManager) create(ctx context.Context, id, description string, auto bool) (*CheckpointInfo, error) {
	if id == "" {
		id = fmt.Sprintf("checkpoint-%s", time.Now().Format("2006-01-02-150405"))
	}
	if err := validateCheckpointID(id); err != nil {
		return nil, err
	}

	path := cm.snapshotPath(id)
	if _, err := os.Stat(path); err == nil {
		return nil, ErrCheckpointExists
	}

	var schemaVersion int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	info := &CheckpointInfo{
		ID:            id,
		CreatedAt:     time.Now(),
		Description:   description,
		SchemaVersion: schemaVersion,
		IsAuto:        auto,
	}
	counts := map[string]*int{
		"SELECT COUNT(*) FROM transactions":         &info.Transactions,
		"SELECT COUNT(*) FROM tags":                 &info.Tags,
		"SELECT COUNT(*) FROM classification_rules": &info.Rules,
	}
	for query, dest := range counts {
		if err := cm.db.QueryRowContext(ctx, query).Scan(dest); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if err := cm.backupDatabase(ctx, path); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}
	info.FileSize = stat.Size()

	if err := cm.saveMetadata(*info); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Error("failed to remove checkpoint after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	slog.Info("created checkpoint", "id", id, "auto", auto, "size", info.FileSize)
	return info, nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := cm.loadMetadata(filepath.Join(cm.checkpointsDir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		checkpoints = append(checkpoints, *info)
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// Restore replaces the database file with the snapshot. The storage the
// manager was created from is closed and must be reopened by the caller.
func (cm *CheckpointManager) Restore(_ context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}

	path := cm.snapshotPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if err := verifyIntegrity(path); err != nil {
		slog.Error("checkpoint failed integrity check", "id", id, "error", err)
		return ErrCheckpointCorrupted
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	backup := cm.dbPath + ".restore-backup"
	if err := copyFile(cm.dbPath, backup); err != nil {
		return fmt.Errorf("failed to backup current database: %w", err)
	}
	if err := copyFile(path, cm.dbPath); err != nil {
		if restoreErr := copyFile(backup, cm.dbPath); restoreErr != nil {
			slog.Error("failed to put back database after restore failure", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	// Stale WAL pages would otherwise be replayed over the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(cm.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove journal file", "file", cm.dbPath+suffix, "error", err)
		}
	}
	if err := os.Remove(backup); err != nil {
		slog.Error("failed to remove restore backup", "error", err)
	}

	slog.Info("restored checkpoint", "id", id)
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(_ context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}

	path := cm.snapshotPath(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	if err := os.Remove(cm.metadataPath(id)); err != nil {
		slog.Debug("failed to remove checkpoint metadata", "id", id, "error", err)
	}
	return nil
}

// AutoCheckpoint snapshots the database before operation and prunes old
// automatic checkpoints.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, operation string) (*CheckpointInfo, error) {
	id := fmt.Sprintf("auto-%s-%s", operation, time.Now().Format("2006-01-02-150405.000"))
	info, err := cm.create(ctx, id, fmt.Sprintf("Automatic checkpoint before %s", operation), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	if err := cm.pruneAuto(ctx); err != nil {
		slog.Warn("failed to prune auto-checkpoints", "error", err)
	}
	return info, nil
}

func (cm *CheckpointManager) pruneAuto(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}
	kept := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		kept++
		if kept <= maxAutoCheckpoints {
			continue
		}
		if err := cm.Delete(ctx, cp.ID); err != nil {
			slog.Debug("failed to delete old auto-checkpoint", "id", cp.ID, "error", err)
		}
	}
	return nil
}

func (cm *CheckpointManager) snapshotPath(id string) string {
	return filepath.Join(cm.checkpointsDir, id+".db")
}

func (cm *CheckpointManager) metadataPath(id string) string {
	return filepath.Join(cm.checkpointsDir, id+".meta.json")
}

func (cm *CheckpointManager) backupDatabase(ctx context.Context, dest string) error {
	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	if strings.ContainsAny(dest, "'\";") {
		return fmt.Errorf("invalid destination path %q", dest)
	}
	// #nosec G201 - dest is built from a validated id
	if _, err := cm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying file", "error", err)
		return copyFile(cm.dbPath, dest)
	}
	return nil
}

func (cm *CheckpointManager) saveMetadata(info CheckpointInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	path := cm.metadataPath(info.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (cm *CheckpointManager) loadMetadata(path string) (*CheckpointInfo, error) {
	// #nosec G304 - path is inside the checkpoints directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info CheckpointInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func validateCheckpointID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid checkpoint id %q", id)
	}
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close checkpoint database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 - paths come from the storage configuration
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			slog.Error("failed to close source file", "error", err)
		}
	}()

	tmp := dst + ".tmp"
	destination, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
