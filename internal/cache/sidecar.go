package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// Sidecar persists phantom sync state across sessions in a per-workspace
// SQLite database. Writes are batched and flushed in the background; Close
// flushes whatever is pending.
type Sidecar struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	pending map[workspace.Path]*pendingOp
	done    chan struct{}
	stopped bool
}

// pendingOp is one buffered upsert or delete. An op with delete set is a tombstone.
type pendingOp struct {
	kind      workspace.Kind
	syncBytes []byte
	folder    *syncinfo.FolderSync
	delete    bool
}

// OpenSidecar opens (or creates) the phantom sidecar database at path.
func OpenSidecar(path string) (*Sidecar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create sidecar dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sidecar db: %w", err)
	}

	s := &Sidecar{
		db:      db,
		path:    path,
		pending: make(map[workspace.Path]*pendingOp),
		done:    make(chan struct{}),
	}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	go s.flushLoop()

	return s, nil
}

func (s *Sidecar) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS phantoms (
			path          TEXT PRIMARY KEY,
			kind          INTEGER NOT NULL,
			sync          BLOB,
			folder_root   TEXT,
			folder_repo   TEXT,
			folder_tag    TEXT,
			folder_static INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Load replays every persisted phantom into fn.
func (s *Sidecar) Load(fn func(p workspace.Path, kind workspace.Kind, syncBytes []byte, fs *syncinfo.FolderSync)) error {
	rows, err := s.db.Query(
		"SELECT path, kind, sync, folder_root, folder_repo, folder_tag, folder_static FROM phantoms")
	if err != nil {
		return fmt.Errorf("load phantoms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			path      string
			kind      int
			syncBytes []byte
			root      sql.NullString
			repo      sql.NullString
			tag       sql.NullString
			static    int
		)
		if err := rows.Scan(&path, &kind, &syncBytes, &root, &repo, &tag, &static); err != nil {
			return fmt.Errorf("scan phantom: %w", err)
		}
		var fs *syncinfo.FolderSync
		if root.Valid && repo.Valid {
			fs = &syncinfo.FolderSync{
				Root:       root.String,
				Repository: repo.String,
				Static:     static != 0,
			}
			if tag.Valid && tag.String != "" {
				fs.Tag = syncinfo.ParseTagFile(tag.String)
			}
		}
		fn(workspace.Path(path), workspace.Kind(kind), syncBytes, fs)
	}
	return rows.Err()
}

// Upsert buffers a phantom record for writing.
func (s *Sidecar) Upsert(p workspace.Path, kind workspace.Kind, syncBytes []byte, fs *syncinfo.FolderSync) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p] = &pendingOp{kind: kind, syncBytes: syncBytes, folder: fs}
	if len(s.pending) >= 100 {
		_ = s.flushLocked()
	}
}

// Delete buffers removal of a phantom record.
func (s *Sidecar) Delete(p workspace.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p] = &pendingOp{delete: true}
	if len(s.pending) >= 100 {
		_ = s.flushLocked()
	}
}

// Flush writes any pending operations to the database.
func (s *Sidecar) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Sidecar) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	upsert, err := tx.Prepare(`
		INSERT OR REPLACE INTO phantoms
			(path, kind, sync, folder_root, folder_repo, folder_tag, folder_static)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	del, err := tx.Prepare("DELETE FROM phantoms WHERE path = ?")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer del.Close()

	for p, op := range s.pending {
		if op.delete {
			if _, err := del.Exec(string(p)); err != nil {
				tx.Rollback()
				return fmt.Errorf("delete %s: %w", p, err)
			}
			continue
		}
		var root, repo, tag any
		static := 0
		if op.folder != nil {
			root = op.folder.Root
			repo = op.folder.Repository
			if op.folder.Tag != nil {
				tag = op.folder.Tag.TagFileLine()
			}
			if op.folder.Static {
				static = 1
			}
		}
		if _, err := upsert.Exec(string(p), int(op.kind), op.syncBytes, root, repo, tag, static); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	clear(s.pending)
	return nil
}

func (s *Sidecar) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			_ = s.flushLocked()
			s.mu.Unlock()
		}
	}
}

// Close flushes any pending writes and closes the database.
func (s *Sidecar) Close() error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	err := s.flushLocked()
	s.mu.Unlock()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Path returns the sidecar database location.
func (s *Sidecar) Path() string {
	return s.path
}
