// persistence.go: Persistence (C6) — SQLite-backed log_entries and
// analysis_rows tables with WAL mode, schema migrations, and indexes.
//
// Adapted from audit_backend.go's sqliteAuditBackend: same
// pragma string, same schema_info-driven incremental migration harness,
// same prepared-statement insert path, repointed from a single generic
// audit_events table onto the two domain tables SPEC_FULL.md §4.6 names.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	errors "github.com/agilira/go-errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// LogEntry is one raw activity record (C3/C4 output), persisted whether
// or not it was ever analyzed. AnalysisID is nil until LinkAnalysis
// connects this entry to an AnalysisRow (spec.md §3's `analysis_id?`).
type LogEntry struct {
	ID            int64
	Path          string
	Root          string
	Kind          string
	DedupKey      string
	Timestamp     time.Time
	FileSize      int64
	FileExtension string
	Analyzed      bool
	AnalysisID    sql.NullInt64
}

// AnalysisRow is the Analyzer's verdict for one path, keyed by path so
// that repeat analyses of the same file upsert in place rather than
// accumulating duplicate rows. It is linked to one or more LogEntry rows
// one-way via LogEntry.AnalysisID (never a cyclic reference, per
// SPEC_FULL.md §9), through the separate LinkAnalysis operation.
type AnalysisRow struct {
	ID          int64
	Path        string
	RiskLevel   string
	Score       float64
	SHA256      string
	VerdictJSON string
	AnalyzedAt  time.Time
}

const currentSchemaVersion = 1

// Persistence wraps a SQLite database implementing C6's operations.
type Persistence struct {
	db           *sql.DB
	mu           sync.RWMutex
	insertLog    *sql.Stmt
	insertResult *sql.Stmt
}

// OpenPersistence opens (creating if necessary) the SQLite database at
// path, applying the same WAL pragma set as audit_backend.go and running schema
// migrations.
func OpenPersistence(path string) (*Persistence, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil && filepath.Dir(path) != "." {
		return nil, errors.Wrap(err, ErrCodePersistenceIO, "creating database directory").WithContext("dir", filepath.Dir(path))
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodePersistenceIO, "opening database").WithContext("path", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, ErrCodePersistenceIO, "pinging database").WithContext("path", path)
	}

	p := &Persistence{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := p.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Persistence) migrate() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL)`)
	if err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "creating schema_info table")
	}

	var version int
	row := p.db.QueryRow(`SELECT version FROM schema_info LIMIT 1`)
	if err := row.Scan(&version); err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "reading schema version")
	}

	if version < 1 {
		if err := p.migrateToV1(); err != nil {
			return err
		}
		version = 1
	}

	if version == currentSchemaVersion {
		_, err := p.db.Exec(`DELETE FROM schema_info`)
		if err != nil {
			return errors.Wrap(err, ErrCodePersistenceIO, "resetting schema_info")
		}
		_, err = p.db.Exec(`INSERT INTO schema_info (version) VALUES (?)`, version)
		if err != nil {
			return errors.Wrap(err, ErrCodePersistenceIO, "writing schema version")
		}
	}
	return nil
}

func (p *Persistence) migrateToV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			risk_level TEXT NOT NULL,
			score REAL NOT NULL,
			sha256 TEXT NOT NULL,
			verdict_json TEXT NOT NULL,
			analyzed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_rows_risk_ts ON analysis_rows (risk_level, analyzed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS log_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			root TEXT NOT NULL,
			kind TEXT NOT NULL,
			dedup_key TEXT NOT NULL UNIQUE,
			timestamp DATETIME NOT NULL,
			file_size INTEGER NOT NULL DEFAULT 0,
			file_extension TEXT NOT NULL DEFAULT '',
			analyzed INTEGER NOT NULL DEFAULT 0,
			analysis_id INTEGER REFERENCES analysis_rows(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_timestamp ON log_entries (timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_path ON log_entries (path)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(stmt); err != nil {
			return errors.Wrap(err, ErrCodePersistenceIO, "applying schema v1").WithContext("stmt", stmt)
		}
	}
	return nil
}

func (p *Persistence) prepareStatements() error {
	var err error
	p.insertLog, err = p.db.Prepare(`INSERT OR IGNORE INTO log_entries
		(path, root, kind, dedup_key, timestamp, file_size, file_extension, analyzed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "preparing log insert")
	}

	p.insertResult, err = p.db.Prepare(`INSERT INTO analysis_rows
		(path, risk_level, score, sha256, verdict_json, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "preparing analysis insert")
	}
	return nil
}

// InsertLog persists a LogEntry. A duplicate dedup_key is a DedupViolation
// that the caller is expected to swallow (§7), not a hard failure.
func (p *Persistence) InsertLog(entry LogEntry) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.insertLog.Exec(entry.Path, entry.Root, entry.Kind, entry.DedupKey,
		entry.Timestamp, entry.FileSize, entry.FileExtension, boolToInt(entry.Analyzed))
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "inserting log entry").WithContext("path", entry.Path)
	}
	// INSERT OR IGNORE leaves the last insert id at its previous value when
	// it ignores a duplicate, so the affected-row count decides.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "reading log insert rows affected")
	}
	if n == 0 {
		return 0, errors.New(ErrCodeDedupViolation, "dedup_key already present").WithContext("dedup_key", entry.DedupKey)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "reading inserted log id")
	}
	return id, nil
}

// UpsertAnalysis records v as the AnalysisRow for path, keyed by path so a
// re-analysis of the same file updates the existing row in place rather
// than accumulating duplicates, and returns its analysis_id. The row is
// not yet linked to any particular LogEntry — that is LinkAnalysis's job,
// since the same AnalysisRow can be reused across multiple log entries
// for the same path (spec.md §3/§4.6).
func (p *Persistence) UpsertAnalysis(path string, v Verdict) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload, err := v.MarshalDeterministicJSON()
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "marshaling verdict")
	}

	tx, err := p.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "beginning analysis transaction")
	}

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM analysis_rows WHERE path = ?`, path).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Stmt(p.insertResult).Exec(path, string(v.RiskLevel), v.Score, v.FileInfo.SHA256, string(payload), time.Now())
		if err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, ErrCodePersistenceIO, "inserting analysis row").WithContext("path", path)
		}
		existingID, err = res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, ErrCodePersistenceIO, "reading inserted analysis id")
		}
	case err != nil:
		tx.Rollback()
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "looking up existing analysis row").WithContext("path", path)
	default:
		if _, err := tx.Exec(`UPDATE analysis_rows SET risk_level = ?, score = ?, sha256 = ?, verdict_json = ?, analyzed_at = ? WHERE id = ?`,
			string(v.RiskLevel), v.Score, v.FileInfo.SHA256, string(payload), time.Now(), existingID); err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, ErrCodePersistenceIO, "updating analysis row").WithContext("path", path)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "committing analysis transaction")
	}
	return existingID, nil
}

// LinkAnalysis connects an existing LogEntry to an AnalysisRow and marks
// the entry analyzed, the second step of the two-step write spec.md §4.6
// documents (UpsertAnalysis produces a reusable analysis_id; LinkAnalysis
// attaches it to a particular log entry).
func (p *Persistence) LinkAnalysis(logEntryID, analysisID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.db.Exec(`UPDATE log_entries SET analysis_id = ?, analyzed = 1 WHERE id = ?`, analysisID, logEntryID)
	if err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "linking analysis to log entry").WithContext("log_entry_id", logEntryID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "reading link rows affected")
	}
	if n == 0 {
		return errors.New(ErrCodePersistenceIO, "log entry not found").WithContext("log_entry_id", logEntryID)
	}
	return nil
}

// QueryLogs returns up to limit log entries, newest first, optionally
// filtered by minimum risk level via a join against analysis_rows.
func (p *Persistence) QueryLogs(limit int, minRisk string) ([]LogEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	query := `SELECT le.id, le.path, le.root, le.kind, le.dedup_key, le.timestamp,
		le.file_size, le.file_extension, le.analyzed, le.analysis_id FROM log_entries le`
	args := []interface{}{}
	if minRisk != "" {
		levels := []string{minRisk}
		order := []RiskLevel{RiskSafe, RiskModerate, RiskSuspicious, RiskDangerous}
		for i, l := range order {
			if string(l) == minRisk {
				levels = levels[:0]
				for _, m := range order[i:] {
					levels = append(levels, string(m))
				}
			}
		}
		query += ` JOIN analysis_rows ar ON ar.id = le.analysis_id WHERE ar.risk_level IN (?` + strings.Repeat(`, ?`, len(levels)-1) + `)`
		for _, l := range levels {
			args = append(args, l)
		}
	}
	query += ` ORDER BY le.timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodePersistenceIO, "querying log entries")
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var analyzed int
		if err := rows.Scan(&e.ID, &e.Path, &e.Root, &e.Kind, &e.DedupKey, &e.Timestamp, &e.FileSize, &e.FileExtension, &analyzed, &e.AnalysisID); err != nil {
			return nil, errors.Wrap(err, ErrCodePersistenceIO, "scanning log entry row")
		}
		e.Analyzed = analyzed != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByRisk returns counts of analysis_rows grouped by risk_level, used
// for the Control API's Statistics operation.
func (p *Persistence) CountByRisk() (map[string]int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rows, err := p.db.Query(`SELECT risk_level, COUNT(*) FROM analysis_rows GROUP BY risk_level`)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodePersistenceIO, "counting by risk level")
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, errors.Wrap(err, ErrCodePersistenceIO, "scanning risk count row")
		}
		out[level] = count
	}
	return out, rows.Err()
}

// CountLogEntries returns the total row count in log_entries. Retention's
// emergency trigger must watch this alongside CountByRisk's analysis_rows
// total, since InsertLog always writes a log_entries row while analysis
// can legitimately be skipped (deletions, oversized files, timeouts) —
// log_entries can grow unbounded even while analysis_rows stays small.
func (p *Persistence) CountLogEntries() (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var count int64
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM log_entries`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "counting log entries")
	}
	return count, nil
}

// DeleteOlderThan deletes log_entries (and their analysis_rows) with a
// timestamp before cutoff, transactionally.
func (p *Persistence) DeleteOlderThan(cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleteWhereLocked(`timestamp < ?`, cutoff)
}

// DeleteBeyondRank deletes every log_entries row older than the keepN-th
// newest, the "Nth-newest cutoff timestamp" technique from
// file_management/purge_logs.py.
func (p *Persistence) DeleteBeyondRank(keepN int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if keepN <= 0 {
		return p.deleteWhereLocked(`1 = 1`)
	}

	var cutoff sql.NullTime
	err := p.db.QueryRow(`SELECT timestamp FROM log_entries ORDER BY timestamp DESC LIMIT 1 OFFSET ?`, keepN-1).Scan(&cutoff)
	if err == sql.ErrNoRows || !cutoff.Valid {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "finding rank cutoff")
	}

	return p.deleteWhereLocked(`timestamp < ?`, cutoff.Time)
}

// deleteWhereLocked deletes log_entries matching where, plus any
// analysis_rows that entry referenced, but only if no surviving log_entry
// still references that same analysis_id — an analysis row can be shared
// across multiple log entries for the same path (spec.md §3/§4.6), so it
// must outlive any one of them.
func (p *Persistence) deleteWhereLocked(where string, args ...interface{}) (int64, error) {
	tx, err := p.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "beginning retention transaction")
	}

	orphanArgs := append(append([]interface{}{}, args...), args...)
	_, err = tx.Exec(`DELETE FROM analysis_rows WHERE id IN (
			SELECT analysis_id FROM log_entries WHERE `+where+` AND analysis_id IS NOT NULL
		) AND id NOT IN (
			SELECT analysis_id FROM log_entries WHERE NOT (`+where+`) AND analysis_id IS NOT NULL
		)`, orphanArgs...)
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "deleting orphaned analysis rows")
	}
	res, err := tx.Exec(`DELETE FROM log_entries WHERE `+where, args...)
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "deleting log entries")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, ErrCodePersistenceIO, "committing retention transaction")
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// Reclaim runs VACUUM outside any transaction, after large retention
// deletes, mirroring auto_cleanup.py's post-delete reclamation step.
func (p *Persistence) Reclaim() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.db.Exec(`VACUUM`); err != nil {
		return errors.Wrap(err, ErrCodePersistenceIO, "vacuuming database")
	}
	return nil
}

// Close releases the underlying database handle and prepared statements.
func (p *Persistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.insertLog != nil {
		p.insertLog.Close()
	}
	if p.insertResult != nil {
		p.insertResult.Close()
	}
	return p.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
