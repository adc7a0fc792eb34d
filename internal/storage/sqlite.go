package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/wsr/internal/review"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding sector contracts, weekly entries,
// daily logs, the locked-week timeline, and the identity profile.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "wsr.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

// AppliedMigrations returns the number of migrations recorded in the
// schema_version table.
func (s *Store) AppliedMigrations() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting applied migrations: %w", err)
	}
	return count, nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Sectors ---

// ReplaceSectors swaps the full contract set in one transaction, preserving
// the given order. Entries referencing removed sectors are kept (the sync
// layer tolerates stale entries).
func (s *Store) ReplaceSectors(contracts []review.SectorContract) error {
	if err := review.ValidateContracts(contracts); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sectors`); err != nil {
		return err
	}

	for i, contract := range contracts {
		signals, err := json.Marshal(contract.Signals)
		if err != nil {
			return fmt.Errorf("marshalling signals for %s: %w", contract.ID, err)
		}
		antiPatterns, err := json.Marshal(contract.AntiPatterns)
		if err != nil {
			return fmt.Errorf("marshalling anti-patterns for %s: %w", contract.ID, err)
		}
		prompts, err := json.Marshal(contract.Prompts)
		if err != nil {
			return fmt.Errorf("marshalling prompts for %s: %w", contract.ID, err)
		}
		rubric, err := json.Marshal(contract.Rubric)
		if err != nil {
			return fmt.Errorf("marshalling rubric for %s: %w", contract.ID, err)
		}

		_, err = tx.Exec(`
			INSERT INTO sectors (id, position, name, icon, intent, priority, sensitive, active, signals, anti_patterns, prompts, rubric)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			contract.ID, i, contract.Name, contract.Icon, contract.Intent, string(contract.Priority),
			boolToInt(contract.Sensitive), boolToInt(contract.Active),
			string(signals), string(antiPatterns), string(prompts), string(rubric),
		)
		if err != nil {
			return fmt.Errorf("inserting sector %s: %w", contract.ID, err)
		}
	}

	return tx.Commit()
}

// ListSectors returns all contracts in their stored order.
func (s *Store) ListSectors() ([]review.SectorContract, error) {
	rows, err := s.db.Query(`
		SELECT id, name, icon, intent, priority, sensitive, active, signals, anti_patterns, prompts, rubric
		FROM sectors ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []review.SectorContract
	for rows.Next() {
		var (
			c                 review.SectorContract
			priority          string
			sensitive, active int

			signals, antiPatterns, prompts, rubric string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Intent, &priority, &sensitive, &active,
			&signals, &antiPatterns, &prompts, &rubric); err != nil {
			return nil, err
		}
		c.Priority = review.SectorPriority(priority)
		c.Sensitive = sensitive != 0
		c.Active = active != 0
		if err := json.Unmarshal([]byte(signals), &c.Signals); err != nil {
			return nil, fmt.Errorf("parsing signals for %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(antiPatterns), &c.AntiPatterns); err != nil {
			return nil, fmt.Errorf("parsing anti-patterns for %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(prompts), &c.Prompts); err != nil {
			return nil, fmt.Errorf("parsing prompts for %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(rubric), &c.Rubric); err != nil {
			return nil, fmt.Errorf("parsing rubric for %s: %w", c.ID, err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// --- Weekly entries ---

// SaveEntry upserts the current week's entry for a sector.
func (s *Store) SaveEntry(entry review.WeeklySectorEntry) error {
	answers, err := json.Marshal(entry.PromptAnswers)
	if err != nil {
		return fmt.Errorf("marshalling answers for %s: %w", entry.SectorID, err)
	}

	var rating any
	if entry.Rating != nil {
		rating = *entry.Rating
	}

	_, err = s.db.Exec(`
		INSERT INTO entries (sector_id, prompt_answers, rating, what_makes_ten, intention, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sector_id) DO UPDATE SET
			prompt_answers = excluded.prompt_answers,
			rating = excluded.rating,
			what_makes_ten = excluded.what_makes_ten,
			intention = excluded.intention,
			updated_at = excluded.updated_at`,
		entry.SectorID, string(answers), rating, entry.WhatMakesTen, entry.Intention,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListEntries loads the full entry map for the current week.
func (s *Store) ListEntries() (review.WeeklyEntryMap, error) {
	rows, err := s.db.Query(`SELECT sector_id, prompt_answers, rating, what_makes_ten, intention FROM entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := review.WeeklyEntryMap{}
	for rows.Next() {
		var (
			entry   review.WeeklySectorEntry
			answers string
			rating  sql.NullFloat64
		)
		if err := rows.Scan(&entry.SectorID, &answers, &rating, &entry.WhatMakesTen, &entry.Intention); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &entry.PromptAnswers); err != nil {
			return nil, fmt.Errorf("parsing answers for %s: %w", entry.SectorID, err)
		}
		if rating.Valid {
			v := rating.Float64
			entry.Rating = &v
		}
		entries[entry.SectorID] = entry
	}
	return entries, rows.Err()
}

// --- Daily logs ---

// AppendDailyLog stores a capture. Logs are append-only; there is no update.
func (s *Store) AppendDailyLog(l DailyLog) error {
	var confidence any
	if l.Confidence != nil {
		confidence = *l.Confidence
	}
	_, err := s.db.Exec(`
		INSERT INTO daily_logs (id, kind, item, calories, protein, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, string(l.Kind), l.Item, l.Calories, l.Protein, confidence,
		l.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListDailyLogs returns logs in capture order. A non-empty day ("2026-02-05")
// restricts to that calendar day (UTC).
func (s *Store) ListDailyLogs(day string) ([]DailyLog, error) {
	query := `SELECT id, kind, item, calories, protein, confidence, created_at FROM daily_logs`
	args := []any{}
	if day != "" {
		query += ` WHERE date(created_at) = ?`
		args = append(args, day)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []DailyLog
	for rows.Next() {
		var (
			l          DailyLog
			kind       string
			confidence sql.NullFloat64
			createdAt  string
		)
		if err := rows.Scan(&l.ID, &kind, &l.Item, &l.Calories, &l.Protein, &confidence, &createdAt); err != nil {
			return nil, err
		}
		l.Kind = DailyLogKind(kind)
		if confidence.Valid {
			v := confidence.Float64
			l.Confidence = &v
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		l.CreatedAt = t
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DailyTotals sums calories and protein, optionally for a single day.
func (s *Store) DailyTotals(day string) (MacroTotals, error) {
	query := `SELECT COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0) FROM daily_logs`
	args := []any{}
	if day != "" {
		query += ` WHERE date(created_at) = ?`
		args = append(args, day)
	}

	var totals MacroTotals
	if err := s.db.QueryRow(query, args...).Scan(&totals.Calories, &totals.Protein); err != nil {
		return MacroTotals{}, err
	}
	return totals, nil
}

// --- Weeks (timeline) ---

// SaveWeek upserts a locked week summary.
func (s *Store) SaveWeek(w WeekSummary) error {
	_, err := s.db.Exec(`
		INSERT INTO weeks (week, title, dates, score, trend, locked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(week) DO UPDATE SET
			title = excluded.title,
			dates = excluded.dates,
			score = excluded.score,
			trend = excluded.trend,
			locked_at = excluded.locked_at`,
		w.Week, w.Title, w.Dates, w.Score, w.Trend, w.LockedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListWeeks returns the timeline, most recently locked first.
func (s *Store) ListWeeks() ([]WeekSummary, error) {
	rows, err := s.db.Query(`SELECT week, title, dates, score, trend, locked_at FROM weeks ORDER BY locked_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []WeekSummary
	for rows.Next() {
		var (
			w        WeekSummary
			lockedAt string
		)
		if err := rows.Scan(&w.Week, &w.Title, &w.Dates, &w.Score, &w.Trend, &lockedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, lockedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing locked_at: %w", err)
		}
		w.LockedAt = t
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// LatestWeek returns the most recently locked week, or ErrNotFound.
func (s *Store) LatestWeek() (WeekSummary, error) {
	var (
		w        WeekSummary
		lockedAt string
	)
	err := s.db.QueryRow(`SELECT week, title, dates, score, trend, locked_at FROM weeks ORDER BY locked_at DESC LIMIT 1`).
		Scan(&w.Week, &w.Title, &w.Dates, &w.Score, &w.Trend, &lockedAt)
	if err == sql.ErrNoRows {
		return WeekSummary{}, ErrNotFound
	}
	if err != nil {
		return WeekSummary{}, err
	}
	t, err := time.Parse(time.RFC3339, lockedAt)
	if err != nil {
		return WeekSummary{}, fmt.Errorf("parsing locked_at: %w", err)
	}
	w.LockedAt = t
	return w, nil
}

// --- User profile ---

func (s *Store) SetProfileKey(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_profile (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetProfileKey(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM user_profile WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) GetAllProfileKeys() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM user_profile`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		keys[k] = v
	}
	return keys, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
