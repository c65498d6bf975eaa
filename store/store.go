package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"hotline/models"
)

// Store persists chat activity to SQLite. Persistence is best-effort from the
// pipeline's point of view: callers log storage errors and keep serving.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS message_parts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	part_index INTEGER NOT NULL,
	content    TEXT NOT NULL,
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS source_files (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	filename   TEXT NOT NULL,
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS feedbacks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	rating     INTEGER NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS errors (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	question   TEXT NOT NULL,
	error      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trending_questions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	question    TEXT NOT NULL,
	count       INTEGER NOT NULL,
	source      TEXT NOT NULL DEFAULT 'user',
	application TEXT NOT NULL DEFAULT 'Autre',
	computed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens (creating if needed) the SQLite database at path and ensures the
// schema exists.
func New(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	// SQLite serializes writers; a single connection avoids busy errors
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession records a session the first time it is seen. Repeat calls for
// the same session are no-ops.
func (s *Store) SaveSession(sessionID, source string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, source) VALUES (?, ?)`,
		sessionID, source)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveMessage records one completed exchange with its delivery parts and the
// source documents the answer drew on, all in one transaction. It returns the
// new message's ID, used later to attach feedback.
func (s *Store) SaveMessage(sessionID, question, answer string, parts, filesUsed []string, source string) (int64, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO messages (session_id, question, answer, source) VALUES (?, ?, ?, ?)`,
		sessionID, question, answer, source)
	if err != nil {
		return 0, fmt.Errorf("failed to save message: %w", err)
	}

	messageID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read message id: %w", err)
	}

	for i, part := range parts {
		if _, err := tx.Exec(
			`INSERT INTO message_parts (message_id, part_index, content) VALUES (?, ?, ?)`,
			messageID, i, part); err != nil {
			return 0, fmt.Errorf("failed to save message part: %w", err)
		}
	}

	for _, filename := range filesUsed {
		if _, err := tx.Exec(
			`INSERT INTO source_files (message_id, filename) VALUES (?, ?)`,
			messageID, filename); err != nil {
			return 0, fmt.Errorf("failed to save source file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit message: %w", err)
	}
	return messageID, nil
}

// SaveFeedback attaches a rating to a previously stored message.
func (s *Store) SaveFeedback(messageID int64, rating int, comment string) error {
	_, err := s.db.Exec(
		`INSERT INTO feedbacks (message_id, rating, comment) VALUES (?, ?, ?)`,
		messageID, rating, comment)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// SaveError records a pipeline failure for later diagnosis.
func (s *Store) SaveError(sessionID, question, message, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO errors (session_id, question, error, source) VALUES (?, ?, ?, ?)`,
		sessionID, question, message, source)
	if err != nil {
		return fmt.Errorf("failed to save error: %w", err)
	}
	return nil
}

// QuestionsFromToday returns every user question stored today for a source,
// oldest first.
func (s *Store) QuestionsFromToday(source string) ([]string, error) {
	var questions []string
	err := s.db.Select(&questions,
		`SELECT question FROM messages
		 WHERE source = ? AND date(created_at) = date('now')
		 ORDER BY created_at ASC`,
		source)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's questions: %w", err)
	}
	return questions, nil
}

// SaveTrending replaces the stored trending set for a source with the given
// one.
func (s *Store) SaveTrending(questions []models.TrendingQuestion, source string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trending_questions WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to clear trending questions: %w", err)
	}

	for _, q := range questions {
		if _, err := tx.Exec(
			`INSERT INTO trending_questions (question, count, source, application) VALUES (?, ?, ?, ?)`,
			q.Question, q.Count, source, q.Application); err != nil {
			return fmt.Errorf("failed to save trending question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trending questions: %w", err)
	}
	return nil
}

// Trending returns up to limit trending questions for a source, most frequent
// first.
func (s *Store) Trending(limit int, source string) ([]models.TrendingQuestion, error) {
	var trending []models.TrendingQuestion
	err := s.db.Select(&trending,
		`SELECT question, count, source, application FROM trending_questions
		 WHERE source = ?
		 ORDER BY count DESC, question ASC
		 LIMIT ?`,
		source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load trending questions: %w", err)
	}
	if trending == nil {
		trending = []models.TrendingQuestion{}
	}
	return trending, nil
}
