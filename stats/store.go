// Package stats persists per-sentence decoder statistics in SQLite.
package stats

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/smarthi/MMT/output"
	"github.com/smarthi/MMT/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS decoder_runs (
	run_id      TEXT PRIMARY KEY,
	config      TEXT NOT NULL,
	config_md5  TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sentence_statistics (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id                TEXT NOT NULL,
	translation_id        INTEGER NOT NULL,
	source_length         INTEGER NOT NULL,
	target_length         INTEGER NOT NULL,
	hypotheses_created    INTEGER NOT NULL,
	hypotheses_recombined INTEGER NOT NULL,
	hypotheses_pruned     INTEGER NOT NULL,
	best_score            REAL NOT NULL,
	decode_ns             INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES decoder_runs(run_id)
);
`

// Log reports runs recorded without a config checksum.
var Log bool

// Store records the statistics of one decoder run; it is safe for use by
// concurrent tasks.
type Store struct {
	db    *sql.DB
	RunID string
}

var _ output.StatisticsSink = &Store{}

// Open opens the database at path for reading; Record needs a run, see
// NewStore.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore opens the database at path and starts a new run for config.
// The run records the md5 of config when it names a readable file.
func NewStore(path, config string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	checksum, err := util.MD5File(config)
	if err != nil && Log {
		log.Printf("Statistics: no md5 for config %s: %v", config, err)
	}
	s.RunID = uuid.New().String()
	if _, err := s.db.Exec(
		`INSERT INTO decoder_runs (run_id, config, config_md5, started_at) VALUES (?, ?, ?, ?)`,
		s.RunID, config, checksum, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(st output.Statistics) error {
	_, err := s.db.Exec(`INSERT INTO sentence_statistics (
		run_id, translation_id, source_length, target_length,
		hypotheses_created, hypotheses_recombined, hypotheses_pruned,
		best_score, decode_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, st.TranslationID, st.SourceLength, st.TargetLength,
		st.HypothesesCreated, st.HypothesesRecombined, st.HypothesesPruned,
		st.BestScore, int64(st.DecodeTime),
	)
	if err != nil {
		return fmt.Errorf("record statistics %d: %w", st.TranslationID, err)
	}
	return nil
}

// Sentences returns the statistics of a run ordered by translation id.
func (s *Store) Sentences(runID string) ([]output.Statistics, error) {
	rows, err := s.db.Query(`SELECT translation_id, source_length, target_length,
		hypotheses_created, hypotheses_recombined, hypotheses_pruned, best_score, decode_ns
		FROM sentence_statistics WHERE run_id = ? ORDER BY translation_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query statistics: %w", err)
	}
	defer rows.Close()

	var retval []output.Statistics
	for rows.Next() {
		var st output.Statistics
		var decodeNS int64
		if err := rows.Scan(&st.TranslationID, &st.SourceLength, &st.TargetLength,
			&st.HypothesesCreated, &st.HypothesesRecombined, &st.HypothesesPruned,
			&st.BestScore, &decodeNS); err != nil {
			return nil, fmt.Errorf("scan statistics: %w", err)
		}
		st.DecodeTime = time.Duration(decodeNS)
		retval = append(retval, st)
	}
	return retval, rows.Err()
}

// Config returns the configuration a run was started with and its md5.
func (s *Store) Config(runID string) (string, string, error) {
	var config, checksum string
	row := s.db.QueryRow(`SELECT config, config_md5 FROM decoder_runs WHERE run_id = ?`, runID)
	if err := row.Scan(&config, &checksum); err != nil {
		return "", "", fmt.Errorf("run %s: %w", runID, err)
	}
	return config, checksum, nil
}

// Summary aggregates a run.
type Summary struct {
	Sentences   int
	SourceWords int
	TargetWords int
	Created     int
	DecodeTime  time.Duration
}

func (s *Store) Summarize(runID string) (Summary, error) {
	var sum Summary
	var decodeNS int64
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(source_length), 0), COALESCE(SUM(target_length), 0),
		COALESCE(SUM(hypotheses_created), 0), COALESCE(SUM(decode_ns), 0)
		FROM sentence_statistics WHERE run_id = ?`, runID)
	if err := row.Scan(&sum.Sentences, &sum.SourceWords, &sum.TargetWords, &sum.Created, &decodeNS); err != nil {
		return sum, fmt.Errorf("summarize run %s: %w", runID, err)
	}
	sum.DecodeTime = time.Duration(decodeNS)
	return sum, nil
}
