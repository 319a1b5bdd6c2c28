package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meshwire/internal/domain"
)

const (
	bodyKindText    = 1
	bodyKindCommand = 2
)

// SQLiteStore persists conversations to a SQLite database so history and
// retention survive restarts.
type SQLiteStore struct {
	conn      *sql.DB
	retention time.Duration
}

// NewSQLite opens (and if needed initializes) the database at path.
func NewSQLite(path string, retentionDays int) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}

	s := &SQLiteStore{
		conn:      conn,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			conv_key TEXT NOT NULL,
			direction INTEGER NOT NULL,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			kind INTEGER NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			opcode INTEGER NOT NULL DEFAULT 0,
			args BLOB,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv ON messages(conv_key, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts)`,
	}
	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("init message store: %w", err)
		}
	}
	return nil
}

// Append files m; Seq is assigned by the database.
func (s *SQLiteStore) Append(m domain.StoredMessage) error {
	var (
		kind    int
		content string
		opcode  int
		args    []byte
	)
	switch body := m.Body.(type) {
	case domain.Text:
		kind, content = bodyKindText, body.Content
	case domain.Command:
		kind, opcode, args = bodyKindCommand, int(body.Opcode), body.Args
	default:
		return fmt.Errorf("unknown message body %T: %w", m.Body, domain.ErrMalformed)
	}

	_, err := s.conn.Exec(
		`INSERT INTO messages (id, conv_key, direction, sender, recipient, kind, content, opcode, args, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationKey, int(m.Direction), m.Sender.String(), m.Recipient.String(),
		kind, content, opcode, args, m.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Conversation returns the ordered view for key, merging broadcast entries
// into peer views.
func (s *SQLiteStore) Conversation(key string) ([]domain.StoredMessage, error) {
	query := `SELECT seq, id, conv_key, direction, sender, recipient, kind, content, opcode, args, ts
		FROM messages WHERE conv_key = ? OR conv_key = ? ORDER BY seq`
	other := domain.BroadcastKey
	if key == domain.BroadcastKey {
		other = key
	}

	rows, err := s.conn.Query(query, key, other)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredMessage
	for rows.Next() {
		var (
			m         domain.StoredMessage
			direction int
			sender    string
			recipient string
			kind      int
			content   string
			opcode    int
			args      []byte
			ts        int64
		)
		if err := rows.Scan(&m.Seq, &m.ID, &m.ConversationKey, &direction, &sender, &recipient,
			&kind, &content, &opcode, &args, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Direction = domain.Direction(direction)
		m.Sender = domain.DeviceID(sender)
		m.Recipient = domain.DeviceID(recipient)
		m.Timestamp = time.Unix(0, ts).UTC()
		switch kind {
		case bodyKindText:
			m.Body = domain.Text{Content: content}
		case bodyKindCommand:
			m.Body = domain.Command{Opcode: uint8(opcode), Args: args}
		default:
			return nil, fmt.Errorf("unknown stored body kind %d: %w", kind, domain.ErrMalformed)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Prune deletes entries older than the retention horizon.
func (s *SQLiteStore) Prune(now time.Time) (int, error) {
	cutoff := now.Add(-s.retention).UnixNano()
	res, err := s.conn.Exec(`DELETE FROM messages WHERE ts <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

// Compile-time assertion that SQLiteStore implements domain.MessageStore.
var _ domain.MessageStore = (*SQLiteStore)(nil)
