package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/nbd-wtf/go-nostr"
)

// eventStore is what the embedded relay needs from storage. The memory
// store is the default; Postgres is used when a db block is configured.
type eventStore interface {
	SaveEvent(ctx context.Context, evt nostr.Event) error
	EventExists(ctx context.Context, id string) (bool, error)
	QueryEvents(ctx context.Context, filter nostr.Filter) ([]nostr.Event, error)
}

type memoryStore struct {
	mu     sync.RWMutex
	events []nostr.Event
	ids    map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{ids: make(map[string]struct{})}
}

func (s *memoryStore) SaveEvent(_ context.Context, evt nostr.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[evt.ID]; ok {
		return fmt.Errorf("duplicate event %s", evt.ID)
	}
	s.events = append(s.events, evt)
	s.ids[evt.ID] = struct{}{}
	return nil
}

func (s *memoryStore) EventExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok, nil
}

func (s *memoryStore) QueryEvents(_ context.Context, filter nostr.Filter) ([]nostr.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []nostr.Event
	for i := range s.events {
		if filter.Matches(&s.events[i]) {
			matched = append(matched, s.events[i])
		}
		if filter.Limit > 0 && len(matched) == filter.Limit {
			break
		}
	}
	return matched, nil
}

type postgresStore struct {
	db *sql.DB
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func InitDB(config DBConfig) *postgresStore {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable",
		config.Host, 5432, config.User, config.Password, config.DBname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		log.Fatal(err)
	}

	err = db.Ping()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("connected to db")
	return &postgresStore{db: db}
}

func (s *postgresStore) SaveEvent(ctx context.Context, evt nostr.Event) error {
	query, args, err := psql.Insert("events").
		Columns("id", "pubkey", "created_at", "kind", "content", "sig").
		Values(evt.ID, evt.PubKey, sq.Expr("to_timestamp(?)", int64(evt.CreatedAt)),
			evt.Kind, evt.Content, evt.Sig).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error saving event: %w", err)
	}
	return nil
}

func (s *postgresStore) EventExists(ctx context.Context, id string) (bool, error) {
	query, args, err := psql.Select("1").From("events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking event: %w", err)
	}
	return true, nil
}

func (s *postgresStore) QueryEvents(ctx context.Context, filter nostr.Filter) ([]nostr.Event, error) {
	query, args, err := filterQuery(filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	var events []nostr.Event
	for rows.Next() {
		var evt nostr.Event
		var createdAt time.Time
		if err := rows.Scan(&evt.ID, &evt.PubKey, &createdAt, &evt.Kind,
			&evt.Content, &evt.Sig); err != nil {
			return nil, err
		}
		evt.CreatedAt = nostr.Timestamp(createdAt.Unix())
		events = append(events, evt)
	}
	return events, rows.Err()
}

// filterQuery builds the select for a subscription filter. Conditions are
// added in a fixed order so the generated SQL is stable.
func filterQuery(filter nostr.Filter) sq.SelectBuilder {
	query := psql.Select("id", "pubkey", "created_at", "kind", "content", "sig").
		From("events").
		OrderBy("created_at DESC")

	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}
	if len(filter.Authors) > 0 {
		query = query.Where(sq.Eq{"pubkey": filter.Authors})
	}
	if len(filter.Kinds) > 0 {
		query = query.Where(sq.Eq{"kind": filter.Kinds})
	}
	if filter.Since != nil {
		query = query.Where(sq.GtOrEq{"created_at": filter.Since.Time()})
	}
	if filter.Until != nil {
		query = query.Where(sq.LtOrEq{"created_at": filter.Until.Time()})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	return query
}
