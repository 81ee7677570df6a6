package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/lib/pq"

	"blobmux/internal/core/storage/config"
	"blobmux/internal/core/storage/memory"
	"blobmux/internal/core/storage/mongo"
	"blobmux/internal/core/storage/mux"
	"blobmux/internal/core/storage/postgres"
	"blobmux/internal/core/storage/scrub"
	"blobmux/internal/core/storage/types"
)

// Dependency injection for testing
var newMongoProvider = func(ctx context.Context, uri, dbName string) (*mongo.Provider, error) {
	return mongo.NewProvider(ctx, uri, dbName)
}

// Dependency injection for postgres
var newPostgresDB = func(cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Stack is the assembled storage stack: scrub over multiplex over the
// configured replicas, plus the sync queue they share.
type Stack struct {
	blob     *scrub.Store
	mux      *mux.Store
	queue    types.SyncQueue
	replicas []types.Replica

	mongoProviders map[string]*mongo.Provider
	postgresDBs    map[string]*sql.DB
	mu             sync.Mutex
}

// NewStack builds the storage stack from cfg. handler receives scrub
// repair reports and may be nil.
func NewStack(ctx context.Context, cfg config.Config, handler scrub.Handler, logger *slog.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}

	s := &Stack{
		mongoProviders: make(map[string]*mongo.Provider),
		postgresDBs:    make(map[string]*sql.DB),
	}
	success := false
	defer func() {
		if !success {
			s.Close(ctx)
		}
	}()

	// 1. Initialize backend connections
	for name, backendCfg := range cfg.Backends {
		switch backendCfg.Type {
		case "mongo":
			p, err := newMongoProvider(ctx, backendCfg.Mongo.URI, backendCfg.Mongo.DatabaseName)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize backend %s: %w", name, err)
			}
			s.mongoProviders[name] = p
		case "postgres":
			db, err := newPostgresDB(backendCfg.Postgres)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to postgres backend %s: %w", name, err)
			}
			if err := db.Ping(); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to ping postgres backend %s: %w", name, err)
			}
			if err := postgres.EnsureBlobSchema(db); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to ensure blob schema on %s: %w", name, err)
			}
			s.postgresDBs[name] = db
		case "memory":
			// Nothing to connect
		}
	}

	// 2. Build one backing store per replica
	for _, rc := range cfg.Replicas {
		store, err := s.buildStore(cfg.Backends[rc.Backend], rc.Backend)
		if err != nil {
			return nil, fmt.Errorf("replica %s: %w", rc.ID, err)
		}
		s.replicas = append(s.replicas, types.Replica{
			ID:    types.StoreID(rc.ID),
			Store: store,
		})
	}

	// 3. Build the sync queue
	queue, err := s.buildQueue(cfg)
	if err != nil {
		return nil, err
	}
	s.queue = queue

	// 4. Assemble multiplex + scrub
	tel := mux.NewTelemetry(cfg.Telemetry.SampleRate, cfg.Telemetry.Seed)
	s.mux = mux.NewStore(s.replicas, s.queue, tel, logger)
	s.blob = scrub.NewStore(s.mux, s.queue, scrub.Action(cfg.Scrub.Action), handler, logger)

	success = true
	return s, nil
}

func (s *Stack) buildStore(cfg config.BackendConfig, backendName string) (types.BackingStore, error) {
	switch cfg.Type {
	case "mongo":
		p, ok := s.mongoProviders[backendName]
		if !ok {
			return nil, fmt.Errorf("backend not initialized: %s", backendName)
		}
		return mongo.NewBlobStore(p.Client().Database(p.DatabaseName()), cfg.Mongo.Collection), nil
	case "postgres":
		db, ok := s.postgresDBs[backendName]
		if !ok {
			return nil, fmt.Errorf("backend not initialized: %s", backendName)
		}
		return postgres.NewBlobStore(db), nil
	case "memory":
		return memory.NewBlobStore(), nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
}

func (s *Stack) buildQueue(cfg config.Config) (types.SyncQueue, error) {
	name := cfg.SyncQueue.Backend
	switch cfg.Backends[name].Type {
	case "postgres":
		db, ok := s.postgresDBs[name]
		if !ok {
			return nil, fmt.Errorf("sync queue backend not initialized: %s", name)
		}
		if err := postgres.EnsureSyncQueueSchema(db); err != nil {
			return nil, fmt.Errorf("failed to ensure sync queue schema on %s: %w", name, err)
		}
		return postgres.NewSyncQueue(db), nil
	case "memory":
		return memory.NewSyncQueue(), nil
	}
	return nil, fmt.Errorf("sync queue backend must be postgres or memory")
}

// Blob returns the client-facing blob store.
func (s *Stack) Blob() types.BlobStore {
	return s.blob
}

// Mux returns the raw multiplexed store.
func (s *Stack) Mux() *mux.Store {
	return s.mux
}

// Queue returns the sync queue.
func (s *Stack) Queue() types.SyncQueue {
	return s.queue
}

// Replicas returns the configured replicas in topology order.
func (s *Stack) Replicas() []types.Replica {
	return s.replicas
}

// Close releases all backend connections.
func (s *Stack) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, p := range s.mongoProviders {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo backend %s: %w", name, err))
		}
	}
	for name, db := range s.postgresDBs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres backend %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing backends: %v", errs)
	}
	return nil
}
