package configmanager

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/logger"
)

// PostgresConfig mirrors the teacher's internal/db.Config shape.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresManager persists node and group attributes in Postgres while
// delegating collective membership and quorum to an embedded
// InMemoryManager — this core never specifies persistence for those
// (SPEC_FULL.md §E Non-goals), only for attributes.
type PostgresManager struct {
	*InMemoryManager
	db *sql.DB
}

// NewPostgresManager opens db per cfg and ensures the attribute tables
// exist. myName is this collective member's own name.
func NewPostgresManager(cfg PostgresConfig, myName string) (*PostgresManager, error) {
	dsn := "host=" + cfg.Host + " port=" + cfg.Port + " user=" + cfg.User +
		" password=" + cfg.Password + " dbname=" + cfg.DBName + " sslmode=" + cfg.SSLMode

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to open postgres connection", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to reach postgres", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS node_attributes (
	node TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (node, key)
);
CREATE TABLE IF NOT EXISTS group_attributes (
	grp TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (grp, key)
);
CREATE TABLE IF NOT EXISTS group_members (
	grp TEXT NOT NULL,
	node TEXT NOT NULL,
	PRIMARY KEY (grp, node)
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to migrate attribute schema", err)
	}

	logger.ConfigManager().Info().Str("db", cfg.DBName).Msg("connected to postgres attribute store")
	return &PostgresManager{InMemoryManager: NewInMemoryManager(myName), db: db}, nil
}

func (p *PostgresManager) Attributes(ctx context.Context, node string) (map[string]string, error) {
	return p.queryAttrs(ctx, "node_attributes", "node", node)
}

func (p *PostgresManager) SetAttributes(ctx context.Context, node string, attrs map[string]string) error {
	return p.upsertAttrs(ctx, "node_attributes", "node", node, attrs)
}

func (p *PostgresManager) GroupAttributes(ctx context.Context, group string) (map[string]string, error) {
	return p.queryAttrs(ctx, "group_attributes", "grp", group)
}

func (p *PostgresManager) SetGroupAttributes(ctx context.Context, group string, attrs map[string]string) error {
	return p.upsertAttrs(ctx, "group_attributes", "grp", group, attrs)
}

func (p *PostgresManager) NodesInGroup(ctx context.Context, group string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT node FROM group_members WHERE grp = $1 ORDER BY node`, group)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to query group members", err)
	}
	defer rows.Close()

	var nodes []string
	for rows.Next() {
		var node string
		if err := rows.Scan(&node); err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to scan group member", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func (p *PostgresManager) Nodes(ctx context.Context) ([]string, error) {
	return p.queryDistinct(ctx, `SELECT DISTINCT node FROM node_attributes
		UNION SELECT DISTINCT node FROM group_members`)
}

func (p *PostgresManager) Groups(ctx context.Context) ([]string, error) {
	return p.queryDistinct(ctx, `SELECT DISTINCT grp FROM group_attributes
		UNION SELECT DISTINCT grp FROM group_members`)
}

func (p *PostgresManager) queryDistinct(ctx context.Context, query string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to query distinct names", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to scan name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (p *PostgresManager) queryAttrs(ctx context.Context, table, keyCol, keyVal string) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM `+table+` WHERE `+keyCol+` = $1`, keyVal)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to query attributes", err)
	}
	defer rows.Close()

	attrs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInternalServer, "failed to scan attribute row", err)
		}
		attrs[k] = v
	}
	return attrs, rows.Err()
}

func (p *PostgresManager) upsertAttrs(ctx context.Context, table, keyCol, keyVal string, attrs map[string]string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInternalServer, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO ` + table + ` (` + keyCol + `, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (` + keyCol + `, key) DO UPDATE SET value = EXCLUDED.value`
	for k, v := range attrs {
		if _, err := tx.ExecContext(ctx, stmt, keyVal, k, v); err != nil {
			return apperr.Wrap(apperr.ErrCodeInternalServer, "failed to upsert attribute", err)
		}
	}
	return tx.Commit()
}

// Close releases the underlying database connection.
func (p *PostgresManager) Close() error {
	return p.db.Close()
}
