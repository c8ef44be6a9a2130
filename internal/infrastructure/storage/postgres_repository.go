package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// DefaultTable stores one row per summarized article.
const DefaultTable = "research_summaries"

var tableNameExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresRepository persists summaries and their embeddings into Postgres
// with the pgvector extension.
type PostgresRepository struct {
	db        *sql.DB
	table     string
	dimension int
	builder   sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB. A zero dimension disables the
// length check on stored vectors.
func NewPostgresRepository(db *sql.DB, table string, dimension int) (*PostgresRepository, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameExpr.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresRepository{
		db:        db,
		table:     table,
		dimension: dimension,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// EnsureSchema creates the vector extension and the summaries table.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	for _, stmt := range r.schemaStatements() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) schemaStatements() []string {
	vectorType := "vector"
	if r.dimension > 0 {
		vectorType = fmt.Sprintf("vector(%d)", r.dimension)
	}
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	article_id TEXT NOT NULL,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL,
	key_concepts TEXT[] NOT NULL DEFAULT '{}',
	structured BOOLEAN NOT NULL DEFAULT TRUE,
	status TEXT NOT NULL,
	embedding %s,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, r.table, vectorType),
	}
}

// AlreadyProcessed returns the subset of article keys stored with status
// reached or a later milestone.
func (r *PostgresRepository) AlreadyProcessed(ctx context.Context, ids []string, reached domain.ProcessingStatus) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.processedQuery(ids, reached).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build processed query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) processedQuery(ids []string, reached domain.ProcessingStatus) sq.SelectBuilder {
	var statuses pq.StringArray
	for _, st := range reached.AndLater() {
		statuses = append(statuses, string(st))
	}
	return r.builder.
		Select("id").
		From(r.table).
		Where("id = ANY(?)", pq.StringArray(ids)).
		Where("status = ANY(?)", statuses)
}

// SaveProcessed upserts the summary snapshot keyed by source and article id.
func (r *PostgresRepository) SaveProcessed(ctx context.Context, article domain.ProcessedArticle) error {
	if r.db == nil {
		return nil
	}

	insert, err := r.upsertQuery(article)
	if err != nil {
		return err
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) upsertQuery(article domain.ProcessedArticle) (sq.InsertBuilder, error) {
	var embedding any
	if len(article.Embedding) > 0 {
		if r.dimension > 0 && len(article.Embedding) != r.dimension {
			return sq.InsertBuilder{}, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", r.dimension, len(article.Embedding))
		}
		embedding = sq.Expr("?::vector", VectorLiteral(article.Embedding))
	}

	concepts := article.Summary.KeyConcepts
	if concepts == nil {
		concepts = []string{}
	}

	return r.builder.
		Insert(r.table).
		Columns("id", "article_id", "source", "title", "url", "summary", "key_concepts", "structured", "status", "embedding").
		Values(
			article.Article.Key(),
			article.Article.ID,
			article.Article.Source,
			article.Article.Title,
			article.Article.URL,
			article.Summary.Summary,
			pq.StringArray(concepts),
			article.Summary.Structured,
			string(article.Status),
			embedding,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	url = EXCLUDED.url,
	summary = EXCLUDED.summary,
	key_concepts = EXCLUDED.key_concepts,
	structured = EXCLUDED.structured,
	status = EXCLUDED.status,
	embedding = COALESCE(EXCLUDED.embedding, ` + r.table + `.embedding),
	updated_at = NOW()`), nil
}

// SearchSimilar returns the stored summaries nearest to vector by L2 distance.
func (r *PostgresRepository) SearchSimilar(ctx context.Context, vector []float32, topK int) ([]domain.StoredMatch, error) {
	if r.db == nil {
		return nil, errors.New("postgres repository is not configured")
	}
	if len(vector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if r.dimension > 0 && len(vector) != r.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", r.dimension, len(vector))
	}

	query, args, err := r.similarQuery(vector, topK).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build similarity query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.StoredMatch, 0, topK)
	for rows.Next() {
		var (
			match    domain.StoredMatch
			concepts pq.StringArray
			created  time.Time
		)
		if err := rows.Scan(&match.ArticleID, &match.Source, &match.Title, &match.Summary, &concepts, &created, &match.Distance); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		match.KeyConcepts = []string(concepts)
		match.CreatedAt = created
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return matches, nil
}

func (r *PostgresRepository) similarQuery(vector []float32, topK int) sq.SelectBuilder {
	if topK <= 0 {
		topK = 5
	}
	return r.builder.
		Select("article_id", "source", "title", "summary", "key_concepts", "created_at").
		Column(sq.Expr("embedding <-> ?::vector AS distance", VectorLiteral(vector))).
		From(r.table).
		Where("embedding IS NOT NULL").
		OrderBy("distance").
		Limit(uint64(topK))
}

// VectorLiteral renders a vector in pgvector text form: [1,2.5,3].
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
