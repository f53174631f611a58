package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

// DefaultProvidersTable holds one JSONB document per provider
const DefaultProvidersTable = "provider_documents"

// storedCategory is the normalized stored category expression, matching how
// entities.ParseCategory reads the field.
var storedCategory = goqu.L("LOWER(TRIM(data->>'category'))")

// ProviderDocumentAdapter implements ProviderDocumentRepository over a Postgres
// table with an id column and a JSONB data column.
type ProviderDocumentAdapter struct {
	reader  postgres.Reader
	dialect goqu.DialectWrapper
	table   string
	metrics *observability.Metrics
}

// NewProviderDocumentAdapter creates a new provider document adapter. metrics may be nil.
func NewProviderDocumentAdapter(reader postgres.Reader, table string, metrics *observability.Metrics) repositories.ProviderDocumentRepository {
	if table == "" {
		table = DefaultProvidersTable
	}
	return &ProviderDocumentAdapter{
		reader:  reader,
		dialect: goqu.Dialect("postgres"),
		table:   table,
		metrics: metrics,
	}
}

func (a *ProviderDocumentAdapter) selectDocuments() *goqu.SelectDataset {
	return a.dialect.From(a.table).Prepared(true).Select("id", "data")
}

// GetByID retrieves one provider document
func (a *ProviderDocumentAdapter) GetByID(ctx context.Context, id string) (*document.Record, error) {
	query, args, err := a.selectDocuments().Where(goqu.Ex{"id": id}).Limit(1).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	start := time.Now()
	var rawID string
	var data []byte
	err = a.reader.Read().QueryRowContext(ctx, query, args...).Scan(&rawID, &data)
	observability.RecordDBMetric(ctx, a.metrics, "provider_documents.get", time.Since(start))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get provider document", err)
	}

	doc, err := document.Parse(data)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("provider %s has a malformed document", id), err)
	}
	return &document.Record{ID: rawID, Data: doc}, nil
}

// GetByIDs retrieves the documents that exist among ids
func (a *ProviderDocumentAdapter) GetByIDs(ctx context.Context, ids []string) ([]*document.Record, error) {
	if len(ids) == 0 {
		return []*document.Record{}, nil
	}

	query, args, err := a.selectDocuments().Where(goqu.Ex{"id": ids}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	start := time.Now()
	records, err := a.queryRecords(ctx, query, args)
	observability.RecordDBMetric(ctx, a.metrics, "provider_documents.get_many", time.Since(start))
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get provider documents", err)
	}
	return records, nil
}

// List retrieves a page of provider documents ordered by id, plus the total
// number of documents matching filter.
func (a *ProviderDocumentAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*document.Record, int, error) {
	base := a.dialect.From(a.table).Prepared(true)
	if filter.Category != nil {
		base = base.Where(categoryCondition(*filter.Category))
	}

	ds := base.Select("id", "data").Order(goqu.I("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build list query", err)
	}
	countQuery, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build count query", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, a.metrics, "provider_documents.list", time.Since(start))
	}()

	records, err := a.queryRecords(ctx, query, args)
	if err != nil {
		return nil, 0, apperrors.NewStoreError("failed to list provider documents", err)
	}

	var total int
	if err := a.reader.Read().QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewStoreError("failed to count provider documents", err)
	}

	return records, total, nil
}

// categoryCondition matches documents whose stored category parses to c.
// Vendors is the fallback category, so it matches everything no other
// category claims, including a missing field.
func categoryCondition(c entities.Category) exp.Expression {
	if c != entities.CategoryVendors {
		return storedCategory.In(c.StoredSpellings())
	}

	var claimed []string
	for _, other := range entities.Categories {
		if other != entities.CategoryVendors {
			claimed = append(claimed, other.StoredSpellings()...)
		}
	}
	return goqu.Or(
		goqu.L("data->>'category'").IsNull(),
		storedCategory.NotIn(claimed),
	)
}

// queryRecords runs a query selecting (id, data). Rows whose data fails to
// decode are logged and skipped.
func (a *ProviderDocumentAdapter) queryRecords(ctx context.Context, query string, args []interface{}) ([]*document.Record, error) {
	rows, err := a.reader.Read().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*document.Record{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}

		doc, err := document.Parse(data)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", id).Msg("skipping malformed provider document")
			continue
		}
		records = append(records, &document.Record{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
