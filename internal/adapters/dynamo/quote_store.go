package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ebulter/quote-service/internal/domain"
)

// quoteRecord is the stored shape of a quote item.
type quoteRecord struct {
	ID     int    `dynamodbav:"id"`
	Text   string `dynamodbav:"quoteText"`
	Author string `dynamodbav:"author"`
}

func (r quoteRecord) toDomain() domain.Quote {
	return domain.Quote{ID: r.ID, Text: r.Text, Author: r.Author}
}

// QuoteStore reads and writes the quote catalog table.
type QuoteStore struct {
	client *dynamodb.Client
	table  string
}

// NewQuoteStore creates a quote store over the given table.
func NewQuoteStore(client *dynamodb.Client, table string) *QuoteStore {
	return &QuoteStore{client: client, table: table}
}

// GetAll scans the full catalog, id ascending. The catalog is small
// enough (low thousands) that a paginated scan per request is acceptable.
func (s *QuoteStore) GetAll(ctx context.Context) ([]domain.Quote, error) {
	var quotes []domain.Quote

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning quotes table: %w: %w", domain.ErrUnavailable, err)
		}

		var records []quoteRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("unmarshaling quote items: %w", err)
		}

		for _, r := range records {
			quotes = append(quotes, r.toDomain())
		}
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].ID < quotes[j].ID })

	return quotes, nil
}

// FindByID fetches a single quote or returns domain.ErrNotFound.
func (s *QuoteStore) FindByID(ctx context.Context, id int) (*domain.Quote, error) {
	key, err := quoteKey(id)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("getting quote %d: %w: %w", id, domain.ErrUnavailable, err)
	}

	if out.Item == nil {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	var record quoteRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling quote %d: %w", id, err)
	}

	quote := record.toDomain()

	return &quote, nil
}

// Save upserts a single quote.
func (s *QuoteStore) Save(ctx context.Context, quote domain.Quote) error {
	item, err := attributevalue.MarshalMap(quoteRecord{
		ID:     quote.ID,
		Text:   quote.Text,
		Author: quote.Author,
	})
	if err != nil {
		return fmt.Errorf("marshaling quote %d: %w", quote.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting quote %d: %w: %w", quote.ID, domain.ErrUnavailable, err)
	}

	return nil
}

// SaveAll upserts a batch of quotes in BatchWriteItem chunks of 25,
// the DynamoDB per-request maximum.
func (s *QuoteStore) SaveAll(ctx context.Context, quotes []domain.Quote) error {
	const batchSize = 25

	for start := 0; start < len(quotes); start += batchSize {
		end := min(start+batchSize, len(quotes))

		writes := make([]types.WriteRequest, 0, end-start)

		for _, quote := range quotes[start:end] {
			item, err := attributevalue.MarshalMap(quoteRecord{
				ID:     quote.ID,
				Text:   quote.Text,
				Author: quote.Author,
			})
			if err != nil {
				return fmt.Errorf("marshaling quote %d: %w", quote.ID, err)
			}

			writes = append(writes, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		unprocessed := map[string][]types.WriteRequest{s.table: writes}

		// Retry unprocessed items until the batch drains or the
		// context expires.
		for len(unprocessed[s.table]) > 0 {
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: unprocessed,
			})
			if err != nil {
				return fmt.Errorf("batch writing quotes: %w: %w", domain.ErrUnavailable, err)
			}

			unprocessed = out.UnprocessedItems

			if len(unprocessed[s.table]) > 0 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("batch writing quotes: %w: %w", domain.ErrUnavailable, err)
				}
			}
		}
	}

	return nil
}

// MaxID scans id attributes only and returns the highest, or 0 for an
// empty catalog.
func (s *QuoteStore) MaxID(ctx context.Context) (int, error) {
	maxID := 0

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.table),
		ProjectionExpression: aws.String("id"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scanning quote ids: %w: %w", domain.ErrUnavailable, err)
		}

		for _, item := range page.Items {
			var record struct {
				ID int `dynamodbav:"id"`
			}

			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return 0, fmt.Errorf("unmarshaling quote id: %w", err)
			}

			if record.ID > maxID {
				maxID = record.ID
			}
		}
	}

	return maxID, nil
}

func quoteKey(id int) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(struct {
		ID int `dynamodbav:"id"`
	}{ID: id})
	if err != nil {
		return nil, fmt.Errorf("marshaling quote key %d: %w", id, err)
	}

	return key, nil
}

// isConditionalCheckFailed reports whether err is a conditional write
// rejection, used to make conditional puts idempotent.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException

	return errors.As(err, &ccf)
}
