package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ebulter/quote-service/internal/app"
	"github.com/ebulter/quote-service/internal/domain"
)

// quoteIDIndex is the global secondary index on the likes table keyed by
// quoteId, used for per-quote like counts.
const quoteIDIndex = "QuoteIdIndex"

// likeCountConcurrency bounds concurrent index count queries.
const likeCountConcurrency = 8

type likeRecord struct {
	Username string `dynamodbav:"username"`
	QuoteID  int    `dynamodbav:"quoteId"`
	LikedAt  string `dynamodbav:"likedAt"`
	Order    *int   `dynamodbav:"sortOrder,omitempty"`
}

type viewRecord struct {
	Username string `dynamodbav:"username"`
	QuoteID  int    `dynamodbav:"quoteId"`
	ViewedAt string `dynamodbav:"viewedAt"`
}

type progressRecord struct {
	Username    string `dynamodbav:"username"`
	LastQuoteID int    `dynamodbav:"lastQuoteId"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

// ActivityStore persists the per-user activity relations across the
// likes, views and progress tables.
type ActivityStore struct {
	client *dynamodb.Client
	tables Tables

	now func() time.Time
}

// NewActivityStore creates an activity store over the given tables.
func NewActivityStore(client *dynamodb.Client, tables Tables) *ActivityStore {
	return &ActivityStore{
		client: client,
		tables: tables,
		now:    time.Now,
	}
}

// SaveLike writes the like with order one past the user's current
// maximum. The put is conditional on the item not existing, so re-liking
// keeps the original timestamp and order.
func (s *ActivityStore) SaveLike(ctx context.Context, username string, quoteID int) error {
	likes, err := s.GetLikes(ctx, username)
	if err != nil {
		return err
	}

	maxOrder := 0

	for _, like := range likes {
		if like.Order != nil && *like.Order > maxOrder {
			maxOrder = *like.Order
		}
	}

	order := maxOrder + 1

	item, err := attributevalue.MarshalMap(likeRecord{
		Username: username,
		QuoteID:  quoteID,
		LikedAt:  s.now().UTC().Format(time.RFC3339),
		Order:    &order,
	})
	if err != nil {
		return fmt.Errorf("marshaling like: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Likes),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(username)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil
		}

		return fmt.Errorf("putting like: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// GetLikes queries the user's likes and sorts them by custom order,
// likes without an order last, liked-at as the tiebreak.
func (s *ActivityStore) GetLikes(ctx context.Context, username string) ([]domain.UserLike, error) {
	records, err := s.queryByUsername(ctx, s.tables.Likes, username)
	if err != nil {
		return nil, fmt.Errorf("querying likes for %s: %w: %w", username, domain.ErrUnavailable, err)
	}

	likes := make([]domain.UserLike, 0, len(records))

	for _, item := range records {
		var r likeRecord
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return nil, fmt.Errorf("unmarshaling like: %w", err)
		}

		likes = append(likes, domain.UserLike{
			Username: r.Username,
			QuoteID:  r.QuoteID,
			LikedAt:  parseStoredTime(r.LikedAt),
			Order:    r.Order,
		})
	}

	sort.SliceStable(likes, func(i, j int) bool {
		oi, oj := likes[i].Order, likes[j].Order

		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case oi != nil && oj == nil:
			return true
		case oi == nil && oj != nil:
			return false
		default:
			return likes[i].LikedAt.Before(likes[j].LikedAt)
		}
	})

	return likes, nil
}

// HasLiked reports whether the like item exists.
func (s *ActivityStore) HasLiked(ctx context.Context, username string, quoteID int) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Likes),
		Key:       userQuoteKey(username, quoteID),
	})
	if err != nil {
		return false, fmt.Errorf("getting like: %w: %w", domain.ErrUnavailable, err)
	}

	return len(out.Item) > 0, nil
}

// DeleteLike removes the like item. Deleting an absent item succeeds.
func (s *ActivityStore) DeleteLike(ctx context.Context, username string, quoteID int) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tables.Likes),
		Key:       userQuoteKey(username, quoteID),
	})
	if err != nil {
		return fmt.Errorf("deleting like: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// SaveLikeOrder updates the order of an existing like. The update is
// conditional on the item existing, so an order shift racing a delete
// cannot resurrect the like.
func (s *ActivityStore) SaveLikeOrder(ctx context.Context, username string, quoteID, order int) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tables.Likes),
		Key:                 userQuoteKey(username, quoteID),
		UpdateExpression:    aws.String("SET sortOrder = :o"),
		ConditionExpression: aws.String("attribute_exists(username)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", order)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil
		}

		return fmt.Errorf("updating like order: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// DeleteAllLikes removes every like belonging to the user.
func (s *ActivityStore) DeleteAllLikes(ctx context.Context, username string) error {
	likes, err := s.GetLikes(ctx, username)
	if err != nil {
		return err
	}

	for _, like := range likes {
		if err := s.DeleteLike(ctx, username, like.QuoteID); err != nil {
			return err
		}
	}

	return nil
}

// LikeCount counts like items for the quote through the quote id index.
func (s *ActivityStore) LikeCount(ctx context.Context, quoteID int) (int, error) {
	count := 0

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Likes),
		IndexName:              aws.String(quoteIDIndex),
		KeyConditionExpression: aws.String("quoteId = :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quoteID)},
		},
		Select: types.SelectCount,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("counting likes for quote %d: %w: %w", quoteID, domain.ErrUnavailable, err)
		}

		count += int(page.Count)
	}

	return count, nil
}

// LikeCounts resolves like counts for a set of quote ids with index
// count queries fanned out concurrently. Ids with no likes map to 0.
func (s *ActivityStore) LikeCounts(ctx context.Context, quoteIDs []int) (map[int]int, error) {
	return countLikesBatch(ctx, likeCountConcurrency, quoteIDs, s.LikeCount)
}

// countLikesBatch deduplicates ids and runs the counter over them with
// bounded concurrency, failing fast on the first error.
func countLikesBatch(
	ctx context.Context,
	limit int,
	quoteIDs []int,
	count func(ctx context.Context, quoteID int) (int, error),
) (map[int]int, error) {
	unique := make([]int, 0, len(quoteIDs))
	seen := make(map[int]struct{}, len(quoteIDs))

	for _, id := range quoteIDs {
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	type quoteCount struct {
		id    int
		count int
	}

	fns := make([]func(context.Context) (quoteCount, error), len(unique))
	for i, id := range unique {
		fns[i] = func(ctx context.Context) (quoteCount, error) {
			n, err := count(ctx, id)
			if err != nil {
				return quoteCount{}, err
			}

			return quoteCount{id: id, count: n}, nil
		}
	}

	results, err := app.ParallelLimit(ctx, limit, fns...)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(results))
	for _, r := range results {
		counts[r.id] = r.count
	}

	return counts, nil
}

// SaveView upserts the view item, refreshing the viewed-at timestamp.
func (s *ActivityStore) SaveView(ctx context.Context, username string, quoteID int) error {
	item, err := attributevalue.MarshalMap(viewRecord{
		Username: username,
		QuoteID:  quoteID,
		ViewedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling view: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Views),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting view: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// GetViews returns the user's views, oldest first.
func (s *ActivityStore) GetViews(ctx context.Context, username string) ([]domain.UserView, error) {
	records, err := s.queryByUsername(ctx, s.tables.Views, username)
	if err != nil {
		return nil, fmt.Errorf("querying views for %s: %w: %w", username, domain.ErrUnavailable, err)
	}

	views := make([]domain.UserView, 0, len(records))

	for _, item := range records {
		var r viewRecord
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return nil, fmt.Errorf("unmarshaling view: %w", err)
		}

		views = append(views, domain.UserView{
			Username: r.Username,
			QuoteID:  r.QuoteID,
			ViewedAt: parseStoredTime(r.ViewedAt),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].ViewedAt.Equal(views[j].ViewedAt) {
			return views[i].ViewedAt.Before(views[j].ViewedAt)
		}

		return views[i].QuoteID < views[j].QuoteID
	})

	return views, nil
}

// ViewedQuoteIDs returns the set of quote ids the user has viewed.
func (s *ActivityStore) ViewedQuoteIDs(ctx context.Context, username string) (map[int]struct{}, error) {
	views, err := s.GetViews(ctx, username)
	if err != nil {
		return nil, err
	}

	ids := make(map[int]struct{}, len(views))
	for _, v := range views {
		ids[v.QuoteID] = struct{}{}
	}

	return ids, nil
}

// HasViewed reports whether the view item exists.
func (s *ActivityStore) HasViewed(ctx context.Context, username string, quoteID int) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Views),
		Key:       userQuoteKey(username, quoteID),
	})
	if err != nil {
		return false, fmt.Errorf("getting view: %w: %w", domain.ErrUnavailable, err)
	}

	return len(out.Item) > 0, nil
}

// DeleteAllViews removes every view belonging to the user.
func (s *ActivityStore) DeleteAllViews(ctx context.Context, username string) error {
	views, err := s.GetViews(ctx, username)
	if err != nil {
		return err
	}

	for _, view := range views {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tables.Views),
			Key:       userQuoteKey(username, view.QuoteID),
		})
		if err != nil {
			return fmt.Errorf("deleting view: %w: %w", domain.ErrUnavailable, err)
		}
	}

	return nil
}

// SaveProgress upserts the user's progress cursor.
func (s *ActivityStore) SaveProgress(ctx context.Context, username string, lastQuoteID int) error {
	item, err := attributevalue.MarshalMap(progressRecord{
		Username:    username,
		LastQuoteID: lastQuoteID,
		UpdatedAt:   s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling progress: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Progress),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting progress: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// GetProgress returns the user's progress cursor or domain.ErrNotFound.
func (s *ActivityStore) GetProgress(ctx context.Context, username string) (*domain.UserProgress, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Progress),
		Key:       usernameKey(username),
	})
	if err != nil {
		return nil, fmt.Errorf("getting progress: %w: %w", domain.ErrUnavailable, err)
	}

	if out.Item == nil {
		return nil, domain.NewNotFoundError("progress", username)
	}

	var r progressRecord
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling progress: %w", err)
	}

	return &domain.UserProgress{
		Username:    r.Username,
		LastQuoteID: r.LastQuoteID,
		UpdatedAt:   parseStoredTime(r.UpdatedAt),
	}, nil
}

// DeleteProgress removes the user's progress cursor.
func (s *ActivityStore) DeleteProgress(ctx context.Context, username string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tables.Progress),
		Key:       usernameKey(username),
	})
	if err != nil {
		return fmt.Errorf("deleting progress: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

func (s *ActivityStore) queryByUsername(ctx context.Context, table, username string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("username = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: username},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying %s for %s: %w: %w", table, username, domain.ErrUnavailable, err)
		}

		items = append(items, page.Items...)
	}

	return items, nil
}

func userQuoteKey(username string, quoteID int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"username": &types.AttributeValueMemberS{Value: username},
		"quoteId":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quoteID)},
	}
}

func usernameKey(username string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"username": &types.AttributeValueMemberS{Value: username},
	}
}

// parseStoredTime tolerates malformed timestamps by returning the zero
// time rather than failing the whole read.
func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
