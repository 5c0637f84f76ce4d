package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"ultrawealth-client/internal/domain"
)

const (
	skMeta      = "META#"
	skPrefixAct = "ACT#"
)

// ErrNotFound is returned when a dual-control request does not exist.
var ErrNotFound = errors.New("repository: request not found")

// ErrAlreadyResolved is returned when a resolution transaction loses the race
// against another resolver: the request left PENDING between the caller's
// read and the conditional write.
var ErrAlreadyResolved = errors.New("repository: request already resolved")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store defines the dual-control persistence operations consumed by the
// approval workflow.
type Store interface {
	CreateRequest(ctx context.Context, req domain.DualControlRequest) error
	GetRequest(ctx context.Context, requestID string) (domain.DualControlRequest, error)
	ResolveRequest(ctx context.Context, req domain.DualControlRequest, entry domain.ActivityEntry) error
	ListActivity(ctx context.Context, requestID string) ([]domain.ActivityEntry, error)
}

// Client wraps a DynamoDB table holding dual-control requests and their
// activity log. Request records live at (REQ#id, META#); activity entries at
// (REQ#id, ACT#<timestamp>). Neither carries a TTL: the activity log is
// immutable and must never expire.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// reqPK returns the DynamoDB partition key for a dual-control request.
func reqPK(requestID string) string {
	return "REQ#" + requestID
}

// actSK returns the sort key for an activity entry. RFC3339Nano keeps the log
// ordered by resolution time under a range query.
func actSK(ts time.Time) string {
	return skPrefixAct + ts.UTC().Format(time.RFC3339Nano)
}

// CreateRequest persists a new PENDING request. The conditional put rejects a
// duplicate request id instead of overwriting.
func (c *Client) CreateRequest(ctx context.Context, req domain.DualControlRequest) error {
	if req.RequestID == "" {
		return errors.New("repository: CreateRequest: request id is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                requestItem(req),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateRequest: %w", err)
	}
	return nil
}

// GetRequest reads the latest request state with a consistent read, so guard
// evaluation never runs against a stale replica.
func (c *Client) GetRequest(ctx context.Context, requestID string) (domain.DualControlRequest, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: reqPK(requestID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.DualControlRequest{}, fmt.Errorf("repository: GetRequest get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.DualControlRequest{}, ErrNotFound
	}

	req, err := itemToRequest(out.Item)
	if err != nil {
		return domain.DualControlRequest{}, fmt.Errorf("repository: GetRequest unmarshal: %w", err)
	}
	return req, nil
}

// ResolveRequest writes the terminal request state and its activity entry in
// one transaction. The status condition re-validates PENDING at write time:
// if another resolver got there first the whole transaction fails with
// ErrAlreadyResolved, leaving no partial state and no extra log entry.
func (c *Client) ResolveRequest(ctx context.Context, req domain.DualControlRequest, entry domain.ActivityEntry) error {
	if req.RequestID == "" {
		return errors.New("repository: ResolveRequest: request id is required")
	}
	if !req.Resolved() {
		return errors.New("repository: ResolveRequest: request is not in a terminal state")
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                requestItem(req),
					ConditionExpression: aws.String("#st = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#st": "status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":pending": &types.AttributeValueMemberS{Value: string(domain.DualControlPending)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                activityItem(entry),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancellation(err) {
			return ErrAlreadyResolved
		}
		return fmt.Errorf("repository: ResolveRequest: %w", err)
	}
	return nil
}

// ListActivity queries all ACT# items for a request in resolution order.
func (c *Client) ListActivity(ctx context.Context, requestID string) ([]domain.ActivityEntry, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: reqPK(requestID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixAct},
		},
		ScanIndexForward: aws.Bool(true),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: ListActivity query: %w", err)
	}

	entries := make([]domain.ActivityEntry, 0, len(out.Items))
	for _, item := range out.Items {
		entry, err := itemToActivity(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListActivity unmarshal: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// isConditionalCancellation reports whether a transaction failed because one
// of its condition expressions did not hold.
func isConditionalCancellation(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func requestItem(req domain.DualControlRequest) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":                &types.AttributeValueMemberS{Value: reqPK(req.RequestID)},
		"SK":                &types.AttributeValueMemberS{Value: skMeta},
		"requestId":         &types.AttributeValueMemberS{Value: req.RequestID},
		"requesterId":       &types.AttributeValueMemberS{Value: req.RequesterID},
		"action":            &types.AttributeValueMemberS{Value: req.Action},
		"requiredAuthority": &types.AttributeValueMemberS{Value: string(req.RequiredAuthority)},
		"status":            &types.AttributeValueMemberS{Value: string(req.Status)},
		"createdAt":         &types.AttributeValueMemberS{Value: req.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
	if req.ApproverID != "" {
		item["approverId"] = &types.AttributeValueMemberS{Value: req.ApproverID}
	}
	if req.ResolvedAt != nil {
		item["resolvedAt"] = &types.AttributeValueMemberS{Value: req.ResolvedAt.UTC().Format(time.RFC3339Nano)}
	}
	if req.Comment != "" {
		item["comment"] = &types.AttributeValueMemberS{Value: req.Comment}
	}
	return item
}

func activityItem(entry domain.ActivityEntry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: reqPK(entry.RequestID)},
		"SK":         &types.AttributeValueMemberS{Value: actSK(entry.RecordedAt)},
		"requestId":  &types.AttributeValueMemberS{Value: entry.RequestID},
		"status":     &types.AttributeValueMemberS{Value: string(entry.Status)},
		"actorId":    &types.AttributeValueMemberS{Value: entry.ActorID},
		"comment":    &types.AttributeValueMemberS{Value: entry.Comment},
		"recordedAt": &types.AttributeValueMemberS{Value: entry.RecordedAt.UTC().Format(time.RFC3339Nano)},
	}
}

// itemToRequest converts a DynamoDB attribute map to a DualControlRequest.
func itemToRequest(item map[string]types.AttributeValue) (domain.DualControlRequest, error) {
	requestID, err := strAttr(item, "requestId")
	if err != nil {
		return domain.DualControlRequest{}, err
	}
	requesterID, err := strAttr(item, "requesterId")
	if err != nil {
		return domain.DualControlRequest{}, err
	}
	action, err := strAttr(item, "action")
	if err != nil {
		return domain.DualControlRequest{}, err
	}
	required, err := strAttr(item, "requiredAuthority")
	if err != nil {
		return domain.DualControlRequest{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.DualControlRequest{}, err
	}
	createdAt, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.DualControlRequest{}, err
	}

	req := domain.DualControlRequest{
		RequestID:         requestID,
		RequesterID:       requesterID,
		Action:            action,
		RequiredAuthority: domain.Authority(required),
		Status:            domain.DualControlStatus(status),
		CreatedAt:         createdAt,
	}
	req.ApproverID, _ = strAttr(item, "approverId") // allow empty
	req.Comment, _ = strAttr(item, "comment")       // allow empty
	if _, ok := item["resolvedAt"]; ok {
		resolvedAt, err := timeAttr(item, "resolvedAt")
		if err != nil {
			return domain.DualControlRequest{}, err
		}
		req.ResolvedAt = &resolvedAt
	}
	return req, nil
}

// itemToActivity converts a DynamoDB attribute map to an ActivityEntry.
func itemToActivity(item map[string]types.AttributeValue) (domain.ActivityEntry, error) {
	requestID, err := strAttr(item, "requestId")
	if err != nil {
		return domain.ActivityEntry{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.ActivityEntry{}, err
	}
	actorID, err := strAttr(item, "actorId")
	if err != nil {
		return domain.ActivityEntry{}, err
	}
	recordedAt, err := timeAttr(item, "recordedAt")
	if err != nil {
		return domain.ActivityEntry{}, err
	}
	comment, _ := strAttr(item, "comment") // allow empty

	return domain.ActivityEntry{
		RequestID:  requestID,
		Status:     domain.DualControlStatus(status),
		ActorID:    actorID,
		Comment:    comment,
		RecordedAt: recordedAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	raw, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return ts, nil
}
