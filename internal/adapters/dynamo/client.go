// Package dynamo provides DynamoDB-backed store adapters. Every table is
// a simple key-value layout: quotes keyed by numeric id, per-user
// relations keyed by username with the quote id as the sort key.
package dynamo

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Tables names the DynamoDB tables the adapters operate on.
type Tables struct {
	Quotes   string
	Likes    string
	Views    string
	Progress string
}

// NewClient builds a DynamoDB client from the default AWS credential
// chain. An empty endpoint uses the regular AWS endpoint resolution;
// a non-empty one targets a local emulator.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	}), nil
}
