package ddb

import (
	"context"
	"edsync/internal/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SettingsStore keeps one item per site in a single PK/SK table.
type SettingsStore struct {
	table string
	cli   *dynamodb.Client
}

type settingsItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	LocalSiteID int64  `dynamodbav:"local_site_id"`
	RawSettings string `dynamodbav:"raw_settings"`
}

func NewSettingsStore(table string, cli *dynamodb.Client) *SettingsStore {
	createTableIfNotExists(cli, table)
	return &SettingsStore{table: table, cli: cli}
}

func (s *SettingsStore) key(siteID int64) map[string]ddbTypes.AttributeValue {
	return map[string]ddbTypes.AttributeValue{
		"PK": &ddbTypes.AttributeValueMemberS{Value: pkSite(siteID)},
		"SK": &ddbTypes.AttributeValueMemberS{Value: skEditorSettings()},
	}
}

func (s *SettingsStore) Get(ctx context.Context, siteID int64) (*types.SettingsDocument, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		ConsistentRead: awsBool(true),
		Key:            s.key(siteID),
	})
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "get site %d", siteID)
	}
	if out.Item == nil {
		return nil, nil
	}
	var it settingsItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "unmarshal site %d", siteID)
	}
	return &types.SettingsDocument{SiteID: it.LocalSiteID, Raw: []byte(it.RawSettings)}, nil
}

// Replace overwrites the item with a single PutItem, or deletes it when doc is nil.
// A single-item write is atomic in DynamoDB, so no delete-then-insert gap is visible.
func (s *SettingsStore) Replace(ctx context.Context, siteID int64, doc *types.SettingsDocument) error {
	if doc == nil {
		_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: &s.table,
			Key:       s.key(siteID),
		})
		if err != nil {
			return types.Err(types.ErrDataStoreAccess, err, "delete site %d", siteID)
		}
		return nil
	}
	av, err := attributevalue.MarshalMap(settingsItem{
		PK:          pkSite(siteID),
		SK:          skEditorSettings(),
		LocalSiteID: siteID,
		RawSettings: string(doc.Raw),
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "marshal site %d", siteID)
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "put site %d", siteID)
	}
	return nil
}
