package redis

import (
	"context"
	"edsync/internal/types"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

const (
	settingsKeyNameTemplate = "_edsync_settings_%d"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// SettingsStore keeps one compressed document per site under a plain string key.
type SettingsStore struct {
	cli *redis.Client
}

func NewSettingsStore(cli *redis.Client) *SettingsStore {
	return &SettingsStore{cli: cli}
}

func (s *SettingsStore) Get(ctx context.Context, siteID int64) (*types.SettingsDocument, error) {
	out, err := s.cli.Get(ctx, getSettingsKey(siteID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, types.Err(types.ErrDataStoreAccess, err, "get site %d", siteID)
	}
	raw, err := decodeDocument(out)
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "decode site %d", siteID)
	}
	return &types.SettingsDocument{SiteID: siteID, Raw: raw}, nil
}

// Replace runs DEL and SET in one MULTI/EXEC so readers never see the gap.
func (s *SettingsStore) Replace(ctx context.Context, siteID int64, doc *types.SettingsDocument) error {
	key := getSettingsKey(siteID)
	_, err := s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if doc != nil {
			pipe.Set(ctx, key, encodeDocument(doc.Raw), 0)
		}
		return nil
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "replace site %d", siteID)
	}
	return nil
}

// ClearAll deletes every cached document. Used in tests only.
func (s *SettingsStore) ClearAll(ctx context.Context) error {
	keys, err := s.cli.Keys(ctx, getSettingsKeyPattern()).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cli.Del(ctx, keys...).Err()
}

// encodeDocument compresses and base64-url encodes the raw JSON.
func encodeDocument(raw []byte) string {
	b := enc.EncodeAll(raw, make([]byte, 0, len(raw)))
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeDocument(in string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(in)
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(b, nil)
}

func getSettingsKey(siteID int64) string {
	return fmt.Sprintf(settingsKeyNameTemplate, siteID)
}

func getSettingsKeyPattern() string {
	return settingsKeyNameTemplate[:len(settingsKeyNameTemplate)-2] + "*"
}
