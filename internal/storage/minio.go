package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"movie-review-backend/internal/domain"
)

const reviewPrefix = "reviews/"

// MinioStore keeps one JSON object per review under reviews/<movie>/<id>.json.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (m *MinioStore) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

func (m *MinioStore) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	review.ID = uuid.NewString()
	body, err := json.Marshal(review)
	if err != nil {
		return domain.Review{}, err
	}
	_, err = m.client.PutObject(ctx, m.bucket, objectKey(review.MovieID, review.ID), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("put review object: %w", err)
	}
	return review, nil
}

func (m *MinioStore) FindByMovie(ctx context.Context, movieID string) ([]domain.Review, error) {
	keys, err := m.listKeys(ctx, moviePrefix(movieID))
	if err != nil {
		return nil, err
	}
	items, err := m.load(ctx, keys)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

// FindLatest orders by object modification time before fetching, so only
// limit objects are downloaded.
func (m *MinioStore) FindLatest(ctx context.Context, limit int) ([]domain.Review, error) {
	infos, err := m.list(ctx, reviewPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	if limit >= 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	items, err := m.load(ctx, keys)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

func (m *MinioStore) Count(ctx context.Context) (int64, error) {
	infos, err := m.list(ctx, reviewPrefix)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return int64(len(infos)), nil
}

func (m *MinioStore) list(ctx context.Context, prefix string) ([]minio.ObjectInfo, error) {
	out := make([]minio.ObjectInfo, 0)
	for info := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list review objects: %w", info.Err)
		}
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (m *MinioStore) listKeys(ctx context.Context, prefix string) ([]string, error) {
	infos, err := m.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}

func (m *MinioStore) load(ctx context.Context, keys []string) ([]domain.Review, error) {
	items := make([]domain.Review, 0, len(keys))
	for _, key := range keys {
		obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		data := new(bytes.Buffer)
		_, err = data.ReadFrom(obj)
		_ = obj.Close()
		if err != nil {
			return nil, fmt.Errorf("read object %s: %w", key, err)
		}
		var r domain.Review
		if err := json.Unmarshal(data.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("decode object %s: %w", key, err)
		}
		items = append(items, r)
	}
	return items, nil
}

func moviePrefix(movieID string) string {
	return reviewPrefix + url.PathEscape(movieID) + "/"
}

func objectKey(movieID, reviewID string) string {
	return path.Join(moviePrefix(movieID), reviewID+".json")
}

func sortNewestFirst(items []domain.Review) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
