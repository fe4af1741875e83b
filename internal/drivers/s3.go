// internal/drivers/s3.go
package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// s3API is the subset of *s3.Client the driver uses
type s3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Driver implements FS over one bucket of S3-compatible storage. Keys are
// treated as slash separated paths rooted at "/", so "/docs/a.md" is the key
// "docs/a.md" and common prefixes act as directories.
type S3Driver struct {
	endpoint string
	region   string
	bucket   string
	logger   *zap.Logger
	client   s3API
}

// NewS3Driver creates a new S3 storage driver
func NewS3Driver(endpoint, accessKey, secretKey, region, bucket string, logger *zap.Logger) (*S3Driver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3: bucket required")
	}
	if region == "" {
		region = "us-east-1"
	}

	// Create custom credentials provider
	creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Create S3 client with custom endpoint
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	d := NewS3DriverWithClient(client, bucket, logger)
	d.endpoint = endpoint
	d.region = region

	d.logger.Info("s3 driver initialized",
		zap.String("endpoint", endpoint),
		zap.String("region", region),
		zap.String("bucket", bucket),
	)
	return d, nil
}

// NewS3DriverWithClient wraps an existing client
func NewS3DriverWithClient(client s3API, bucket string, logger *zap.Logger) *S3Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Driver{
		bucket: bucket,
		logger: logger,
		client: client,
	}
}

// Name returns the driver name
func (d *S3Driver) Name() string {
	return "s3"
}

// key maps an absolute path onto an object key. The bucket root is "".
func (d *S3Driver) key(name string) string {
	k := path.Clean("/" + filepath.ToSlash(name))
	return strings.TrimPrefix(k, "/")
}

// Stat resolves objects first and falls back to prefixes, which are reported
// as directories
func (d *S3Driver) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	key := d.key(name)
	if key == "" {
		return &objectInfo{name: "/", dir: true, bucket: d.bucket}, nil
	}

	head, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		info := &objectInfo{
			name:   path.Base(key),
			bucket: d.bucket,
			key:    key,
			size:   aws.ToInt64(head.ContentLength),
			etag:   aws.ToString(head.ETag),
		}
		if head.LastModified != nil {
			info.modTime = *head.LastModified
		}
		return info, nil
	}
	if !isS3NotFound(err) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	out, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return &objectInfo{name: path.Base(key), dir: true, bucket: d.bucket, key: key + "/"}, nil
}

// Lstat is Stat, object storage has no symlinks
func (d *S3Driver) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	return d.Stat(ctx, name)
}

// ReadDir lists one level below name using "/" as the delimiter
func (d *S3Driver) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	prefix := d.key(name)
	if prefix != "" {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var entries []fs.DirEntry
	found := prefix == ""
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
		}

		for _, cp := range output.CommonPrefixes {
			found = true
			sub := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if sub == "" {
				continue
			}
			entries = append(entries, fs.FileInfoToDirEntry(&objectInfo{
				name:   sub,
				dir:    true,
				bucket: d.bucket,
				key:    aws.ToString(cp.Prefix),
			}))
		}
		for _, obj := range output.Contents {
			found = true
			key := aws.ToString(obj.Key)
			if key == prefix {
				// directory marker
				continue
			}
			info := &objectInfo{
				name:         strings.TrimPrefix(key, prefix),
				bucket:       d.bucket,
				key:          key,
				size:         aws.ToInt64(obj.Size),
				etag:         aws.ToString(obj.ETag),
				storageClass: string(obj.StorageClass),
			}
			if obj.LastModified != nil {
				info.modTime = *obj.LastModified
			}
			entries = append(entries, fs.FileInfoToDirEntry(info))
		}
	}

	if !found {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	d.logger.Debug("S3Driver.ReadDir",
		zap.String("bucket", d.bucket),
		zap.String("prefix", prefix),
		zap.Int("count", len(entries)),
	)
	return entries, nil
}

// ReadFile downloads the whole object
func (d *S3Driver) ReadFile(ctx context.Context, name string) ([]byte, error) {
	key := d.key(name)
	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
		}
		return nil, &fs.PathError{Op: "read", Path: name, Err: fmt.Errorf("get object %s/%s: %w", d.bucket, key, err)}
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

// HealthCheck verifies the bucket is reachable
func (d *S3Driver) HealthCheck(ctx context.Context) error {
	_, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	// some S3-compatible services only report the status
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

// objectInfo is the fs.FileInfo of an object or common prefix
type objectInfo struct {
	name         string
	dir          bool
	bucket       string
	key          string
	size         int64
	etag         string
	storageClass string
	modTime      time.Time
}

func (i *objectInfo) Name() string       { return i.name }
func (i *objectInfo) Size() int64        { return i.size }
func (i *objectInfo) ModTime() time.Time { return i.modTime }
func (i *objectInfo) IsDir() bool        { return i.dir }

func (i *objectInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

func (i *objectInfo) Sys() interface{} {
	sys := map[string]interface{}{
		"bucket": i.bucket,
		"key":    i.key,
	}
	if i.etag != "" {
		sys["etag"] = i.etag
	}
	if i.storageClass != "" {
		sys["storageClass"] = i.storageClass
	}
	return sys
}
