package library

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the part of the S3 client the library needs.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Library serves assets stored as objects under a key prefix.
type S3Library struct {
	client ObjectAPI
	bucket string
	prefix string
}

// Ensure S3Library implements Library.
var _ Library = (*S3Library)(nil)

// NewS3Library creates an S3Library. The prefix is joined to ids with "/".
func NewS3Library(client ObjectAPI, bucket, prefix string) *S3Library {
	return &S3Library{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (l *S3Library) key(id string) string {
	if l.prefix == "" {
		return id
	}
	return l.prefix + "/" + id
}

// Asset implements Library using HeadObject.
func (l *S3Library) Asset(ctx context.Context, id string) (Asset, error) {
	if err := ValidateID(id); err != nil {
		return Asset{}, err
	}

	out, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key(id)),
	})
	if err != nil {
		return Asset{}, l.mapError(id, err)
	}

	asset := Asset{
		ID:       id,
		Kind:     KindOf(id),
		Filename: path.Base(id),
		Size:     aws.ToInt64(out.ContentLength),
	}
	if asset.Kind == KindUnknown {
		asset.Kind = kindOfContentType(aws.ToString(out.ContentType))
	}
	return asset, nil
}

// Export implements Library using GetObject.
func (l *S3Library) Export(ctx context.Context, asset Asset, dst string) error {
	if err := ValidateID(asset.ID); err != nil {
		return err
	}

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key(asset.ID)),
	})
	if err != nil {
		return l.mapError(asset.ID, err)
	}
	defer func() { _ = out.Body.Close() }()

	return writeFile(dst, out.Body)
}

func (l *S3Library) mapError(id string, err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return fmt.Errorf("fetch asset %s: %w", id, err)
}

func kindOfContentType(ct string) Kind {
	major, _, _ := strings.Cut(ct, "/")
	switch major {
	case "video":
		return KindVideo
	case "image":
		return KindImage
	case "audio":
		return KindAudio
	default:
		return KindUnknown
	}
}
