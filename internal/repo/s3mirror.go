package repo

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// S3Mirror optionally uploads graveyard JPEGs to an S3 bucket for off-box
// retention (--graveyard-s3-bucket), alongside the local POSIX repo; local
// semantics (§4.I) are unaffected whether or not a mirror is configured.
type S3Mirror struct {
	Bucket   string
	Prefix   string
	uploader *s3manager.Uploader
}

// NewS3Mirror builds a mirror from a default AWS session/credential chain.
func NewS3Mirror(bucket, prefix string) (*S3Mirror, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "repo: new aws session")
	}
	return &S3Mirror{Bucket: bucket, Prefix: prefix, uploader: s3manager.NewUploader(sess)}, nil
}

// upload re-encodes img as a JPEG and uploads it to key (prefixed).
func (m *S3Mirror) upload(key string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return errors.Wrap(err, "repo: s3 mirror: encode jpeg")
	}
	_, err := m.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(m.Bucket),
		Key:    aws.String(m.Prefix + key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	return errors.Wrapf(err, "repo: s3 mirror: upload %s", key)
}
