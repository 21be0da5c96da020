package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Smallest well-formed headers mimetype recognizes
var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!")
	webpHeader = []byte("RIFF\x1a\x00\x00\x00WEBPVP8L\x0d\x00\x00\x00/\x00\x00\x00\x10")
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  [][]byte
	deletes []string
	putErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestDetectImage(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		ext         string
	}{
		{"png", pngHeader, "image/png", ".png"},
		{"jpeg", jpegHeader, "image/jpeg", ".jpg"},
		{"gif", gifHeader, "image/gif", ".gif"},
		{"webp", webpHeader, "image/webp", ".webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, ext, err := DetectImage(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, contentType)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestDetectImageRejects(t *testing.T) {
	_, _, err := DetectImage(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = DetectImage([]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, _, err = DetectImage([]byte("%PDF-1.7\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := make([]byte, MaxLogoSize+1)
	copy(big, pngHeader)
	_, _, err = DetectImage(big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadLogo(t *testing.T) {
	api := &fakeS3{}
	u := newS3Uploader(api, "logos", "https://cdn.example.com/")

	result, err := u.UploadLogo(context.Background(), pngHeader, "acme.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "logos/"))
	assert.True(t, strings.HasSuffix(result.Key, ".png"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(result.Key, "logos/"), ".png"), 36)
	assert.Equal(t, "https://cdn.example.com/logos/"+result.Key, result.URL)
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, int64(len(pngHeader)), result.Size)

	require.Len(t, api.puts, 1)
	assert.Equal(t, "image/png", aws.ToString(api.puts[0].ContentType))
	assert.Equal(t, "acme.PNG", api.puts[0].Metadata["original-filename"])
	assert.Equal(t, pngHeader, api.bodies[0])
}

func TestUploadLogoRejectsBeforeUpload(t *testing.T) {
	api := &fakeS3{}
	u := newS3Uploader(api, "logos", "https://cdn.example.com")

	_, err := u.UploadLogo(context.Background(), []byte("not an image"), "logo.png")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Empty(t, api.puts)
}

func TestUploadLogoWrapsStoreError(t *testing.T) {
	api := &fakeS3{putErr: errors.New("access denied")}
	u := newS3Uploader(api, "logos", "https://cdn.example.com")

	_, err := u.UploadLogo(context.Background(), gifHeader, "logo.gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload to S3")
}

func TestDeleteByURL(t *testing.T) {
	api := &fakeS3{}
	u := newS3Uploader(api, "logos", "https://cdn.example.com")

	require.NoError(t, u.DeleteByURL(context.Background(), "https://cdn.example.com/logos/logos/abc.png"))
	assert.Equal(t, []string{"logos/abc.png"}, api.deletes)

	for _, foreign := range []string{
		"https://other.example.com/logos/logos/abc.png",
		"https://cdn.example.com/logos/other/abc.png",
		"https://cdn.example.com/logos/logos/",
	} {
		assert.ErrorIs(t, u.DeleteByURL(context.Background(), foreign), ErrForeignURL, foreign)
	}
	assert.Len(t, api.deletes, 1)
}
