package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		folder string
		base   string
		want   string
	}{
		{"news", "image-1-abc.jpg", "news/image-1-abc.jpg"},
		{"/projects/", "a.pdf", "projects/a.pdf"},
		{"", "a.pdf", "a.pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, objectKey(tt.folder, tt.base))
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("/tmp/staging/attachments-1-abc.pdf"))
	assert.Equal(t, "image/png", contentTypeFor("photo.png"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob.unknownext"))
}
