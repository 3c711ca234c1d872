package media

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), Config{
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		Bucket:       "staymate-media",
		URLTTL:       15 * time.Minute,
	})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestStore_PresignUpload(t *testing.T) {
	s := newTestStore(t)

	ticket, err := s.PresignUpload(context.Background(), "u1", KindReceipt, "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ticket.Key, "receipts/u1/2026/05/04/"))
	assert.True(t, strings.HasSuffix(ticket.Key, ".jpg"))
	assert.Equal(t, "PUT", ticket.Method)

	u, err := url.Parse(ticket.URL)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/staymate-media/"+ticket.Key, u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}

func TestStore_PresignUpload_RejectsContentType(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PresignUpload(context.Background(), "u1", KindChatImage, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestStore_PresignDownload(t *testing.T) {
	s := newTestStore(t)

	raw, err := s.PresignDownload(context.Background(), "chat/u1/2026/05/04/x.png")
	require.NoError(t, err)
	assert.Contains(t, raw, "X-Amz-Signature=")
}

func TestOwnedBy(t *testing.T) {
	key := ObjectKey(KindChatImage, "u1", time.Now(), "png")

	assert.True(t, OwnedBy(key, KindChatImage, "u1"))
	assert.False(t, OwnedBy(key, KindChatImage, "u2"))
	assert.False(t, OwnedBy(key, KindReceipt, "u1"))
	assert.False(t, OwnedBy("chat/u1/../u2/x.png", KindChatImage, "u1"))
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf("receipts/u1/2026/05/04/x.jpg")
	assert.True(t, ok)
	assert.Equal(t, KindReceipt, k)

	_, ok = KindOf("avatars/u1/x.jpg")
	assert.False(t, ok)
	_, ok = KindOf("chat")
	assert.False(t, ok)
}
