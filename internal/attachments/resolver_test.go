package attachments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-app/internal/apperr"
	"chat-app/internal/models"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Put(ctx context.Context, key string, body io.Reader, contentType string, params StorageParams) (string, error) {
	args := m.Called(ctx, key, body, contentType, params)
	return args.String(0), args.Error(1)
}

func newTestResolver(store ObjectStore) *Resolver {
	r := NewResolver(store)
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	r.newID = func() string { return "0b6f6d1e-3c1a-4d55-9a38-1f0e0c9e2a11" }
	return r
}

func TestClassify(t *testing.T) {
	cases := []struct {
		contentType string
		want        models.AttachmentKind
	}{
		{"image/png", models.KindImage},
		{"IMAGE/JPEG", models.KindImage},
		{"video/mp4", models.KindVideo},
		{"application/pdf", models.KindDocument},
		{"application/msword", models.KindDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", models.KindDocument},
		{"application/vnd.ms-excel", models.KindDocument},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", models.KindDocument},
		{"text/plain; charset=utf-8", models.KindDocument},
		{"application/zip", models.KindOther},
		{"text/html", models.KindOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.contentType), tc.contentType)
		assert.Equal(t, tc.want != models.KindOther, Accepted(tc.contentType), tc.contentType)
	}
}

func TestParamsFor(t *testing.T) {
	video := ParamsFor("video/quicktime")
	assert.Equal(t, ResourceVideo, video.ResourceType)
	assert.Equal(t, "mp4", video.Format)
	assert.Equal(t, VideoChunkSize, video.ChunkSize)

	image := ParamsFor("image/png")
	assert.Equal(t, ResourceImage, image.ResourceType)
	assert.Zero(t, image.ChunkSize)

	assert.Equal(t, ResourceRaw, ParamsFor("application/pdf").ResourceType)
	assert.Equal(t, ResourceAuto, ParamsFor("text/plain").ResourceType)
}

func TestResolveImage(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)
	key := "chat-app/1700000000000-0b6f6d1e-3c1a-4d55-9a38-1f0e0c9e2a11.png"

	store.On("Put", mock.Anything, key, mock.Anything, "image/png", ParamsFor("image/png")).
		Return("https://cdn.test/"+key, nil).Once()

	att, err := r.Resolve(context.Background(), RawFile{FileName: "cat.PNG", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)

	assert.Equal(t, models.KindImage, att.Kind)
	assert.Equal(t, "https://cdn.test/"+key, att.URL)
	assert.Equal(t, "cat.PNG", att.FileName)
	store.AssertExpectations(t)
}

func TestResolvePDFIsDocument(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/pdf", mock.Anything).
		Return("https://cdn.test/report.pdf", nil).Once()

	att, err := r.Resolve(context.Background(), RawFile{FileName: "report.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")})
	require.NoError(t, err)

	assert.Equal(t, models.KindDocument, att.Kind)
	assert.Equal(t, "report.pdf", att.FileName)
}

func TestResolveAcceptsExactlyMaxSize(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "video/mp4", mock.Anything).
		Run(func(args mock.Arguments) {
			n, err := io.Copy(io.Discard, args.Get(2).(io.Reader))
			require.NoError(t, err)
			require.Equal(t, MaxFileSize, n)
		}).
		Return("https://cdn.test/v.mp4", nil).Once()

	body := io.LimitReader(zeroReader{}, MaxFileSize)
	att, err := r.Resolve(context.Background(), RawFile{FileName: "v.mp4", ContentType: "video/mp4", Size: MaxFileSize, Body: body})
	require.NoError(t, err)
	assert.Equal(t, models.KindVideo, att.Kind)
}

func TestResolveRejectsOneByteOverMax(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), RawFile{FileName: "v.mp4", ContentType: "video/mp4", Size: MaxFileSize + 1, Body: strings.NewReader("")})

	require.ErrorIs(t, err, apperr.ErrFileTooLarge)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveRejectsBodyLargerThanDeclared(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "video/mp4", mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = io.Copy(io.Discard, args.Get(2).(io.Reader))
		}).
		Return("", errors.New("read failed")).Once()

	body := io.LimitReader(zeroReader{}, MaxFileSize+1)
	_, err := r.Resolve(context.Background(), RawFile{FileName: "v.mp4", ContentType: "video/mp4", Size: 10, Body: body})

	require.ErrorIs(t, err, apperr.ErrFileTooLarge)
}

func TestResolveUnsupportedType(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), RawFile{FileName: "a.zip", ContentType: "application/zip", Size: 10, Body: strings.NewReader("PK")})

	require.ErrorIs(t, err, apperr.ErrUnsupportedFileType)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveSniffsMissingContentType(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)
	payload := "%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/pdf", mock.Anything).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(2).(io.Reader))
			require.NoError(t, err)
			assert.Equal(t, payload, string(data))
		}).
		Return("https://cdn.test/x.pdf", nil).Once()

	att, err := r.Resolve(context.Background(), RawFile{FileName: "x.pdf", ContentType: "application/octet-stream", Size: int64(len(payload)), Body: strings.NewReader(payload)})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, models.KindDocument, att.Kind)
}

func TestResolveStoreFailure(t *testing.T) {
	store := new(storeMock)
	r := newTestResolver(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "image/jpeg", mock.Anything).
		Return("", errors.New("503 slow down")).Once()

	_, err := r.Resolve(context.Background(), RawFile{FileName: "a.jpg", ContentType: "image/jpeg", Size: 1, Body: strings.NewReader("x")})

	require.ErrorIs(t, err, apperr.ErrAttachmentStoreUnavailable)
	assert.Equal(t, apperr.KindAttachmentStore, apperr.KindOf(err))
}

func TestUnconfiguredStore(t *testing.T) {
	_, err := UnconfiguredStore{}.Put(context.Background(), "k", strings.NewReader(""), "image/png", StorageParams{})
	assert.ErrorIs(t, err, ErrStoreNotConfigured)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "https://files.test", publicBase(S3Config{PublicURL: "https://files.test/"}))
	assert.Equal(t, "http://minio:9000/chat", publicBase(S3Config{Endpoint: "http://minio:9000", Bucket: "chat"}))
	assert.Equal(t, "https://chat.s3.eu-west-1.amazonaws.com", publicBase(S3Config{Bucket: "chat", Region: "eu-west-1"}))
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
