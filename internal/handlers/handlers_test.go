package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/middleware"
	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/realtime"
	"github.com/memoria-social/backend/internal/repositories"
	"github.com/memoria-social/backend/internal/services"
	"github.com/memoria-social/backend/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userHeader = "X-Test-User"

// testIdentity trusts the user id in a header; real auth is covered in
// the middleware package.
func testIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Request().Header.Get(userHeader); id != "" {
			c.Set(middleware.IdentityKey, models.Identity{
				UserID:   id,
				Provider: models.ProviderJWT,
				Name:     "user " + id,
			})
		}
		return next(c)
	}
}

type fakeUserRepo struct {
	profiles map[string]*models.User
}

func (f *fakeUserRepo) GetUserByIdentity(ctx context.Context, identity models.Identity) (*models.User, error) {
	if u, ok := f.profiles[identity.UserID]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) UpsertProfile(ctx context.Context, identity models.Identity, req models.UpdateProfileRequest) (*models.User, error) {
	u := &models.User{Name: req.Name, ProfilePicture: req.ProfilePicture}
	f.profiles[identity.UserID] = u
	return u, nil
}

type fakeNotificationRepo struct {
	notifications []models.Notification
	read          []uint
}

func (f *fakeNotificationRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.ID = uint(len(f.notifications) + 1)
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationRepo) GetByRecipientID(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationRepo) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, recipientID string, id uint) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].RecipientID == recipientID {
			f.notifications[i].IsRead = true
			f.read = append(f.read, id)
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, recipientID string) error {
	for i := range f.notifications {
		if f.notifications[i].RecipientID == recipientID {
			f.notifications[i].IsRead = true
		}
	}
	return nil
}

type testServer struct {
	e      *echo.Echo
	users  *fakeUserRepo
	notifs *fakeNotificationRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := repositories.NewMemoryPostRepository()
	users := &fakeUserRepo{profiles: map[string]*models.User{}}
	notifs := &fakeNotificationRepo{}

	postService := services.NewPostService(repo)
	commentService := services.NewCommentService(repo, services.WithNotifications(notifs))

	e := echo.New()
	e.Validator = validators.NewValidator()
	e.GET("/health", HealthCheck)
	api := e.Group("/api/v1", testIdentity)
	NewPostHandler(postService, users).RegisterPostRoutes(api)
	NewCommentHandler(commentService, users).RegisterCommentRoutes(api)
	NewUserHandler(users).RegisterProfileRoutes(api)
	NewNotificationHandler(notifs).RegisterNotificationRoutes(api)
	NewLiveHandler(postService, realtime.NewHub(nil)).RegisterLiveRoutes(api)

	return &testServer{e: e, users: users, notifs: notifs}
}

func (s *testServer) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createPost(t *testing.T, user, body string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/posts", user, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](t, rec)["id"].(string)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestCommentLifecycle(t *testing.T) {
	s := newTestServer(t)
	postID := s.createPost(t, "1", `{"content":"first post"}`)
	base := "/api/v1/posts/" + postID + "/comments"

	rec := s.do(t, http.MethodPost, base, "1", `{"content":"  Hello  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c1 := decode[models.Comment](t, rec)
	assert.Equal(t, int64(1), c1.ID)
	assert.Equal(t, "Hello", c1.Content)
	assert.Equal(t, "user 1", c1.Author.Name)
	assert.Equal(t, 0, c1.Likes)

	rec = s.do(t, http.MethodPost, base+"/1/replies", "2", `{"content":"Hi back"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	r1 := decode[models.Comment](t, rec)
	assert.Equal(t, int64(2), r1.ID)

	rec = s.do(t, http.MethodPost, base+"/2/like", "1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	like := decode[models.ToggleLikeResponse](t, rec)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)
	assert.Equal(t, []string{"1"}, like.LikedBy)

	rec = s.do(t, http.MethodPost, base+"/2/like", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	unlike := decode[models.ToggleLikeResponse](t, rec)
	assert.False(t, unlike.Liked)
	assert.Equal(t, 0, unlike.Likes)

	rec = s.do(t, http.MethodGet, base+"/1", "3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Comment](t, rec)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, "Hi back", got.Replies[0].Content)

	rec = s.do(t, http.MethodGet, "/api/v1/posts/"+postID, "3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["commentCount"])

	// Only the author of a node may delete it; deletion takes the subtree.
	rec = s.do(t, http.MethodDelete, base+"/1", "2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, base+"/1", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/2", "1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, base, "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Comment](t, rec))

	// Own comment: nothing. Reply by 2: notifies 1. Like by 1: notifies 2.
	// The unlike records nothing.
	require.Len(t, s.notifs.notifications, 2)
	assert.Equal(t, models.NotificationReply, s.notifs.notifications[0].Type)
	assert.Equal(t, "1", s.notifs.notifications[0].RecipientID)
	assert.Equal(t, models.NotificationCommentLike, s.notifs.notifications[1].Type)
	assert.Equal(t, "2", s.notifs.notifications[1].RecipientID)
}

func TestCommentErrors(t *testing.T) {
	s := newTestServer(t)
	postID := s.createPost(t, "1", `{"content":"post"}`)
	private := s.createPost(t, "1", `{"content":"secret","privacy":"private"}`)
	base := "/api/v1/posts/" + postID + "/comments"

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		status int
	}{
		{"unauthenticated", http.MethodPost, base, "", `{"content":"x"}`, http.StatusUnauthorized},
		{"blank content", http.MethodPost, base, "1", `{"content":"   "}`, http.StatusBadRequest},
		{"too long", http.MethodPost, base, "1", `{"content":"` + strings.Repeat("a", 1001) + `"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, base, "1", `{"content":`, http.StatusBadRequest},
		{"bad comment id", http.MethodGet, base + "/abc", "1", "", http.StatusBadRequest},
		{"zero comment id", http.MethodPost, base + "/0/like", "1", "", http.StatusBadRequest},
		{"missing parent", http.MethodPost, base + "/99/replies", "1", `{"content":"x"}`, http.StatusNotFound},
		{"missing like target", http.MethodPost, base + "/99/like", "1", "", http.StatusNotFound},
		{"missing delete target", http.MethodDelete, base + "/99", "1", "", http.StatusNotFound},
		{"missing post", http.MethodPost, "/api/v1/posts/64b7f0c2a1b2c3d4e5f60718/comments", "1", `{"content":"x"}`, http.StatusNotFound},
		{"malformed post id", http.MethodGet, "/api/v1/posts/nope/comments", "1", "", http.StatusNotFound},
		{"private post hidden", http.MethodPost, "/api/v1/posts/" + private + "/comments", "2", `{"content":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(t, http.MethodPost, "/api/v1/posts/"+private+"/comments", "1", `{"content":"note to self"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Surrounding whitespace does not count toward the length limit.
	padded := strings.Repeat("a", 1000)
	rec = s.do(t, http.MethodPost, base, "1", `{"content":"  `+padded+`  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, padded, decode[models.Comment](t, rec).Content)
}

func TestPostHandlers(t *testing.T) {
	s := newTestServer(t)
	s.createPost(t, "1", `{"content":"public one"}`)
	s.createPost(t, "1", `{"content":"private one","privacy":"private"}`)
	theirs := s.createPost(t, "2", `{"content":"by two","imageUrls":["https://img.example.com/p.png"]}`)

	rec := s.do(t, http.MethodPost, "/api/v1/posts", "1", `{"content":"x","imageUrls":["not a url"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/posts", "1", `{"content":"x","privacy":"friends"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/posts", "2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/v1/posts?author=1", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/v1/posts?limit=1", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/api/v1/posts/"+theirs, "1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/posts/"+theirs, "2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/posts/"+theirs, "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileSnapshotsAuthor(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/profile", "5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/profile", "5", `{"name":"E"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/profile", "5", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request payload", decode[map[string]string](t, rec)["message"])

	rec = s.do(t, http.MethodPut, "/api/v1/profile", "5", `{"name":"Eve","profilePicture":"https://img.example.com/eve.png"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	postID := s.createPost(t, "1", `{"content":"post"}`)
	rec = s.do(t, http.MethodPost, "/api/v1/posts/"+postID+"/comments", "5", `{"content":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decode[models.Comment](t, rec)
	assert.Equal(t, models.Author{ID: "5", Name: "Eve", ProfilePicture: "https://img.example.com/eve.png"}, c.Author)

	// Later profile changes leave the snapshot alone.
	s.do(t, http.MethodPut, "/api/v1/profile", "5", `{"name":"Evelyn"}`)
	rec = s.do(t, http.MethodGet, "/api/v1/posts/"+postID+"/comments/1", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Eve", decode[models.Comment](t, rec).Author.Name)
}

func TestNotificationHandlers(t *testing.T) {
	s := newTestServer(t)
	postID := s.createPost(t, "1", `{"content":"post"}`)
	s.do(t, http.MethodPost, "/api/v1/posts/"+postID+"/comments", "2", `{"content":"a"}`)
	s.do(t, http.MethodPost, "/api/v1/posts/"+postID+"/comments", "3", `{"content":"b"}`)

	rec := s.do(t, http.MethodGet, "/api/v1/notifications", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 2, meta["totalItems"])

	rec = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["data"].(map[string]any)["count"])

	rec = s.do(t, http.MethodPut, "/api/v1/notifications/1/read", "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/v1/notifications/x/read", "1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/v1/notifications/1/read", "1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{1}, s.notifs.read)

	rec = s.do(t, http.MethodPut, "/api/v1/notifications/read-all", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	count, err := s.notifs.GetUnreadCount(context.Background(), "1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLiveRejectsHiddenPost(t *testing.T) {
	s := newTestServer(t)
	private := s.createPost(t, "1", `{"content":"secret","privacy":"private"}`)

	rec := s.do(t, http.MethodGet, "/api/v1/posts/"+private+"/live", "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.ErrValidation, http.StatusBadRequest},
		{repositories.ErrPostNotFound, http.StatusNotFound},
		{models.ErrForbidden, http.StatusForbidden},
		{repositories.ErrVersionConflict, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusTeapot), http.StatusTeapot},
	}
	for _, tt := range tests {
		var he *echo.HTTPError
		require.True(t, errors.As(httpError(tt.err), &he))
		assert.Equal(t, tt.status, he.Code, tt.err.Error())
	}
}
