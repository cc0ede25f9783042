package gallery

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galerie-tech/galerie/core/access"
	"github.com/galerie-tech/galerie/core/client"
	"github.com/galerie-tech/galerie/core/csql"
	"github.com/galerie-tech/galerie/core/filestore"
	"github.com/galerie-tech/galerie/core/notify"
)

// TestService holds the configuration for the tests
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
type TestService struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,default=docker" description:"password for the Postgres DB"`
}

type recordingNotifier struct {
	events []notify.OrderEvent
}

func (n *recordingNotifier) OrderCreated(ctx context.Context, event notify.OrderEvent) error {
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

var (
	testDB       *csql.DB
	testRouter   *mux.Router
	testNotifier *recordingNotifier
)

func TestMain(m *testing.M) {
	service := &TestService{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	testDB = csql.OpenWithSchema(service.Postgres, service.PostgresPassword, "gallery_test")
	testDB.ClearSchema()

	imageDir, err := os.MkdirTemp("", "gallery_images")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(imageDir)

	testRouter = mux.NewRouter()
	images, err := filestore.NewLocalFilesystem(testRouter, filestore.LocalConfiguration{
		BasePath: imageDir,
	})
	if err != nil {
		panic(err)
	}
	testNotifier = &recordingNotifier{}
	MustNew(&Builder{
		DB:            testDB,
		Router:        testRouter,
		SessionSecret: []byte("unit-test-secret"),
		Notifier:      testNotifier,
		Images:        images,
	})

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

// newSession registers a fresh user and logs it in.
func newSession(t *testing.T, email string) *client.Client {
	t.Helper()
	cl := client.NewWithRouter(testRouter)
	_, err := cl.RawPost("/api/auth/register", map[string]interface{}{
		"first_name": "Tess",
		"last_name":  "Painter",
		"email":      email,
		"password":   "secret",
	}, nil)
	require.NoError(t, err)
	_, err = cl.RawPost("/api/auth/login", map[string]interface{}{
		"email":    email,
		"password": "secret",
	}, nil)
	require.NoError(t, err)
	return cl
}

func TestAuthFlow(t *testing.T) {
	cl := client.NewWithRouter(testRouter)

	var check map[string]interface{}
	_, err := cl.RawGet("/api/auth/check", &check)
	require.NoError(t, err)
	assert.Equal(t, false, check["authenticated"])

	_, err = cl.RawPost("/api/auth/register", map[string]interface{}{
		"email": "a@b.com", "password": "x",
	}, nil)
	require.NoError(t, err)

	// registering alone does not create a session
	_, err = cl.RawGet("/api/auth/check", &check)
	require.NoError(t, err)
	assert.Equal(t, false, check["authenticated"])

	status, err := cl.RawPost("/api/auth/login", map[string]interface{}{
		"email": "a@b.com", "password": "wrong",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	var login map[string]interface{}
	_, err = cl.RawPost("/api/auth/login", map[string]interface{}{
		"email": "a@b.com", "password": "x",
	}, &login)
	require.NoError(t, err)
	assert.Equal(t, true, login["authenticated"])
	assert.NotNil(t, cl.Cookie(access.CookieName))

	_, err = cl.RawGet("/api/auth/check", &check)
	require.NoError(t, err)
	assert.Equal(t, true, check["authenticated"])

	var info map[string]interface{}
	_, err = cl.RawGet("/api/user/info", &info)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", info["email"])

	_, err = cl.RawPost("/api/logout", nil, nil)
	require.NoError(t, err)
	_, err = cl.RawGet("/api/auth/check", &check)
	require.NoError(t, err)
	assert.Equal(t, false, check["authenticated"])
}

func TestAuthForgedCookie(t *testing.T) {
	cl := client.NewWithRouter(testRouter)
	// an unsigned user id is not a valid session token
	cl.WithHeader("Cookie", access.CookieName+"=1")

	var check map[string]interface{}
	_, err := cl.RawGet("/api/auth/check", &check)
	require.NoError(t, err)
	assert.Equal(t, false, check["authenticated"])
}

func TestRegisterValidation(t *testing.T) {
	cl := client.NewWithRouter(testRouter)
	status, err := cl.RawPost("/api/auth/register", map[string]interface{}{
		"email": "missing.password@example.com",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPaintingFilters(t *testing.T) {
	cl := client.NewWithRouter(testRouter)

	var rows []map[string]interface{}
	_, err := cl.RawGet("/api/painting", &rows)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 6)

	_, err = cl.RawGet("/api/painting?price=10000%2B", &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Harbour Study", rows[0]["title"])

	_, err = cl.RawGet("/api/painting?price=400-800", &rows)
	require.NoError(t, err)
	titles := []string{}
	for _, row := range rows {
		titles = append(titles, row["title"].(string))
	}
	assert.ElementsMatch(t, []string{"Morning at the Pier", "Stillness"}, titles)

	_, err = cl.RawGet("/api/painting?size=small", &rows)
	require.NoError(t, err)
	for _, row := range rows {
		assert.LessOrEqual(t, row["width"].(float64), 60.0)
		assert.LessOrEqual(t, row["height"].(float64), 40.0)
	}
	assert.Len(t, rows, 2)

	_, err = cl.RawGet("/api/painting?size=large&price=10000%2B", &rows)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	status, err := cl.RawGet("/api/painting?stolen=yes", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	status, err = cl.RawGet("/api/painting?size=gigantic", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPaintingOptionsFragment(t *testing.T) {
	cl := client.NewWithRouter(testRouter)
	var raw []byte
	_, header, err := cl.RawGetWithHeader("/api/painting",
		map[string]string{"X-Requested-Fragment": "options"}, &raw)
	require.NoError(t, err)
	assert.Contains(t, header.Get("Content-Type"), "text/html")
	fragment := string(raw)
	assert.Contains(t, fragment, `<option value="`)
	assert.Contains(t, fragment, "Harbour Study (T. Lindqvist)")
}

func TestReviewFlow(t *testing.T) {
	cl := newSession(t, "reviewer@example.com")

	// reviews require a session
	anonymous := client.NewWithRouter(testRouter)
	status, err := anonymous.RawPost("/api/review", map[string]interface{}{
		"id_p": 1, "comment": "anonymous praise",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, err = cl.RawPost("/api/review", map[string]interface{}{
		"id_p": 99999, "comment": "ghost painting",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	var created map[string]interface{}
	_, err = cl.RawPost("/api/review", map[string]interface{}{
		"id_p": 1, "comment": "Soft light, <b>wonderful</b> mood.",
	}, &created)
	require.NoError(t, err)
	assert.NotNil(t, created["id"])

	var rows []map[string]interface{}
	_, err = cl.RawGet("/api/review?id_p=1", &rows)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Tess", rows[0]["first_name"])
	assert.Equal(t, "Morning at the Pier", rows[0]["title"])

	// the rendered fragment escapes user-supplied markup
	var raw []byte
	_, _, err = cl.RawGetWithHeader("/api/review?id_p=1",
		map[string]string{"X-Requested-Fragment": "reviews"}, &raw)
	require.NoError(t, err)
	fragment := string(raw)
	assert.Contains(t, fragment, "&lt;b&gt;wonderful&lt;/b&gt;")
	assert.NotContains(t, fragment, "<b>wonderful</b>")

	status, err = cl.RawGet("/api/review?id_p=abc", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCartFlow(t *testing.T) {
	cl := newSession(t, "cart@example.com")

	status, err := client.NewWithRouter(testRouter).RawGet("/api/cart", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, err = cl.RawPost("/api/cart/add", map[string]interface{}{"id_p": 5}, nil)
	require.NoError(t, err)

	// the same painting cannot be added twice
	status, err = cl.RawPost("/api/cart/add", map[string]interface{}{"id_p": 5}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusConflict, status)

	status, err = cl.RawPost("/api/cart/add", map[string]interface{}{"id_p": 99999}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	var rows []map[string]interface{}
	_, err = cl.RawGet("/api/cart", &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5.0, rows[0]["id_p"])
	assert.Equal(t, "Winter Light II", rows[0]["title"])
	assert.Equal(t, 390.0, rows[0]["price"])
	assert.NotEmpty(t, rows[0]["image"])

	itemID := rows[0]["id"].(string)
	assert.True(t, strings.HasSuffix(itemID, "_5"))

	var deleted map[string]interface{}
	_, err = cl.RawDelete("/api/cart/"+itemID, &deleted)
	require.NoError(t, err)
	assert.Equal(t, 1.0, deleted["deleted"])

	_, err = cl.RawGet("/api/cart", &rows)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOrderFlow(t *testing.T) {
	cl := newSession(t, "buyer@example.com")

	// an empty cart cannot be ordered
	status, err := cl.RawPost("/api/order/create", map[string]interface{}{
		"address": "Main Street 1", "payment_method": "card",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err = cl.RawPost("/api/cart/add", map[string]interface{}{"id_p": 1}, nil)
	require.NoError(t, err)
	_, err = cl.RawPost("/api/cart/add", map[string]interface{}{"id_p": 2}, nil)
	require.NoError(t, err)

	events := len(testNotifier.events)
	var created map[string]interface{}
	_, err = cl.RawPost("/api/order/create", map[string]interface{}{
		"address": "Main Street 1", "payment_method": "card",
	}, &created)
	require.NoError(t, err)
	assert.Equal(t, 2.0, created["items"])
	assert.Equal(t, 450.0+780.0, created["total_price"])
	orderID := int64(created["id"].(float64))

	// the cart is emptied by the order
	var cart []map[string]interface{}
	_, err = cl.RawGet("/api/cart", &cart)
	require.NoError(t, err)
	assert.Empty(t, cart)

	var orders []map[string]interface{}
	_, err = cl.RawGet("/api/orders", &orders)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "created", orders[0]["status"])
	assert.Equal(t, 1230.0, orders[0]["total_price"])
	items := orders[0]["items"].([]interface{})
	assert.Len(t, items, 2)

	var transactions []map[string]interface{}
	_, err = cl.RawGet("/api/transactions?id_o="+strconv.FormatInt(orderID, 10), &transactions)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, 1230.0, transactions[0]["amount"])

	require.Len(t, testNotifier.events, events+1)
	event := testNotifier.events[len(testNotifier.events)-1]
	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, 1230.0, event.Amount)
	assert.Equal(t, 2, event.Items)
}

func TestEvents(t *testing.T) {
	cl := client.NewWithRouter(testRouter)
	var events []map[string]interface{}
	_, err := cl.RawGet("/api/events", &events)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, event := range events {
		assert.NotEmpty(t, event["title"])
		paintings := event["paintings"].([]interface{})
		assert.NotEmpty(t, paintings)
	}
}

func TestGenericTableAPI(t *testing.T) {
	cl := client.NewWithRouter(testRouter)

	var created map[string]interface{}
	_, err := cl.RawPost("/api/event", map[string]interface{}{
		"title":       "Vernissage",
		"description": "Season opening.",
	}, &created)
	require.NoError(t, err)
	id := strconv.Itoa(int(created["id"].(float64)))

	var rows []map[string]interface{}
	_, err = cl.RawGet("/api/event?id="+id, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Vernissage", rows[0]["title"])

	var changed map[string]interface{}
	_, err = cl.RawPut("/api/event", map[string]interface{}{
		"id":          created["id"],
		"description": "Season opening, moved to October.",
	}, &changed)
	require.NoError(t, err)
	assert.Equal(t, 1.0, changed["changes"])

	// create payloads are validated against the table schema
	status, err := cl.RawPost("/api/event", map[string]interface{}{
		"description": "no title",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	status, err = cl.RawPost("/api/event", map[string]interface{}{
		"title": "Extra", "surprise": true,
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	// deleting without any condition is refused
	status, err = cl.RawDelete("/api/event", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err = cl.RawDelete("/api/event?id=999999", &changed)
	require.NoError(t, err)
	assert.Equal(t, 0.0, changed["changes"])

	_, err = cl.RawDelete("/api/event?id="+id, &changed)
	require.NoError(t, err)
	assert.Equal(t, 1.0, changed["changes"])
}

func TestGenericTableAPIUnknownTables(t *testing.T) {
	cl := client.NewWithRouter(testRouter)

	status, err := cl.RawGet("/api/no_such_table", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	// the users table is registered but not exposed
	status, err = cl.RawGet("/api/users", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	status, err = cl.RawPost("/api/users", map[string]interface{}{
		"email": "sneaky@example.com", "password": "x",
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProfileRedirect(t *testing.T) {
	anonymous := client.NewWithRouter(testRouter)
	status, header, err := anonymous.RawGetWithHeader("/profile", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/auth", header.Get("Location"))

	cl := newSession(t, "profile@example.com")
	var raw []byte
	status, _, err = cl.RawGetWithHeader("/profile", nil, &raw)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "profile@example.com")
}

func TestPages(t *testing.T) {
	cl := client.NewWithRouter(testRouter)
	for _, path := range []string{"/", "/catalog", "/auth", "/cart", "/events"} {
		var raw []byte
		status, _, err := cl.RawGetWithHeader(path, nil, &raw)
		require.NoError(t, err, path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Contains(t, string(raw), "<html", path)
	}
}

func TestUploadPaintingImage(t *testing.T) {
	data := []byte("not really a jpeg")

	anonymous := client.NewWithRouter(testRouter)
	status, err := anonymous.PostMultipart("/api/painting/1/image", "image", "p.jpg", data, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	cl := newSession(t, "curator@example.com")
	var result map[string]interface{}
	_, err = cl.PostMultipart("/api/painting/1/image", "image", "p.jpg", data, &result)
	require.NoError(t, err)
	location := result["image"].(string)
	assert.True(t, strings.HasPrefix(location, "/images/painting-1-"))
	assert.True(t, strings.HasSuffix(location, ".jpg"))

	var raw []byte
	_, err = cl.RawGet(location, &raw)
	require.NoError(t, err)
	assert.Equal(t, data, raw)

	var rows []map[string]interface{}
	_, err = cl.RawGet("/api/painting?id=1", &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, location, rows[0]["image"])

	status, err = cl.PostMultipart("/api/painting/999999/image", "image", "p.jpg", data, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}
