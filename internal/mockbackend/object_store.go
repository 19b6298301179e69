package mockbackend

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const signatureParam string = "X-Amz-Signature"
const presignTTL time.Duration = 15 * time.Minute

type storedObject struct {
	contentType string
	content     []byte
}

// ObjectStore stands in for the storage service the attachments are uploaded to with
// pre-signed URLs. Like the real service it refuses requests carrying a bearer token.
type ObjectStore struct {
	lock    sync.RWMutex
	secret  []byte
	objects map[string]storedObject
	clock   func() time.Time
	echo    *echo.Echo
}

func NewObjectStore(secret string) *ObjectStore {
	store := &ObjectStore{
		secret:  []byte(secret),
		objects: map[string]storedObject{},
		clock:   time.Now,
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.RequestID())
	e.Use(middleware.Recover())
	e.PUT("/uploads/:key", store.putObject)
	e.GET("/uploads/:key", store.getObject)
	store.echo = e
	return store
}

func (o *ObjectStore) Handler() http.Handler {
	return o.echo
}

func (o *ObjectStore) Echo() *echo.Echo {
	return o.echo
}

// Presign returns the upload URL and the object URL of key below baseURL
func (o *ObjectStore) Presign(baseURL *url.URL, key string) (string, string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   key,
		ExpiresAt: jwt.NewNumericDate(o.clock().Add(presignTTL)),
	})
	signature, err := token.SignedString(o.secret)
	if err != nil {
		return "", "", err
	}
	objectURL := baseURL.JoinPath("uploads", key)
	uploadURL := *objectURL
	query := url.Values{}
	query.Set("X-Amz-Expires", fmt.Sprintf("%d", int(presignTTL.Seconds())))
	query.Set(signatureParam, signature)
	uploadURL.RawQuery = query.Encode()
	return uploadURL.String(), objectURL.String(), nil
}

func (o *ObjectStore) verify(key, signature string) error {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(signature, &claims, func(*jwt.Token) (interface{}, error) { return o.secret, nil })
	if err != nil {
		return err
	}
	if !claims.VerifyExpiresAt(o.clock(), true) {
		return fmt.Errorf("the upload URL is expired")
	}
	if claims.Subject != key {
		return fmt.Errorf("the signature does not match the object")
	}
	return nil
}

func (o *ObjectStore) putObject(c echo.Context) error {
	if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Only one auth mechanism allowed; only the X-Amz-Algorithm query parameter is supported",
		})
	}
	key := c.Param("key")
	signature := c.QueryParam(signatureParam)
	if signature == "" {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "the request is not signed"})
	}
	if err := o.verify(key, signature); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"message": err.Error()})
	}
	content, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	o.lock.Lock()
	o.objects[key] = storedObject{contentType: contentType, content: content}
	o.lock.Unlock()
	c.Response().Header().Set("ETag", fmt.Sprintf("%q", strings.ToLower(key)))
	return c.NoContent(http.StatusOK)
}

func (o *ObjectStore) getObject(c echo.Context) error {
	o.lock.RLock()
	object, found := o.objects[c.Param("key")]
	o.lock.RUnlock()
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "the object does not exist"})
	}
	return c.Blob(http.StatusOK, object.contentType, object.content)
}

// Object returns the content and content type of an uploaded object, used in tests
func (o *ObjectStore) Object(key string) ([]byte, string, bool) {
	o.lock.RLock()
	defer o.lock.RUnlock()
	object, found := o.objects[key]
	return object.content, object.contentType, found
}
