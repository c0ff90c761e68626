package supabase

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"apparel-catalog/internal/gateway"
)

// Upload writes data to bucket/path. With Upsert false an existing object is
// reported as gateway.ErrObjectExists.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, opts gateway.UploadOptions) error {
	headers := gout.H{
		"x-upsert": strconv.FormatBool(opts.Upsert),
	}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	if opts.CacheControl != "" {
		headers["Cache-Control"] = opts.CacheControl
	}

	p := "/storage/v1/object/" + objectPath(bucket, path)
	code, body, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    p,
		headers: headers,
		body:    data,
	})
	if err != nil {
		return err
	}
	if ok(code) {
		return nil
	}
	if isDuplicate(code, body) {
		return errors.Wrapf(gateway.ErrObjectExists, "supabase: upload %s/%s", bucket, path)
	}
	return statusError(http.MethodPost, p, code, body)
}

// PublicURL is where a public bucket serves the object.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, path)
}

// Storage reports duplicates either as 409 or as a 400 whose body carries
// statusCode "409".
func isDuplicate(code int, body []byte) bool {
	if code == http.StatusConflict {
		return true
	}
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil {
		switch v := ae.StatusCode.(type) {
		case string:
			if v == "409" {
				return true
			}
		case float64:
			if v == 409 {
				return true
			}
		}
		if ae.Error == "Duplicate" {
			return true
		}
	}
	return bytes.Contains(body, []byte("already exists"))
}

// objectPath escapes each segment of a storage key.
func objectPath(bucket, key string) string {
	return url.PathEscape(bucket) + "/" + (&url.URL{Path: key}).EscapedPath()
}
