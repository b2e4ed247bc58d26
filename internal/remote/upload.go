package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// ErrUploadWithoutURL indicates a 2xx upload answer that carried no usable file location.
var ErrUploadWithoutURL = errors.New("upload response carried no file url")

// Upload sends content as the multipart field "file" to path and returns the absolute
// URL the remote service assigned to it.
func (c *Client) Upload(ctx context.Context, path, token, fileName, mimeType string, content io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("read evidence: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	response, err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Token:       token,
		Body:        body,
		ContentType: writer.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}

	location := uploadLocation(response)
	if location == "" {
		return "", fmt.Errorf("%s: %w", path, ErrUploadWithoutURL)
	}
	return c.Resolve(location), nil
}

func uploadLocation(response Response) string {
	if response.IsJSON() {
		var payload map[string]interface{}
		if err := json.Unmarshal(response.Body, &payload); err == nil {
			if location := locationFrom(payload); location != "" {
				return location
			}
			if data, ok := payload["data"].(map[string]interface{}); ok {
				if location := locationFrom(data); location != "" {
					return location
				}
			}
		}
	}
	return strings.TrimSpace(response.Header.Get("Location"))
}

func locationFrom(payload map[string]interface{}) string {
	for _, key := range []string{"url", "secure_url", "file_url", "fileUrl", "location"} {
		if value, ok := payload[key].(string); ok {
			value = strings.TrimSpace(value)
			if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "/") {
				return value
			}
		}
	}
	return ""
}
