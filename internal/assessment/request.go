package assessment

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/utils"
	"github.com/spigell/resume-coach/internal/workflow"
)

const (
	acceptType      = "application/json"
	contentEncoding = "gzip"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type formField struct {
	name  string
	value string
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func readFormFile(field string, file workflow.File) (*formFile, error) {
	if file == nil {
		return nil, fmt.Errorf("%s is required", field)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name(), err)
	}

	return &formFile{
		field:       field,
		filename:    file.Name(),
		contentType: mimetype.Detect(data).String(),
		data:        data,
	}, nil
}

// postForm sends fields (in order) and an optional file as multipart/form-data
// and returns the decoded body of a 200 response.
func (c *Client) postForm(ctx context.Context, op, path string, fields []formField, file *formFile) ([]byte, int, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.filename)))
		h.Set("Content-Type", file.contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, 0, WrapServiceError(op, 0, err)
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, 0, WrapServiceError(op, 0, err)
		}
	}

	for _, f := range fields {
		field, err := w.CreateFormField(f.name)
		if err != nil {
			return nil, 0, WrapServiceError(op, 0, err)
		}

		if _, err := io.Copy(field, strings.NewReader(f.value)); err != nil {
			return nil, 0, WrapServiceError(op, 0, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, 0, WrapServiceError(op, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+path, &b)
	if err != nil {
		return nil, 0, WrapServiceError(op, 0, err)
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.request(req)
	if err != nil {
		return nil, 0, WrapServiceError(op, 0, err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, WrapServiceError(op, resp.StatusCode, err)
	}

	c.logger.Debug("got response from assessment service",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("body", utils.TruncateForLog(string(data), c.MaxLogLength)),
	)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(utils.TruncateForLog(string(data), c.MaxLogLength))
		if msg == "" {
			msg = resp.Status
		}
		return nil, resp.StatusCode, &workflow.ServiceError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	return data, resp.StatusCode, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", acceptType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}
