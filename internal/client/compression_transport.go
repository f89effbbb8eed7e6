package client

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

const acceptedEncodings = "gzip, br, zstd"

// bodyDecoder wraps a compressed response body into a plain stream.
type bodyDecoder func(io.Reader) (io.ReadCloser, error)

var bodyDecoders = map[string]bodyDecoder{
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	},
}

// compressionTransport sets the User-Agent on provider and image requests and
// decodes the compressed answers provider APIs send back.
type compressionTransport struct {
	next      http.RoundTripper
	userAgent string
}

func newCompressionTransport(next http.RoundTripper, userAgent string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &compressionTransport{next: next, userAgent: userAgent}
}

func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if t.userAgent != "" && out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}
	if out.Header.Get("Accept-Encoding") == "" {
		out.Header.Set("Accept-Encoding", acceptedEncodings)
	}

	resp, err := t.next.RoundTrip(out)
	if err != nil || resp.Body == nil || resp.Body == http.NoBody {
		return resp, err
	}

	decode, ok := bodyDecoders[parseContentEncoding(resp.Header.Get("Content-Encoding"))]
	if !ok {
		return resp, nil
	}
	plain, err := decode(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	resp.Body = decodedBody{ReadCloser: plain, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

// decodedBody reads through the decoder; closing it also releases the connection.
type decodedBody struct {
	io.ReadCloser
	raw io.Closer
}

func (b decodedBody) Close() error {
	return errors.Join(b.ReadCloser.Close(), b.raw.Close())
}

// parseContentEncoding picks the last coding applied by the server.
func parseContentEncoding(header string) string {
	codings := strings.Split(header, ",")
	return strings.ToLower(strings.TrimSpace(codings[len(codings)-1]))
}
