package bedrock

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	algorithm       = "AWS4-HMAC-SHA256"
	serviceName     = "bedrock"
	requestType     = "aws4_request"
	timeFormat      = "20060102T150405Z"
	shortTimeFormat = "20060102"
)

// credentials holds the AWS credentials used for request signing.
type credentials struct {
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
}

// signer signs requests to the Bedrock runtime with AWS Signature V4.
type signer struct {
	creds  credentials
	region string
	now    func() time.Time
}

func newSigner(creds credentials, region string) *signer {
	return &signer{creds: creds, region: region, now: time.Now}
}

// sign adds the SigV4 authentication headers to req, buffering the body
// to compute the payload hash.
func (s *signer) sign(req *http.Request) error {
	return s.signAt(req, s.now().UTC())
}

func (s *signer) signAt(req *http.Request, t time.Time) error {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("reading request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	payloadHash := hashHex(body)
	amzDate := t.Format(timeFormat)
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	if s.creds.sessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", s.creds.sessionToken)
	}
	if req.Host == "" {
		req.Host = req.URL.Host
	}

	canonical, signedHeaders := s.canonicalRequest(req, payloadHash)
	scope := fmt.Sprintf("%s/%s/%s/%s", t.Format(shortTimeFormat), s.region, serviceName, requestType)
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		scope,
		hashHex([]byte(canonical)),
	}, "\n")

	signature := s.signature(stringToSign, t)
	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, s.creds.accessKeyID, scope, signedHeaders, signature))
	return nil
}

func (s *signer) canonicalRequest(req *http.Request, payloadHash string) (canonical, signedHeaders string) {
	uri := req.URL.Path
	if uri == "" {
		uri = "/"
	}
	uri = uriEncode(uri, false)

	headers := map[string]string{"host": req.Host}
	for k, vals := range req.Header {
		trimmed := make([]string, 0, len(vals))
		for _, v := range vals {
			trimmed = append(trimmed, strings.TrimSpace(v))
		}
		headers[strings.ToLower(k)] = strings.Join(trimmed, ",")
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var canonicalHeaders strings.Builder
	for _, k := range keys {
		canonicalHeaders.WriteString(k)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(headers[k])
		canonicalHeaders.WriteString("\n")
	}
	signedHeaders = strings.Join(keys, ";")

	canonical = strings.Join([]string{
		req.Method,
		uri,
		canonicalQuery(req.URL.Query()),
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")
	return canonical, signedHeaders
}

func canonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, uriEncode(k, true)+"="+uriEncode(v, true))
		}
	}
	return strings.Join(parts, "&")
}

// uriEncode percent-encodes s per the SigV4 canonical request rules:
// everything but RFC 3986 unreserved characters is escaped, with a
// space as %20 (never +). encodeSlash is false for paths.
func uriEncode(s string, encodeSlash bool) string {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c, encodeSlash) {
			fmt.Fprintf(&buf, "%%%02X", c)
		} else {
			buf.WriteByte(c)
		}
	}
	return buf.String()
}

func shouldEscape(c byte, encodeSlash bool) bool {
	if 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' {
		return false
	}
	switch c {
	case '-', '_', '.', '~':
		return false
	case '/':
		return encodeSlash
	}
	return true
}

func (s *signer) signature(stringToSign string, t time.Time) string {
	kDate := hmacSHA256([]byte("AWS4"+s.creds.secretAccessKey), []byte(t.Format(shortTimeFormat)))
	kRegion := hmacSHA256(kDate, []byte(s.region))
	kService := hmacSHA256(kRegion, []byte(serviceName))
	kSigning := hmacSHA256(kService, []byte(requestType))
	return hex.EncodeToString(hmacSHA256(kSigning, []byte(stringToSign)))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
