package ecpay

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// FieldCheckMacValue is the signature field carried by every signed payload.
const FieldCheckMacValue = "CheckMacValue"

const (
	EncryptMD5    = 0
	EncryptSHA256 = 1
)

// ECPay signs the .NET UrlEncode rendition of the payload, which differs from
// url.QueryEscape on these characters.
var dotNetEncoding = strings.NewReplacer(
	"~", "%7e",
	"%2d", "-",
	"%5f", "_",
	"%2e", ".",
	"%21", "!",
	"%2a", "*",
	"%28", "(",
	"%29", ")",
)

// Signer computes and verifies CheckMacValue.
type Signer struct {
	hashKey     string
	hashIV      string
	encryptType int
}

func NewSigner(hashKey, hashIV string, encryptType int) Signer {
	return Signer{hashKey: hashKey, hashIV: hashIV, encryptType: encryptType}
}

// Sign returns the upper-case hex CheckMacValue of params. Any CheckMacValue
// entry in params is ignored.
func (s Signer) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.EqualFold(k, FieldCheckMacValue) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	var b strings.Builder
	b.WriteString("HashKey=")
	b.WriteString(s.hashKey)
	for _, k := range keys {
		b.WriteByte('&')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString("&HashIV=")
	b.WriteString(s.hashIV)

	encoded := encodeForMac(b.String())
	var sum []byte
	if s.encryptType == EncryptMD5 {
		digest := md5.Sum([]byte(encoded))
		sum = digest[:]
	} else {
		digest := sha256.Sum256([]byte(encoded))
		sum = digest[:]
	}
	return strings.ToUpper(hex.EncodeToString(sum))
}

// Verify reports whether the payload carries a CheckMacValue matching its fields.
func (s Signer) Verify(params map[string]string) bool {
	provided := ""
	for k, v := range params {
		if strings.EqualFold(k, FieldCheckMacValue) {
			provided = v
			break
		}
	}
	if provided == "" {
		return false
	}
	expected := s.Sign(params)
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(provided)))
}

func encodeForMac(raw string) string {
	return dotNetEncoding.Replace(strings.ToLower(url.QueryEscape(raw)))
}

// Flatten keeps the first value of each form field.
func Flatten(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
